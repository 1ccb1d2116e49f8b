package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictmaint/predictmaint/internal/domain"
	"github.com/predictmaint/predictmaint/internal/repository"
	"github.com/predictmaint/predictmaint/internal/service"
)

type brokenStore struct{ *repository.Memory }

func (brokenStore) InsertPrediction(context.Context, *domain.Prediction) error {
	return errors.New("db down")
}

func (brokenStore) ListPredictions(context.Context) ([]domain.Prediction, error) {
	return nil, errors.New("db down")
}

func (brokenStore) Ping(context.Context) error { return errors.New("db down") }

func newTestApp(store repository.Store) *testApp {
	svcs := service.New(store, service.Options{})
	return &testApp{app: NewApp(svcs, "*")}
}

type testApp struct {
	app *fiber.App
}

func (a *testApp) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func detail(t *testing.T, data []byte) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Detail
}

func TestPredict(t *testing.T) {
	a := newTestApp(repository.NewMemory())

	code, data := a.do(t, nethttp.MethodPost, "/api/predict", `{"machineId":"m1","temperature":70,"humidity":40}`)
	require.Equal(t, nethttp.StatusOK, code)

	var resp domain.PredictResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 1, resp.Prediction)
	assert.True(t, resp.NeedsMaintenance)
	assert.InDelta(t, 0.58, resp.Confidence, 1e-9)
	assert.Equal(t, "v1.0", resp.ModelVersion)
	assert.False(t, resp.EventSent)
	assert.Contains(t, string(data), `"kafka_sent":false`)
}

func TestPredict_ZeroValuesAccepted(t *testing.T) {
	a := newTestApp(repository.NewMemory())

	code, _ := a.do(t, nethttp.MethodPost, "/predict", `{"machineId":"m1","temperature":0,"humidity":0}`)
	assert.Equal(t, nethttp.StatusOK, code)
}

func TestPredict_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "missing temperature", body: `{"machineId":"m1","humidity":40}`, detail: "Temperature"},
		{name: "missing machine", body: `{"temperature":70,"humidity":40}`, detail: "MachineID"},
		{name: "malformed json", body: `{"machineId":`, detail: "invalid request body"},
		{name: "string number", body: `{"machineId":"m1","temperature":"hot","humidity":40}`, detail: "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(repository.NewMemory())
			code, data := a.do(t, nethttp.MethodPost, "/api/predict", tt.body)
			assert.Equal(t, nethttp.StatusUnprocessableEntity, code)
			assert.Contains(t, detail(t, data), tt.detail)
		})
	}
}

func TestPredict_StoreFailure(t *testing.T) {
	a := newTestApp(brokenStore{repository.NewMemory()})

	code, data := a.do(t, nethttp.MethodPost, "/api/predict", `{"machineId":"m1","temperature":70,"humidity":40}`)
	assert.Equal(t, nethttp.StatusInternalServerError, code)
	assert.Equal(t, "Failed to save prediction", detail(t, data))
}

func TestReadEndpoints(t *testing.T) {
	a := newTestApp(repository.NewMemory())
	for _, body := range []string{
		`{"machineId":"m1","temperature":70,"humidity":40}`,
		`{"machineId":"m2","temperature":20,"humidity":30}`,
		`{"machineId":"m1","temperature":20,"humidity":30}`,
	} {
		code, _ := a.do(t, nethttp.MethodPost, "/api/predict", body)
		require.Equal(t, nethttp.StatusOK, code)
	}

	code, data := a.do(t, nethttp.MethodGet, "/api/history", "")
	require.Equal(t, nethttp.StatusOK, code)
	var history []domain.PredictionRecord
	require.NoError(t, json.Unmarshal(data, &history))
	require.Len(t, history, 3)
	assert.Equal(t, int64(1), history[0].ID)
	assert.Equal(t, 1, history[0].Prediction)
	require.NotNil(t, history[0].Features.Temperature)
	assert.Equal(t, 70.0, *history[0].Features.Temperature)

	code, data = a.do(t, nethttp.MethodGet, "/api/machine/m1", "")
	require.Equal(t, nethttp.StatusOK, code)
	var m1 []domain.PredictionRecord
	require.NoError(t, json.Unmarshal(data, &m1))
	assert.Len(t, m1, 2)

	code, data = a.do(t, nethttp.MethodGet, "/api/stats", "")
	require.Equal(t, nethttp.StatusOK, code)
	var st domain.Stats
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 3, st.TotalPredictions)
	assert.Equal(t, 2, st.UniqueMachines)
	assert.Equal(t, 0.3333, st.AvgPrediction)
	assert.NotNil(t, st.LatestPrediction)

	code, data = a.do(t, nethttp.MethodGet, "/machines", "")
	require.Equal(t, nethttp.StatusOK, code)
	var machines []domain.MachineSummary
	require.NoError(t, json.Unmarshal(data, &machines))
	require.Len(t, machines, 2)
	assert.Equal(t, "m1", machines[0].MachineID)
	assert.Equal(t, 2, machines[0].PredictionCount)

	code, data = a.do(t, nethttp.MethodGet, "/api/metrics", "")
	require.Equal(t, nethttp.StatusOK, code)
	assert.Contains(t, string(data), service.MetricPredictionsTotal)
}

func TestMachine_EscapedID(t *testing.T) {
	a := newTestApp(repository.NewMemory())
	code, _ := a.do(t, nethttp.MethodPost, "/api/predict", `{"machineId":"line 1/press","temperature":70,"humidity":40}`)
	require.Equal(t, nethttp.StatusOK, code)

	code, data := a.do(t, nethttp.MethodGet, "/api/machine/line%201%2Fpress", "")
	require.Equal(t, nethttp.StatusOK, code)
	var rows []domain.PredictionRecord
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "line 1/press", rows[0].MachineID)
}

func TestStats_Empty(t *testing.T) {
	a := newTestApp(repository.NewMemory())

	code, data := a.do(t, nethttp.MethodGet, "/api/stats", "")
	require.Equal(t, nethttp.StatusOK, code)
	assert.JSONEq(t, `{"total_predictions":0,"unique_machines":0,"avg_prediction":0,"latest_prediction":null}`, string(data))

	code, data = a.do(t, nethttp.MethodGet, "/api/machines", "")
	require.Equal(t, nethttp.StatusOK, code)
	assert.JSONEq(t, `[]`, string(data))
}

func TestReadFailures(t *testing.T) {
	a := newTestApp(brokenStore{repository.NewMemory()})

	tests := []struct {
		path   string
		detail string
	}{
		{path: "/api/history", detail: "Failed to fetch history"},
		{path: "/api/stats", detail: "Failed to fetch stats"},
		{path: "/api/machines", detail: "Failed to fetch machines"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, data := a.do(t, nethttp.MethodGet, tt.path, "")
			assert.Equal(t, nethttp.StatusInternalServerError, code)
			assert.Equal(t, tt.detail, detail(t, data))
		})
	}
}

func TestHealth(t *testing.T) {
	code, data := newTestApp(repository.NewMemory()).do(t, nethttp.MethodGet, "/health", "")
	assert.Equal(t, nethttp.StatusOK, code)
	assert.JSONEq(t, `{"status":"healthy"}`, string(data))

	code, data = newTestApp(brokenStore{repository.NewMemory()}).do(t, nethttp.MethodGet, "/api/health", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"unhealthy"}`, string(data))
}

func TestArchiveHistory_Disabled(t *testing.T) {
	code, data := newTestApp(repository.NewMemory()).do(t, nethttp.MethodPost, "/api/reports/history", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, code)
	assert.Equal(t, service.ErrArchiveDisabled.Error(), detail(t, data))
}

func TestUnknownRoute(t *testing.T) {
	code, data := newTestApp(repository.NewMemory()).do(t, nethttp.MethodGet, "/api/nope", "")
	assert.Equal(t, nethttp.StatusNotFound, code)
	assert.NotEmpty(t, detail(t, data))
}
