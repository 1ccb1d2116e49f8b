package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrediction_Record(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		version   string
		outcome   int
		needs     bool
		wantModel string
	}{
		{name: "binary zero", value: 0, version: "v1.0", outcome: 0, needs: false, wantModel: "v1.0"},
		{name: "binary one", value: 1, version: "v1.0", outcome: 1, needs: true, wantModel: "v1.0"},
		{name: "legacy probability above half", value: 0.73, version: "", outcome: 1, needs: true, wantModel: ModelVersion},
		{name: "legacy probability below half", value: 0.21, version: "v0.9", outcome: 0, needs: false, wantModel: "v0.9"},
		{name: "exactly half", value: 0.5, version: "v1.0", outcome: 0, needs: false, wantModel: "v1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Prediction{ID: 7, MachineID: "m1", Prediction: tt.value, ModelVersion: tt.version}.Record()
			assert.Equal(t, tt.outcome, rec.Prediction)
			assert.Equal(t, tt.needs, rec.NeedsMaintenance)
			assert.Equal(t, tt.wantModel, rec.ModelVersion)
			assert.Equal(t, int64(7), rec.ID)
		})
	}
}

func TestFeatures_ValueAndScan(t *testing.T) {
	f := NewFeatures(72.5, 41)
	v, err := f.Value()
	require.NoError(t, err)

	var back Features
	require.NoError(t, back.Scan(v))
	require.NotNil(t, back.Temperature)
	assert.Equal(t, 72.5, *back.Temperature)
	assert.Equal(t, 41.0, *back.Humidity)

	require.NoError(t, back.Scan(`{"temperature": 10}`))
	assert.Nil(t, back.Humidity)

	require.NoError(t, back.Scan([]byte(`{"humidity": 12}`)))
	assert.Nil(t, back.Temperature, "a rescan must not keep earlier fields")
	assert.Equal(t, 12.0, *back.Humidity)

	require.NoError(t, back.Scan(nil))
	assert.Nil(t, back.Temperature)

	assert.Error(t, back.Scan(42))
}

func TestPredictResponse_WireNames(t *testing.T) {
	b, err := json.Marshal(PredictResponse{Prediction: 1, NeedsMaintenance: true, EventSent: true})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"prediction", "needs_maintenance", "confidence", "timestamp", "model_version", "kafka_sent"} {
		assert.Contains(t, m, k)
	}
}
