package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/predictmaint/predictmaint/internal/dashboard/models"
)

// ErrRequestFailed is the one failure kind callers see: any transport error
// or non-2xx status.
var ErrRequestFailed = errors.New("request failed")

// RequestError carries the endpoint and, when the backend answered, its
// status. It matches ErrRequestFailed under errors.Is.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return e.Op
	}
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

type Config struct {
	BaseURL  string
	BasePath string
	Timeout  time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		baseURL: joinBase(cfg.BaseURL, cfg.BasePath),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func joinBase(baseURL, basePath string) string {
	base := strings.TrimRight(baseURL, "/")
	p := strings.Trim(basePath, "/")
	if p == "" {
		return base
	}
	return base + "/" + p
}

func (c *Client) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	var out models.PredictResponse
	if err := c.postJSON(ctx, "/predict", req, &out, "Network response was not ok"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context) ([]models.PredictionHistory, error) {
	var out []models.PredictionHistory
	if err := c.getJSON(ctx, "/history", &out, "Failed to fetch history"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.getJSON(ctx, "/stats", &out, "Failed to fetch stats"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Machines(ctx context.Context) ([]models.MachineInfo, error) {
	var out []models.MachineInfo
	if err := c.getJSON(ctx, "/machines", &out, "Failed to fetch machines"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MachinePredictions(ctx context.Context, machineID string) ([]models.PredictionHistory, error) {
	var out []models.PredictionHistory
	if err := c.getJSON(ctx, "/machine/"+url.PathEscape(machineID), &out, "Failed to fetch machine predictions"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.getJSON(ctx, "/health", &out, "Backend is not healthy"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportHistory asks the backend to archive the full history and returns the
// download link.
func (c *Client) ExportHistory(ctx context.Context) (*models.HistoryArchive, error) {
	var out models.HistoryArchive
	if err := c.postJSON(ctx, "/reports/history", nil, &out, "Failed to export history"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, op string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	return c.do(req, out, op)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any, op string) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out, op)
}

func (c *Client) do(req *http.Request, out any, op string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RequestError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
