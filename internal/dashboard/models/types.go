package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp accepts RFC 3339 as well as the zone-less ISO form some backends
// emit. Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time)
}

type Health struct {
	Status string `json:"status"`
}

type Features struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

type PredictionHistory struct {
	ID               int64     `json:"id"`
	MachineID        string    `json:"machine_id"`
	Features         Features  `json:"features"`
	Prediction       int       `json:"prediction"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	ModelVersion     string    `json:"model_version"`
	Timestamp        Timestamp `json:"timestamp"`
}

type PredictRequest struct {
	MachineID   string  `json:"machineId"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type PredictResponse struct {
	Prediction       int       `json:"prediction"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	Confidence       float64   `json:"confidence"`
	Timestamp        Timestamp `json:"timestamp"`
	ModelVersion     string    `json:"model_version"`
	KafkaSent        bool      `json:"kafka_sent"`
}

type Stats struct {
	TotalPredictions int        `json:"total_predictions"`
	UniqueMachines   int        `json:"unique_machines"`
	AvgPrediction    float64    `json:"avg_prediction"`
	LatestPrediction *Timestamp `json:"latest_prediction"`
}

type MachineInfo struct {
	MachineID       string     `json:"machine_id"`
	PredictionCount int        `json:"prediction_count"`
	LastPrediction  *float64   `json:"last_prediction"`
	LastTimestamp   *Timestamp `json:"last_timestamp"`
}

type HistoryArchive struct {
	Key       string `json:"key"`
	ReportURL string `json:"report_url"`
	Count     int    `json:"count"`
}

// Snapshot is what the live stats feed pushes to browsers.
type Snapshot struct {
	Stats     *Stats              `json:"stats"`
	Recent    []PredictionHistory `json:"recent"`
	Timestamp int64               `json:"timestamp"`
}
