package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const ModelVersion = "v1.0"

// Features are the sensor inputs a prediction was made from. Stored as jsonb.
type Features struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

func NewFeatures(temperature, humidity float64) Features {
	return Features{Temperature: &temperature, Humidity: &humidity}
}

func (f Features) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *Features) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Features{}
		return nil
	case []byte:
		*f = Features{}
		return json.Unmarshal(v, f)
	case string:
		*f = Features{}
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("features: unsupported scan type %T", src)
	}
}

// Prediction is a stored row of the predictions table.
type Prediction struct {
	ID           int64     `db:"id"`
	MachineID    string    `db:"machine_id"`
	Features     Features  `db:"features"`
	Prediction   float64   `db:"prediction"`
	ModelVersion string    `db:"model_version"`
	Timestamp    time.Time `db:"timestamp"`
}

// NeedsMaintenance tolerates legacy rows that hold a probability instead of 0/1.
func (p Prediction) NeedsMaintenance() bool {
	return p.Prediction >= 1 || p.Prediction > 0.5
}

func (p Prediction) Outcome() int {
	if p.Prediction == 0 || p.Prediction == 1 {
		return int(p.Prediction)
	}
	if p.Prediction > 0.5 {
		return 1
	}
	return 0
}

func (p Prediction) Record() PredictionRecord {
	version := p.ModelVersion
	if version == "" {
		version = ModelVersion
	}
	return PredictionRecord{
		ID:               p.ID,
		MachineID:        p.MachineID,
		Features:         p.Features,
		Prediction:       p.Outcome(),
		NeedsMaintenance: p.NeedsMaintenance(),
		ModelVersion:     version,
		Timestamp:        p.Timestamp,
	}
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
	Timestamp        time.Time `json:"timestamp"`
	ModelVersion     string    `json:"model_version"`
	EventSent        bool      `json:"kafka_sent"`
}

type PredictionRecord struct {
	ID               int64     `json:"id"`
	MachineID        string    `json:"machine_id"`
	Features         Features  `json:"features"`
	Prediction       int       `json:"prediction"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	ModelVersion     string    `json:"model_version"`
	Timestamp        time.Time `json:"timestamp"`
}

type Stats struct {
	TotalPredictions int        `json:"total_predictions"`
	UniqueMachines   int        `json:"unique_machines"`
	AvgPrediction    float64    `json:"avg_prediction"`
	LatestPrediction *time.Time `json:"latest_prediction"`
}

type MachineSummary struct {
	MachineID       string     `json:"machine_id"`
	PredictionCount int        `json:"prediction_count"`
	LastPrediction  *float64   `json:"last_prediction"`
	LastTimestamp   *time.Time `json:"last_timestamp"`
}

// Reading is a sensor sample arriving over MQTT.
type Reading struct {
	MachineID   string    `json:"machine_id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
}

// PredictionEvent is published to the event bus after every prediction.
type PredictionEvent struct {
	EventID          string    `json:"event_id"`
	MachineID        string    `json:"machine_id"`
	Temperature      float64   `json:"temperature"`
	Humidity         float64   `json:"humidity"`
	Prediction       int       `json:"prediction"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	Confidence       float64   `json:"confidence"`
	ModelVersion     string    `json:"model_version"`
	Timestamp        time.Time `json:"timestamp"`
}

type HistoryArchive struct {
	Key       string `json:"key"`
	ReportURL string `json:"report_url"`
	Count     int    `json:"count"`
}
