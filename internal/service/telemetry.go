package service

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const (
	MetricPredictionsTotal  = "predictions_total"
	MetricPredictionLatency = "prediction_latency"
	MetricEventsFailed      = "prediction_events_failed"
)

// Telemetry counts prediction calls and times them.
type Telemetry struct {
	registry     gometrics.Registry
	predictions  gometrics.Counter
	latency      gometrics.Timer
	eventsFailed gometrics.Counter
}

func NewTelemetry() *Telemetry {
	t := &Telemetry{
		registry:     gometrics.NewRegistry(),
		predictions:  gometrics.NewCounter(),
		latency:      gometrics.NewTimer(),
		eventsFailed: gometrics.NewCounter(),
	}
	_ = t.registry.Register(MetricPredictionsTotal, t.predictions)
	_ = t.registry.Register(MetricPredictionLatency, t.latency)
	_ = t.registry.Register(MetricEventsFailed, t.eventsFailed)
	return t
}

func (t *Telemetry) observe(start time.Time) { t.latency.UpdateSince(start) }

// Snapshot returns every registered metric keyed by name.
func (t *Telemetry) Snapshot() map[string]map[string]interface{} {
	return t.registry.GetAll()
}

func (t *Telemetry) PredictionCount() int64 { return t.predictions.Count() }
