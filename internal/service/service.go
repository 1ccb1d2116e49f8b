package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/predictmaint/predictmaint/internal/domain"
	"github.com/predictmaint/predictmaint/internal/events"
	"github.com/predictmaint/predictmaint/internal/repository"
)

var (
	ErrSavePrediction  = errors.New("failed to save prediction")
	ErrArchiveDisabled = errors.New("history archive requires cloud services")
)

// Notifier sends a maintenance alert for a machine.
type Notifier interface {
	SendMaintenanceAlert(ctx context.Context, machineID string, temperature, humidity, confidence float64, at time.Time) error
}

// Archiver uploads a report and returns a download URL.
type Archiver interface {
	UploadReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type Options struct {
	Events    events.Publisher
	Alerts    Notifier
	Archive   Archiver
	Clock     func() time.Time
	Telemetry *Telemetry
}

type Services struct {
	Store       repository.Store
	Predictions *PredictionService
	Telemetry   *Telemetry
}

func New(store repository.Store, opts Options) *Services {
	tel := opts.Telemetry
	if tel == nil {
		tel = NewTelemetry()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Services{
		Store:     store,
		Telemetry: tel,
		Predictions: &PredictionService{
			store:   store,
			events:  opts.Events,
			alerts:  opts.Alerts,
			archive: opts.Archive,
			metrics: tel,
			now:     clock,
		},
	}
}

type PredictionService struct {
	store   repository.Store
	events  events.Publisher
	alerts  Notifier
	archive Archiver
	metrics *Telemetry
	now     func() time.Time
}

// Predict scores a reading, stores it and announces it on the event bus.
// Only a storage failure fails the call.
func (s *PredictionService) Predict(ctx context.Context, req domain.PredictRequest) (domain.PredictResponse, error) {
	start := time.Now()
	s.metrics.predictions.Inc(1)

	a := Assess(req.Temperature, req.Humidity)
	ts := s.now().UTC()

	row := &domain.Prediction{
		MachineID:    req.MachineID,
		Features:     domain.NewFeatures(req.Temperature, req.Humidity),
		Prediction:   float64(a.Prediction),
		ModelVersion: domain.ModelVersion,
		Timestamp:    ts,
	}
	if err := s.store.InsertPrediction(ctx, row); err != nil {
		log.Error().Err(err).Str("machine_id", req.MachineID).Msg("failed to save prediction")
		return domain.PredictResponse{}, fmt.Errorf("%w: %w", ErrSavePrediction, err)
	}
	log.Info().
		Str("machine_id", req.MachineID).
		Bool("needs_maintenance", a.NeedsMaintenance).
		Int64("id", row.ID).
		Msg("prediction saved")

	sent := s.publish(ctx, req, a, ts)

	if a.NeedsMaintenance && s.alerts != nil {
		if err := s.alerts.SendMaintenanceAlert(ctx, req.MachineID, req.Temperature, req.Humidity, a.Confidence, ts); err != nil {
			log.Warn().Err(err).Str("machine_id", req.MachineID).Msg("maintenance alert not sent")
		}
	}

	s.metrics.observe(start)
	return domain.PredictResponse{
		Prediction:       a.Prediction,
		NeedsMaintenance: a.NeedsMaintenance,
		Confidence:       a.Confidence,
		Timestamp:        ts,
		ModelVersion:     domain.ModelVersion,
		EventSent:        sent,
	}, nil
}

func (s *PredictionService) publish(ctx context.Context, req domain.PredictRequest, a Assessment, ts time.Time) bool {
	if s.events == nil {
		return false
	}
	ev := domain.PredictionEvent{
		EventID:          uuid.NewString(),
		MachineID:        req.MachineID,
		Temperature:      req.Temperature,
		Humidity:         req.Humidity,
		Prediction:       a.Prediction,
		NeedsMaintenance: a.NeedsMaintenance,
		Confidence:       a.Confidence,
		ModelVersion:     domain.ModelVersion,
		Timestamp:        ts,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.eventsFailed.Inc(1)
		log.Warn().Err(err).Str("machine_id", req.MachineID).Msg("prediction event not published (non-critical)")
		return false
	}
	return true
}

// PredictReading is the ingestor entry point.
func (s *PredictionService) PredictReading(ctx context.Context, r domain.Reading) (domain.PredictResponse, error) {
	return s.Predict(ctx, domain.PredictRequest{
		MachineID:   r.MachineID,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
	})
}

func (s *PredictionService) History(ctx context.Context) ([]domain.PredictionRecord, error) {
	rows, err := s.store.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}
	return records(rows), nil
}

func (s *PredictionService) MachinePredictions(ctx context.Context, machineID string) ([]domain.PredictionRecord, error) {
	rows, err := s.store.ListByMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}
	return records(rows), nil
}

func (s *PredictionService) Stats(ctx context.Context) (domain.Stats, error) {
	rows, err := s.store.ListPredictions(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return Summarize(rows), nil
}

func (s *PredictionService) Machines(ctx context.Context) ([]domain.MachineSummary, error) {
	rows, err := s.store.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeMachines(rows), nil
}

// ArchiveHistory uploads the full history as JSON and returns a presigned link.
func (s *PredictionService) ArchiveHistory(ctx context.Context) (domain.HistoryArchive, error) {
	if s.archive == nil {
		return domain.HistoryArchive{}, ErrArchiveDisabled
	}
	history, err := s.History(ctx)
	if err != nil {
		return domain.HistoryArchive{}, err
	}
	data, err := json.Marshal(history)
	if err != nil {
		return domain.HistoryArchive{}, fmt.Errorf("marshal history: %w", err)
	}

	key := fmt.Sprintf("reports/history-%d.json", s.now().Unix())
	url, err := s.archive.UploadReport(ctx, key, data, "application/json")
	if err != nil {
		return domain.HistoryArchive{}, err
	}
	log.Info().Str("key", key).Int("count", len(history)).Msg("history archived")
	return domain.HistoryArchive{Key: key, ReportURL: url, Count: len(history)}, nil
}

func records(rows []domain.Prediction) []domain.PredictionRecord {
	out := make([]domain.PredictionRecord, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.Record())
	}
	return out
}
