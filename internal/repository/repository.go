package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/predictmaint/predictmaint/internal/domain"
)

// Store persists predictions. Listing methods return rows ordered by id.
type Store interface {
	InsertPrediction(ctx context.Context, p *domain.Prediction) error
	ListPredictions(ctx context.Context) ([]domain.Prediction, error)
	ListByMachine(ctx context.Context, machineID string) ([]domain.Prediction, error)
	Ping(ctx context.Context) error
}

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) InsertPrediction(ctx context.Context, p *domain.Prediction) error {
	row := r.db.QueryRowxContext(ctx,
		`INSERT INTO predictions(machine_id, features, prediction, model_version, timestamp)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id, timestamp`,
		p.MachineID, p.Features, p.Prediction, p.ModelVersion, p.Timestamp)
	if err := row.Scan(&p.ID, &p.Timestamp); err != nil {
		return fmt.Errorf("repository: insert prediction: %w", err)
	}
	return nil
}

func (r *Repos) ListPredictions(ctx context.Context) ([]domain.Prediction, error) {
	var out []domain.Prediction
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, machine_id, features, prediction, model_version, timestamp FROM predictions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: list predictions: %w", err)
	}
	return out, nil
}

func (r *Repos) ListByMachine(ctx context.Context, machineID string) ([]domain.Prediction, error) {
	var out []domain.Prediction
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, machine_id, features, prediction, model_version, timestamp FROM predictions
		 WHERE machine_id = $1 ORDER BY id`, machineID)
	if err != nil {
		return nil, fmt.Errorf("repository: list machine %q: %w", machineID, err)
	}
	return out, nil
}

func (r *Repos) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
