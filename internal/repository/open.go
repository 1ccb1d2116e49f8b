package repository

import (
	"context"
	"fmt"

	"github.com/predictmaint/predictmaint/internal/cloud"
	"github.com/predictmaint/predictmaint/internal/database"
)

type OpenConfig struct {
	Kind        string // memory, postgres or dynamodb
	DSN         string
	AWSRegion   string
	DynamoTable string
}

// Open returns the store named by cfg.Kind together with a func releasing it.
// Postgres gets its schema created on open.
func Open(ctx context.Context, cfg OpenConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "memory":
		return NewMemory(), noop, nil
	case "dynamodb":
		awsCfg, err := cloud.LoadConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		return cloud.NewDynamoDBStore(awsCfg, cfg.DynamoTable), noop, nil
	case "postgres", "":
	default:
		return nil, nil, fmt.Errorf("repository: unknown store %q", cfg.Kind)
	}

	db, err := database.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return New(db), db.Close, nil
}
