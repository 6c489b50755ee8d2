package postgres

import (
	"context"

	"bomcost/internal/storage"
)

// open is replaced in tests to avoid dialing.
var open = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.RegisterBackend("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := open(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return r, nil
	}, BuildCreateTableSQL)
}
