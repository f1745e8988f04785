package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
)

// Storage is the audit trail for merge attempts and executed order pairs.
type Storage interface {
	// StoreMerge stores one merge attempt, successful or not.
	StoreMerge(ctx context.Context, rec *merge.Record) error

	// StorePair stores an executed order pair.
	StorePair(ctx context.Context, result *execution.PairResult) error

	// Close closes the storage connection.
	Close() error
}

// Storage modes.
const (
	ModeConsole  = "console"
	ModePostgres = "postgres"
)

// New opens the storage selected by mode. pg is only used for ModePostgres.
func New(ctx context.Context, mode string, pg *PostgresConfig, logger *zap.Logger) (Storage, error) {
	switch mode {
	case ModeConsole, "":
		return NewConsoleStorage(logger), nil
	case ModePostgres:
		if pg == nil {
			return nil, fmt.Errorf("postgres storage requires configuration")
		}
		pg.Logger = logger
		store, err := NewPostgresStorage(pg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", mode)
	}
}
