package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
)

const schema = `
CREATE TABLE IF NOT EXISTS merge_attempts (
	id           UUID PRIMARY KEY,
	condition_id TEXT NOT NULL,
	wallet       TEXT NOT NULL,
	path         TEXT NOT NULL,
	amount       NUMERIC(78, 0) NOT NULL,
	yes_balance  NUMERIC(78, 0) NOT NULL,
	no_balance   NUMERIC(78, 0) NOT NULL,
	tx_hash      TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_pairs (
	pair_id        UUID PRIMARY KEY,
	opportunity_id TEXT NOT NULL,
	market_id      TEXT NOT NULL,
	market_slug    TEXT NOT NULL,
	yes_token_id   TEXT NOT NULL,
	no_token_id    TEXT NOT NULL,
	yes_order_id   TEXT NOT NULL,
	no_order_id    TEXT NOT NULL,
	yes_price      NUMERIC NOT NULL,
	no_price       NUMERIC NOT NULL,
	yes_size       NUMERIC NOT NULL,
	no_size        NUMERIC NOT NULL,
	yes_filled     NUMERIC NOT NULL,
	no_filled      NUMERIC NOT NULL,
	order_type     TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	executed_at    TIMESTAMPTZ NOT NULL
);
`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// Ping checks the database connection.
func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// EnsureSchema creates the audit tables when missing.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// StoreMerge stores a merge attempt in PostgreSQL.
func (p *PostgresStorage) StoreMerge(ctx context.Context, rec *merge.Record) error {
	query := `
		INSERT INTO merge_attempts (
			id, condition_id, wallet, path, amount, yes_balance, no_balance,
			tx_hash, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.ConditionID.Hex(),
		rec.Wallet.Hex(),
		rec.Path.String(),
		bigString(rec.Amount),
		bigString(rec.YesBalance),
		bigString(rec.NoBalance),
		rec.TxHash,
		rec.Error,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merge attempt: %w", err)
	}

	p.logger.Debug("merge-attempt-stored",
		zap.String("merge-id", rec.ID.String()),
		zap.String("condition-id", rec.ConditionID.Hex()))

	return nil
}

// StorePair stores an executed order pair in PostgreSQL.
func (p *PostgresStorage) StorePair(ctx context.Context, result *execution.PairResult) error {
	query := `
		INSERT INTO order_pairs (
			pair_id, opportunity_id, market_id, market_slug,
			yes_token_id, no_token_id, yes_order_id, no_order_id,
			yes_price, no_price, yes_size, no_size, yes_filled, no_filled,
			order_type, outcome, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		result.PairID,
		result.OpportunityID,
		result.MarketID,
		result.MarketSlug,
		result.YesTokenID,
		result.NoTokenID,
		result.YesOrderID,
		result.NoOrderID,
		result.YesPrice.String(),
		result.NoPrice.String(),
		result.YesSize.String(),
		result.NoSize.String(),
		result.YesFilled.String(),
		result.NoFilled.String(),
		string(result.OrderType),
		string(result.Outcome),
		result.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order pair: %w", err)
	}

	p.logger.Debug("order-pair-stored",
		zap.String("pair-id", result.PairID),
		zap.String("market-slug", result.MarketSlug))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
