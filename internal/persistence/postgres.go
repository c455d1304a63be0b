package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresBackend persists snapshots as JSONB rows in registry_snapshots.
// Only the newest `retain` rows are kept.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	retain int
	logger *zap.Logger
}

// NewPostgresBackend creates a PostgresBackend backed by the given pool.
// retain <= 0 keeps a single snapshot.
func NewPostgresBackend(pool *pgxpool.Pool, retain int, logger *zap.Logger) *PostgresBackend {
	if retain <= 0 {
		retain = 1
	}
	return &PostgresBackend{pool: pool, retain: retain, logger: logger}
}

// Name implements Backend.
func (b *PostgresBackend) Name() string { return "postgres" }

// Save implements Backend. The insert and the pruning of old rows run in one
// transaction.
func (b *PostgresBackend) Save(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	id := uuid.New()
	if _, err := tx.Exec(ctx,
		`INSERT INTO registry_snapshots (id, taken_at, product_count, counter, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, snap.TakenAt, len(snap.Products), int64(snap.Counter), payload,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM registry_snapshots
		 WHERE id NOT IN (
			SELECT id FROM registry_snapshots ORDER BY taken_at DESC LIMIT $1
		 )`, b.retain,
	)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}

	b.logger.Debug("snapshot row written",
		zap.String("id", id.String()),
		zap.Int("products", len(snap.Products)),
		zap.Int64("pruned", tag.RowsAffected()),
	)
	return nil
}

// Load implements Backend.
func (b *PostgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	var payload []byte
	err := b.pool.QueryRow(ctx,
		`SELECT payload FROM registry_snapshots ORDER BY taken_at DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
