// Package persistence snapshots the registry's in-memory state to a durable
// backend and rebuilds it on startup.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the registry state the Manager captures and restores.
// *service.State satisfies this interface.
type State interface {
	Export() *Snapshot
	Import(snap *Snapshot) error
}

// MetricsRecordFunc is an optional callback for recording snapshot operations.
// op is "checkpoint" or "recover".
type MetricsRecordFunc func(op string, success bool, duration time.Duration)

// Manager owns the snapshot lifecycle: Checkpoint before shutdown (and
// periodically), Recover at startup.
type Manager struct {
	state     State
	backend   Backend
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	// checkpointMu orders Export+Save pairs so an older snapshot never
	// lands after a newer one.
	checkpointMu sync.Mutex

	mu     sync.Mutex
	buffer *Snapshot // loaded but not yet restored
}

// NewManager creates a Manager. A nil backend disables persistence.
func NewManager(state State, backend Backend, logger *zap.Logger) *Manager {
	if backend == nil {
		backend = NewNoopBackend()
	}
	return &Manager{state: state, backend: backend, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (m *Manager) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Backend returns the configured backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Snapshot captures the full current state.
func (m *Manager) Snapshot(_ context.Context) (*Snapshot, error) {
	snap := m.state.Export()
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("captured snapshot is inconsistent: %w", err)
	}
	return snap, nil
}

// Restore replaces the current state with snap. Restoring the same snapshot
// twice yields the same state.
func (m *Manager) Restore(_ context.Context, snap *Snapshot) error {
	if snap == nil {
		return errors.New("restore: nil snapshot")
	}
	return m.state.Import(snap)
}

// Checkpoint snapshots the state and saves it to the backend. Concurrent
// calls run one at a time in the order they acquire the lock.
func (m *Manager) Checkpoint(ctx context.Context) (err error) {
	m.checkpointMu.Lock()
	defer m.checkpointMu.Unlock()

	start := time.Now()
	defer func() { m.record("checkpoint", err == nil, time.Since(start)) }()

	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := m.backend.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot to %s: %w", m.backend.Name(), err)
	}

	m.logger.Info("snapshot saved",
		zap.String("backend", m.backend.Name()),
		zap.Int("products", len(snap.Products)),
		zap.Int("ledger_entries", len(snap.Ledger)),
		zap.Uint64("counter", snap.Counter),
	)
	return nil
}

// Recover loads the latest snapshot from the backend and restores it. It
// reports false when the backend has nothing saved yet. The loaded buffer is
// dropped as soon as the restore succeeds.
func (m *Manager) Recover(ctx context.Context) (restored bool, err error) {
	start := time.Now()
	defer func() { m.record("recover", err == nil, time.Since(start)) }()

	snap, err := m.backend.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		m.logger.Info("no snapshot to recover; starting empty", zap.String("backend", m.backend.Name()))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot from %s: %w", m.backend.Name(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = snap

	if err := m.Restore(ctx, m.buffer); err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}
	m.buffer = nil

	m.logger.Info("snapshot restored",
		zap.String("backend", m.backend.Name()),
		zap.Time("taken_at", snap.TakenAt),
		zap.Int("products", len(snap.Products)),
		zap.Uint64("counter", snap.Counter),
	)
	return true, nil
}

// Buffered reports whether a loaded snapshot is still held awaiting restore.
func (m *Manager) Buffered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffer != nil
}

func (m *Manager) record(op string, success bool, d time.Duration) {
	if m.onMetrics != nil {
		m.onMetrics(op, success, d)
	}
}
