package persistence_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/persistence"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/repository"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/service"
)

var ctx = context.Background()

// populated returns registry state with a few products, events and verifications.
func populated(t *testing.T) (*service.State, *service.ProductService, *service.VerificationService) {
	t.Helper()
	state := service.NewState()
	logger := zap.NewNop()
	products := service.NewProductService(state, logger)
	verifications := service.NewVerificationService(state, nil, logger)

	for _, id := range []string{"P1", "P2", "P3"} {
		_, err := products.Register(ctx, &model.RegisterRequest{
			ProductID: id, ProductType: "widget", Producer: "ACME", Timestamp: 1000, Location: "Factory A",
		})
		require.NoError(t, err)
	}
	_, err := products.AddEvent(ctx, "P1", &model.AddEventRequest{EventType: "shipped", Timestamp: 1010, Location: "Port B", Handler: "Carrier X"})
	require.NoError(t, err)
	_, err = verifications.Verify(ctx, "P1", &model.VerifyRequest{ImageHash: "hash123", Timestamp: 1020, Location: "Warehouse C"})
	require.NoError(t, err)
	_, err = verifications.Verify(ctx, "P3", &model.VerifyRequest{ImageHash: "img-10", Timestamp: 1030, Location: "Store"})
	require.NoError(t, err)
	return state, products, verifications
}

func requireSameState(t *testing.T, want, got *persistence.Snapshot) {
	t.Helper()
	require.Equal(t, want.Version, got.Version)
	require.True(t, want.TakenAt.Equal(got.TakenAt), "taken_at: %v vs %v", want.TakenAt, got.TakenAt)
	require.Equal(t, want.Counter, got.Counter)
	require.Equal(t, want.Ledger, got.Ledger)
	require.Len(t, got.Products, len(want.Products))
	for i := range want.Products {
		assert.Equal(t, want.Products[i].ProductID, got.Products[i].ProductID)
		assert.Equal(t, want.Products[i].Product.Clone(), got.Products[i].Product.Clone())
	}
}

func TestCodec_roundTrip(t *testing.T) {
	state, _, _ := populated(t)
	snap := state.Export()

	data, err := persistence.Encode(snap)
	require.NoError(t, err)

	decoded, err := persistence.Decode(data)
	require.NoError(t, err)
	requireSameState(t, snap, decoded)
	require.NoError(t, decoded.Validate())

	again, err := persistence.Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")
}

func TestCodec_detectsCorruption(t *testing.T) {
	state, _, _ := populated(t)
	data, err := persistence.Encode(state.Export())
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		_, err := persistence.Decode(data[:10])
		require.ErrorIs(t, err, persistence.ErrCorruptSnapshot)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		_, err := persistence.Decode(bad)
		require.ErrorIs(t, err, persistence.ErrCorruptSnapshot)
	})

	t.Run("checksum", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[10] ^= 0xFF
		_, err := persistence.Decode(bad)
		require.ErrorIs(t, err, persistence.ErrCorruptSnapshot)
	})

	t.Run("inflated declared size", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		binary.BigEndian.PutUint64(bad[36:44], 1<<30-1)

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := persistence.Decode(bad)
		runtime.ReadMemStats(&after)

		require.ErrorIs(t, err, persistence.ErrCorruptSnapshot)
		assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20),
			"decoding a small payload should not allocate the declared size")
	})
}

func TestSnapshotValidate(t *testing.T) {
	state, _, _ := populated(t)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, state.Export().Validate())
	})

	t.Run("wrong version", func(t *testing.T) {
		snap := state.Export()
		snap.Version = 99
		require.Error(t, snap.Validate())
	})

	t.Run("counter behind minted IDs", func(t *testing.T) {
		snap := state.Export()
		snap.Counter = 1
		require.Error(t, snap.Validate())
	})

	t.Run("duplicate product", func(t *testing.T) {
		snap := state.Export()
		snap.Products = append(snap.Products, snap.Products[0])
		require.Error(t, snap.Validate())
	})

	t.Run("ledger missing an entry", func(t *testing.T) {
		snap := state.Export()
		snap.Ledger = snap.Ledger[:1]
		require.Error(t, snap.Validate())
	})

	t.Run("product verification differs from its ledger entry", func(t *testing.T) {
		snap := state.Export()
		snap.Products[0].Product.Verifications[0].Location = "Elsewhere"
		require.Error(t, snap.Validate())
	})

	t.Run("verification attributed to the wrong product", func(t *testing.T) {
		snap := state.Export()
		// Totals still match the ledger; only the owner is wrong.
		snap.Products[1].Product.Verifications = snap.Products[0].Product.Verifications
		snap.Products[0].Product.Verifications = nil
		require.Error(t, snap.Validate())
	})

	t.Run("ledger references unknown product", func(t *testing.T) {
		snap := state.Export()
		snap.Products = snap.Products[:2] // drops P3, which holds a verification
		require.Error(t, snap.Validate())
	})
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.snap")
	backend := persistence.NewFileBackend(path)

	_, err := backend.Load(ctx)
	require.ErrorIs(t, err, persistence.ErrNoSnapshot)

	state, _, _ := populated(t)
	snap := state.Export()
	require.NoError(t, backend.Save(ctx, snap))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	requireSameState(t, snap, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestManager_checkpointRecover(t *testing.T) {
	state, products, verifications := populated(t)
	backend := persistence.NewFileBackend(filepath.Join(t.TempDir(), "registry.snap"))

	var ops []string
	src := persistence.NewManager(state, backend, zap.NewNop())
	src.SetMetricsRecord(func(op string, success bool, _ time.Duration) {
		if success {
			ops = append(ops, op)
		}
	})
	require.NoError(t, src.Checkpoint(ctx))

	// Simulate a restart: fresh state, same backend.
	restarted := service.NewState()
	dst := persistence.NewManager(restarted, backend, zap.NewNop())
	dst.SetMetricsRecord(func(op string, success bool, _ time.Duration) {
		if success {
			ops = append(ops, op)
		}
	})
	restored, err := dst.Recover(ctx)
	require.NoError(t, err)
	require.True(t, restored)
	assert.False(t, dst.Buffered(), "buffer must be dropped after restore")
	assert.Equal(t, []string{"checkpoint", "recover"}, ops)

	newProducts := service.NewProductService(restarted, zap.NewNop())
	newVerifications := service.NewVerificationService(restarted, nil, zap.NewNop())
	for _, id := range []string{"P1", "P2", "P3"} {
		want, err := products.Get(ctx, id)
		require.NoError(t, err)
		got, err := newProducts.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	wantLogs, _ := verifications.Logs(ctx, 0, 10000)
	gotLogs, _ := newVerifications.Logs(ctx, 0, 10000)
	assert.Equal(t, wantLogs, gotLogs)

	_, err = newProducts.Register(ctx, &model.RegisterRequest{ProductID: "P1", ProductType: "x", Producer: "y"})
	require.ErrorIs(t, err, repository.ErrDuplicateProduct, "uniqueness must survive a restart")

	res, err := newVerifications.Verify(ctx, "P2", &model.VerifyRequest{ImageHash: "abc", Timestamp: 2000})
	require.NoError(t, err)
	assert.Equal(t, "ver-2000-3", res.VerificationID)
}

func TestManager_restoreOfSnapshotIsIdentity(t *testing.T) {
	state, _, _ := populated(t)
	m := persistence.NewManager(state, nil, zap.NewNop())

	before, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Restore(ctx, before))
	require.NoError(t, m.Restore(ctx, before)) // idempotent

	after, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Products, after.Products)
	assert.Equal(t, before.Ledger, after.Ledger)
	assert.Equal(t, before.Counter, after.Counter)
}

func TestManager_recoverWithoutSnapshot(t *testing.T) {
	m := persistence.NewManager(service.NewState(), persistence.NewNoopBackend(), zap.NewNop())
	restored, err := m.Recover(ctx)
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestManager_recoverCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.snap")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot at all, definitely not"), 0o600))

	m := persistence.NewManager(service.NewState(), persistence.NewFileBackend(path), zap.NewNop())
	_, err := m.Recover(ctx)
	require.ErrorIs(t, err, persistence.ErrCorruptSnapshot)
}

type countingBackend struct {
	persistence.NoopBackend
	saves atomic.Int32
}

func (b *countingBackend) Save(context.Context, *persistence.Snapshot) error {
	b.saves.Add(1)
	return nil
}

func TestCheckpointer_savesUntilStopped(t *testing.T) {
	backend := &countingBackend{}
	m := persistence.NewManager(service.NewState(), backend, zap.NewNop())
	cp := persistence.NewCheckpointer(m, 10*time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go cp.Start(done)

	require.Eventually(t, func() bool { return backend.saves.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	close(done)
	select {
	case <-cp.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("checkpointer did not stop")
	}
}

// stallingBackend holds its first Save until release is closed.
type stallingBackend struct {
	persistence.NoopBackend
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32

	mu   sync.Mutex
	last *persistence.Snapshot
}

func (b *stallingBackend) Save(_ context.Context, snap *persistence.Snapshot) error {
	if b.calls.Add(1) == 1 {
		close(b.entered)
		<-b.release
	}
	b.mu.Lock()
	b.last = snap
	b.mu.Unlock()
	return nil
}

func TestManager_checkpointsLandInOrder(t *testing.T) {
	backend := &stallingBackend{entered: make(chan struct{}), release: make(chan struct{})}
	state := service.NewState()
	products := service.NewProductService(state, zap.NewNop())
	m := persistence.NewManager(state, backend, zap.NewNop())

	// A periodic checkpoint exports the empty state, then stalls in Save.
	periodic := make(chan error, 1)
	go func() { periodic <- m.Checkpoint(ctx) }()
	<-backend.entered

	_, err := products.Register(ctx, &model.RegisterRequest{ProductID: "P1"})
	require.NoError(t, err)

	time.AfterFunc(50*time.Millisecond, func() { close(backend.release) })
	require.NoError(t, m.Checkpoint(ctx))
	require.NoError(t, <-periodic)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.last.Products, 1, "the final checkpoint must be the last one saved")
	assert.Equal(t, "P1", backend.last.Products[0].ProductID)
}
