package handler_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/persistence"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/handler"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/service"
	"go.uber.org/zap"
)

func setupSnapshotRouter(t *testing.T, adminToken string) (*gin.Engine, *persistence.FileBackend, *service.State) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	state := service.NewState()
	if _, err := service.NewProductService(state, zap.NewNop()).Register(t.Context(), &model.RegisterRequest{ProductID: "P1"}); err != nil {
		t.Fatal(err)
	}
	backend := persistence.NewFileBackend(filepath.Join(t.TempDir(), "registry.snap"))
	manager := persistence.NewManager(state, backend, zap.NewNop())

	h := handler.NewSnapshotHandler(manager, zap.NewNop())
	h.SetAdminToken(adminToken)

	r := gin.New()
	h.Register(r.Group("/api/v1"))
	return r, backend, state
}

func TestSnapshotCheckpoint_200(t *testing.T) {
	r, backend, _ := setupSnapshotRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/snapshot", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	snap, err := backend.Load(t.Context())
	if err != nil {
		t.Fatalf("load saved snapshot: %v", err)
	}
	if len(snap.Products) != 1 || snap.Products[0].ProductID != "P1" {
		t.Errorf("unexpected snapshot products: %+v", snap.Products)
	}
}

func TestSnapshotCheckpoint_adminToken(t *testing.T) {
	r, _, _ := setupSnapshotRouter(t, "s3cret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/snapshot", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/snapshot", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/snapshot", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
