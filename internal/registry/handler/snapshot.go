package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/persistence"
	"go.uber.org/zap"
)

// SnapshotHandler exposes the admin checkpoint endpoint.
type SnapshotHandler struct {
	manager    *persistence.Manager
	adminToken string // empty = endpoint open
	logger     *zap.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(manager *persistence.Manager, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{manager: manager, logger: logger}
}

// SetAdminToken requires callers of the admin routes to send the token in
// the X-Admin-Token header.
func (h *SnapshotHandler) SetAdminToken(token string) {
	h.adminToken = token
}

// Register mounts the admin routes on the given router group.
func (h *SnapshotHandler) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", h.requireAdmin())
	admin.POST("/snapshot", h.Checkpoint)
}

func (h *SnapshotHandler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminToken == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}

// Checkpoint handles POST /admin/snapshot: saves a snapshot immediately.
func (h *SnapshotHandler) Checkpoint(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.manager.Checkpoint(ctx); err != nil {
		h.logger.Error("manual checkpoint", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkpoint failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "saved",
		"backend": h.manager.Backend().Name(),
	})
}
