package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/service"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/verifyledger"
	"go.uber.org/zap"
)

// VerificationHandler handles authenticity verification requests and the
// verification log query.
type VerificationHandler struct {
	svc      *service.VerificationService
	products *service.ProductService
	logger   *zap.Logger
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(svc *service.VerificationService, products *service.ProductService, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{svc: svc, products: products, logger: logger}
}

// Register mounts the verification routes on the given router group.
func (h *VerificationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/products/:id/verifications", h.Verify)
	rg.GET("/products/:id/verifications", h.ListForProduct)
	rg.GET("/verifications", h.Logs)
}

// Verify handles POST /products/:id/verifications: scores an image hash and
// records the result against the product.
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req model.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Verify(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeServiceError(c, h.logger, "verify product", err)
		return
	}

	RecordVerification(result.IsAuthentic)
	RecordLedgerAppend()
	c.JSON(http.StatusCreated, result)
}

// ListForProduct handles GET /products/:id/verifications.
func (h *VerificationHandler) ListForProduct(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, "list verifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verifications": product.Verifications, "count": len(product.Verifications)})
}

// logEntry is one row of the verification log response.
type logEntry struct {
	ProductID string                   `json:"product_id"`
	Result    model.VerificationResult `json:"result"`
}

// Logs handles GET /verifications?start=&end=: returns every verification
// whose timestamp lies in [start, end], in the order they were recorded.
// start > end yields an empty list.
func (h *VerificationHandler) Logs(c *gin.Context) {
	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be an integer timestamp"})
		return
	}
	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be an integer timestamp"})
		return
	}

	entries, err := h.svc.Logs(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("query verification logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query verification logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": toLogEntries(entries), "count": len(entries)})
}

func toLogEntries(entries []verifyledger.Entry) []logEntry {
	out := make([]logEntry, len(entries))
	for i, e := range entries {
		out[i] = logEntry{ProductID: e.ProductID, Result: e.Result}
	}
	return out
}
