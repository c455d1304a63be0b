package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/repository"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/service"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for product registration and
// supply-chain events.
type ProductHandler struct {
	svc    *service.ProductService
	logger *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, logger: logger}
}

// Register mounts the product routes on the given router group.
func (h *ProductHandler) Register(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.POST("/:id/events", h.AddEvent)
		products.GET("/:id/events", h.ListEvents)
	}
}

// CreateProduct handles POST /products: registers a new product.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, "register product", err)
		return
	}

	RecordProductRegistered()
	c.JSON(http.StatusCreated, product)
}

// ListProducts handles GET /products: returns products in registration order.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	limit, offset := pagination(c)

	products, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	if products == nil {
		products = []*model.Product{}
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// GetProduct handles GET /products/:id: returns the full product record.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// AddEvent handles POST /products/:id/events: appends a supply-chain event.
func (h *ProductHandler) AddEvent(c *gin.Context) {
	var req model.AddEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.svc.AddEvent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, "add event", err)
		return
	}

	RecordEventAppended()
	c.JSON(http.StatusCreated, event)
}

// ListEvents handles GET /products/:id/events.
func (h *ProductHandler) ListEvents(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "list events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": product.Events, "count": len(product.Events)})
}

func (h *ProductHandler) writeError(c *gin.Context, op string, err error) {
	writeServiceError(c, h.logger, op, err)
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var valErr *model.ErrValidation
	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, repository.ErrDuplicateProduct):
		c.JSON(http.StatusConflict, gin.H{"error": "product already registered"})
	default:
		logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

// pagination reads ?limit= and ?offset=, clamping limit to (0, 200].
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
