// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// OrderHandler handles admin order management and fulfillment downloads
type OrderHandler struct {
	orderService   *order.Service
	catalogService *catalog.Service
	config         *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, catalogService *catalog.Service, cfg *config.Config) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		catalogService: catalogService,
		config:         cfg,
	}
}

// GetOrders handles GET /admin/orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	orders, err := h.orderService.GetOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    orders,
	})
}

// GetOrder handles GET /admin/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), uint(id))
	if err != nil {
		h.respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// UpdateStatusRequest represents the status overwrite payload
type UpdateStatusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.orderService.UpdateOrderStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		h.respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}

// DeleteOrder handles DELETE /admin/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), uint(id)); err != nil {
		h.respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order deleted successfully",
	})
}

// Download handles GET /downloads/:token. Expired and unknown tokens are
// indistinguishable to the caller.
func (h *OrderHandler) Download(c *gin.Context) {
	dv, err := h.orderService.GetDownloadVerification(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Download link is invalid or has expired",
		})
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), dv.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Download link is invalid or has expired",
		})
		return
	}

	if product.ImagePath == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No file attached to this product",
		})
		return
	}

	c.Redirect(http.StatusFound, product.ImagePath)
}

// respondOrderError maps order service errors to HTTP responses
func (h *OrderHandler) respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, order.ErrUnknownStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Unknown order status",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Order operation failed",
		})
	}
}
