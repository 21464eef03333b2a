// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// CheckoutHandler converts carts into orders
type CheckoutHandler struct {
	orderService *order.Service
	config       *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(orderService *order.Service, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		orderService: orderService,
		config:       cfg,
	}
}

// Checkout handles POST /checkout. The cart comes from the token cookie, the
// idempotency key from the X-Idempotency-Key header when the client sends one.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	token, err := c.Cookie(h.config.Cart.CookieName)
	if err != nil {
		token = ""
	}

	var contact order.ContactDetails
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	idempotencyKey := c.GetHeader("X-Idempotency-Key")

	orders, err := h.orderService.PlaceOrder(c.Request.Context(), token, contact, idempotencyKey)
	if err != nil {
		h.respondOrderError(c, err)
		return
	}

	// The cart no longer exists; retire the token
	c.SetCookie(h.config.Cart.CookieName, "", -1, "/", "", h.config.IsProduction(), true)

	var total int64
	for _, o := range orders {
		total += o.PricePaid
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data": gin.H{
			"orders": orders,
			"total":  total,
		},
	})
}

// EmailHistoryRequest represents the order history request payload
type EmailHistoryRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// EmailOrderHistory handles POST /orders/email-history. The response never
// reveals whether the email has orders.
func (h *CheckoutHandler) EmailOrderHistory(c *gin.Context) {
	var req EmailHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.orderService.EmailOrderHistory(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "There was an error sending your email",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Check your email to view your order history",
	})
}

// respondOrderError maps order service errors to HTTP responses
func (h *CheckoutHandler) respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Cart is empty",
		})
	case errors.Is(err, order.ErrProductGone):
		c.JSON(http.StatusConflict, gin.H{
			"error": "A product in your cart is no longer available",
		})
	case errors.Is(err, order.ErrDuplicateCheckout):
		c.JSON(http.StatusConflict, gin.H{
			"error": "This checkout has already been processed",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to place order",
		})
	}
}
