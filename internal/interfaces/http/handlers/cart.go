// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"gorm.io/gorm"
)

// CartHandler handles cart endpoints. The cart is addressed by an opaque
// token stored in an httpOnly cookie; a stale or missing token reads as an
// empty cart.
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cart.NewService(db, redisClient, cfg, log),
		config:      cfg,
	}
}

// AddToCartRequest represents the add-to-cart payload. Quantity defaults to
// one when omitted.
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// UpdateCartItemRequest represents a quantity overwrite
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	token := h.getCartToken(c)

	contents, err := h.cartService.GetCartContents(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    contents,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	token := h.getCartToken(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	resolved, err := h.cartService.AddItem(c.Request.Context(), token, req.ProductID, req.Quantity)
	if err != nil {
		h.respondCartError(c, err)
		return
	}

	// A freshly created cart needs its token re-issued to the client
	if resolved.ID != token {
		h.setCartToken(c, resolved.ID)
	}

	contents, err := h.cartService.GetCartContents(c.Request.Context(), resolved.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    contents,
	})
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	token := h.getCartToken(c)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.cartService.UpdateItemQuantity(c.Request.Context(), token, uint(productID), req.Quantity); err != nil {
		h.respondCartError(c, err)
		return
	}

	contents, err := h.cartService.GetCartContents(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    contents,
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	token := h.getCartToken(c)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), token, uint(productID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to remove item from cart",
		})
		return
	}

	contents, err := h.cartService.GetCartContents(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    contents,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	token := h.getCartToken(c)

	if err := h.cartService.ClearCart(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear cart",
		})
		return
	}

	h.clearCartToken(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// respondCartError maps cart service errors to HTTP responses
func (h *CartHandler) respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrProductUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Product not found or not available for purchase",
		})
	case errors.Is(err, cart.ErrCartNotFound), errors.Is(err, cart.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, cart.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update cart",
		})
	}
}

func (h *CartHandler) getCartToken(c *gin.Context) string {
	token, err := c.Cookie(h.config.Cart.CookieName)
	if err != nil {
		return ""
	}
	return token
}

func (h *CartHandler) setCartToken(c *gin.Context, token string) {
	c.SetCookie(
		h.config.Cart.CookieName,
		token,
		int(h.config.Cart.TokenTTL.Seconds()),
		"/",
		"",
		h.config.IsProduction(),
		true,
	)
}

func (h *CartHandler) clearCartToken(c *gin.Context) {
	c.SetCookie(h.config.Cart.CookieName, "", -1, "/", "", h.config.IsProduction(), true)
}
