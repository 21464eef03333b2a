// internal/interfaces/http/handlers/user.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// UserHandler handles admin views over the buyer directory
type UserHandler struct {
	userService  *user.Service
	orderService *order.Service
	config       *config.Config
}

// NewUserHandler creates a new user handler
func NewUserHandler(db *gorm.DB, orderService *order.Service, cfg *config.Config) *UserHandler {
	return &UserHandler{
		userService:  user.NewService(db),
		orderService: orderService,
		config:       cfg,
	}
}

// GetUsers handles GET /admin/users
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users retrieved successfully",
		"data":    users,
	})
}

// GetUserOrders handles GET /admin/users/:email/orders
func (h *UserHandler) GetUserOrders(c *gin.Context) {
	orders, err := h.orderService.GetUserOrders(c.Request.Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve user orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User orders retrieved successfully",
		"data":    orders,
	})
}
