// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/storage"
	"gorm.io/gorm"
)

// Dependencies carries the shared collaborators the route handlers need
type Dependencies struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Config      *config.Config
	Log         *logrus.Logger
	Blobs       storage.BlobStore
	Notifier    order.Notifier
	Publisher   order.Publisher
}

// SetupRoutes wires every endpoint under the given group
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cartService := cart.NewService(deps.DB, deps.RedisClient, deps.Config, deps.Log)
	orderService := order.NewService(deps.DB, deps.RedisClient, deps.Config, cartService, deps.Notifier, deps.Publisher, deps.Log)
	paymentService := payment.NewService(deps.DB, deps.Config, deps.Notifier, deps.Log)
	catalogService := catalog.NewService(deps.DB, deps.Config, deps.Blobs, deps.Log)

	authHandler := handlers.NewAuthHandler(deps.Config, deps.Log)
	productHandler := handlers.NewProductHandler(deps.DB, deps.Config, deps.Blobs, deps.Log)
	categoryHandler := handlers.NewCategoryHandler(deps.DB, deps.Config, deps.Blobs, deps.Log)
	cartHandler := handlers.NewCartHandler(deps.DB, deps.RedisClient, deps.Config, deps.Log)
	checkoutHandler := handlers.NewCheckoutHandler(orderService, deps.Config)
	orderHandler := handlers.NewOrderHandler(orderService, catalogService, deps.Config)
	userHandler := handlers.NewUserHandler(deps.DB, orderService, deps.Config)
	webhookHandler := handlers.NewWebhookHandler(paymentService, deps.Config, deps.Log)

	// Public auth
	auth := rg.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// Public storefront
	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/sale", productHandler.GetSaleProducts)
		products.GET("/:id", productHandler.GetProduct)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", categoryHandler.GetCategories)
		categories.GET("/:slug", categoryHandler.GetCategory)
		categories.GET("/:slug/products", categoryHandler.GetCategoryProducts)
	}

	// Cart, addressed by the token cookie
	cartRoutes := rg.Group("/cart")
	{
		cartRoutes.GET("", cartHandler.GetCart)
		cartRoutes.POST("/items", cartHandler.AddToCart)
		cartRoutes.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartRoutes.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartRoutes.DELETE("", cartHandler.ClearCart)
	}

	// Checkout and order history
	rg.POST("/checkout", checkoutHandler.Checkout)
	rg.POST("/orders/email-history", checkoutHandler.EmailOrderHistory)

	// Fulfillment downloads
	rg.GET("/downloads/:token", orderHandler.Download)

	// Payment provider callbacks
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/payment", webhookHandler.HandlePaymentWebhook)
	}

	// Admin API
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.Config))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.POST("/products/:id/image", productHandler.UploadProductImage)
		admin.PATCH("/products/:id/sale", productHandler.SetSale)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)

		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		admin.GET("/orders", orderHandler.GetOrders)
		admin.GET("/orders/:id", orderHandler.GetOrder)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
		admin.DELETE("/orders/:id", orderHandler.DeleteOrder)

		admin.GET("/users", userHandler.GetUsers)
		admin.GET("/users/:email/orders", userHandler.GetUserOrders)
	}
}
