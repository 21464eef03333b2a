// internal/interfaces/http/handlers/product.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/storage"
	"gorm.io/gorm"
)

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	catalogService *catalog.Service
	blobs          storage.BlobStore
	config         *config.Config
}

// NewProductHandler creates a new product handler
func NewProductHandler(db *gorm.DB, cfg *config.Config, blobs storage.BlobStore, log *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalog.NewService(db, cfg, blobs, log),
		blobs:          blobs,
		config:         cfg,
	}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve products",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data":    products,
	})
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), uint(id))
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    product,
	})
}

// GetSaleProducts handles GET /products/sale
func (h *ProductHandler) GetSaleProducts(c *gin.Context) {
	products, err := h.catalogService.GetSaleProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve sale products",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale products retrieved successfully",
		"data":    products,
	})
}

// CreateProduct handles POST /admin/products (multipart form)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	price, err := strconv.ParseInt(c.PostForm("price"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid price",
		})
		return
	}

	categoryID, err := strconv.ParseUint(c.PostForm("category_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid category ID",
		})
		return
	}

	req := catalog.CreateProductRequest{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		CategoryID:  uint(categoryID),
	}

	if imagePath, ok := h.storeUploadedImage(c, "products"); ok {
		req.ImagePath = imagePath
	} else if c.IsAborted() {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"data":    product,
	})
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	var req catalog.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), uint(id), &req)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"data":    product,
	})
}

// UploadProductImage handles POST /admin/products/:id/image
func (h *ProductHandler) UploadProductImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	imagePath, ok := h.storeUploadedImage(c, "products")
	if !ok {
		if !c.IsAborted() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Image file is required",
			})
		}
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), uint(id), &catalog.UpdateProductRequest{
		ImagePath: &imagePath,
	})
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product image updated successfully",
		"data":    product,
	})
}

// SetSaleRequest represents the sale toggle payload
type SetSaleRequest struct {
	SalePrice *int64 `json:"sale_price"`
	OnSale    bool   `json:"on_sale"`
}

// SetSale handles PATCH /admin/products/:id/sale
func (h *ProductHandler) SetSale(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	var req SetSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.SetSale(c.Request.Context(), uint(id), req.SalePrice, req.OnSale)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product sale updated successfully",
		"data":    product,
	})
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), uint(id)); err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// storeUploadedImage saves the optional "image" form file to blob storage.
// The second return reports whether an image was stored; on read failures the
// request is aborted with a response already written.
func (h *ProductHandler) storeUploadedImage(c *gin.Context, folder string) (string, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read image file",
		})
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read image file",
		})
		return "", false
	}

	ref, err := h.blobs.Store(data, folder, fileHeader.Filename)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store image",
		})
		return "", false
	}

	return ref, true
}

// respondCatalogError maps catalog service errors to HTTP responses
func (h *ProductHandler) respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, catalog.ErrInvalidSalePrice), errors.Is(err, catalog.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Catalog operation failed",
		})
	}
}
