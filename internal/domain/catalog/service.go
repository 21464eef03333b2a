// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/storage"
	"gorm.io/gorm"
)

// Catalog error taxonomy
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidSalePrice = errors.New("sale price must be lower than the regular price")
	ErrValidation       = errors.New("validation failed")
)

// Service handles product catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	blobs  storage.BlobStore
	log    *logrus.Logger
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config, blobs storage.BlobStore, log *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		blobs:  blobs,
		log:    log,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Price       int64  `json:"price" binding:"required,min=1"`
	CategoryID  uint   `json:"category_id" binding:"required"`
	ImagePath   string `json:"image_path"`
}

// UpdateProductRequest represents product update data; nil fields are left unchanged
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	SalePrice   *int64  `json:"sale_price"`
	OnSale      *bool   `json:"on_sale"`
	Available   *bool   `json:"is_available_for_purchase"`
	CategoryID  *uint   `json:"category_id"`
	ImagePath   *string `json:"image_path"`
}

// CreateProduct creates a catalog product
func (s *Service) CreateProduct(ctx context.Context, req *CreateProductRequest) (*Product, error) {
	if req.Name == "" || req.Price <= 0 {
		return nil, fmt.Errorf("%w: name and a positive price are required", ErrValidation)
	}

	var category Category
	if err := s.db.WithContext(ctx).First(&category, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	product := Product{
		Name:                   req.Name,
		Description:            req.Description,
		Price:                  req.Price,
		CategoryID:             req.CategoryID,
		ImagePath:              req.ImagePath,
		IsAvailableForPurchase: true,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"category":   category.Slug,
	}).Info("Product created")

	return &product, nil
}

// UpdateProduct applies a partial update, enforcing the sale price invariant
// at write time. Violating combinations are rejected, never stored.
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *UpdateProductRequest) (*Product, error) {
	var product Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	oldImage := product.ImagePath

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
		}
		product.Price = *req.Price
	}
	if req.SalePrice != nil {
		if *req.SalePrice <= 0 {
			product.SalePrice = nil
		} else {
			product.SalePrice = req.SalePrice
		}
	}
	if req.OnSale != nil {
		product.OnSale = *req.OnSale
	}
	if req.Available != nil {
		product.IsAvailableForPurchase = *req.Available
	}
	if req.CategoryID != nil {
		var category Category
		if err := s.db.WithContext(ctx).First(&category, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		product.CategoryID = *req.CategoryID
	}
	if req.ImagePath != nil {
		product.ImagePath = *req.ImagePath
	}

	// Invariant: sale price strictly below the regular price when the sale is on
	if product.OnSale && product.SalePrice != nil && *product.SalePrice >= product.Price {
		return nil, ErrInvalidSalePrice
	}

	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if req.ImagePath != nil && oldImage != "" && oldImage != product.ImagePath {
		if err := s.blobs.Delete(oldImage); err != nil {
			s.log.WithError(err).WithField("image", oldImage).Warn("Failed to delete replaced product image")
		}
	}

	return &product, nil
}

// SetSale turns a sale on or off for a product in one step
func (s *Service) SetSale(ctx context.Context, id uint, salePrice *int64, onSale bool) (*Product, error) {
	return s.UpdateProduct(ctx, id, &UpdateProductRequest{SalePrice: salePrice, OnSale: &onSale})
}

// DeleteProduct removes a product and its stored image
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	var product Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to load product: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if product.ImagePath != "" {
		if err := s.blobs.Delete(product.ImagePath); err != nil {
			s.log.WithError(err).WithField("image", product.ImagePath).Warn("Failed to delete product image")
		}
	}

	return nil
}

// GetProduct retrieves one product with its category
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).Preload("Category").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// ListProducts returns storefront-visible products: available for purchase
// and belonging to an active category
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Joins("JOIN categories ON categories.id = products.category_id AND categories.is_active = ? AND categories.deleted_at IS NULL", true).
		Where("products.is_available_for_purchase = ?", true).
		Preload("Category").
		Order("products.name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ListProductsByCategory returns visible products for one category slug
func (s *Service) ListProductsByCategory(ctx context.Context, slug string) ([]Product, error) {
	var category Category
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	var products []Product
	err = s.db.WithContext(ctx).
		Where("category_id = ? AND is_available_for_purchase = ?", category.ID, true).
		Preload("Category").
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetSaleProducts returns visible products with an active sale,
// biggest discount first
func (s *Service) GetSaleProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Joins("JOIN categories ON categories.id = products.category_id AND categories.is_active = ? AND categories.deleted_at IS NULL", true).
		Where("products.on_sale = ? AND products.sale_price IS NOT NULL AND products.is_available_for_purchase = ?", true, true).
		Preload("Category").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sale products: %w", err)
	}

	sort.SliceStable(products, func(i, j int) bool {
		di, dj := products[i].DiscountPercent(), products[j].DiscountPercent()
		if di != dj {
			return di > dj
		}
		return products[i].Name < products[j].Name
	})

	return products, nil
}
