// internal/domain/catalog/category_service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/storage"
	"gorm.io/gorm"
)

var (
	// ErrCategoryInUse is returned when deleting a category that still classifies products
	ErrCategoryInUse = errors.New("category still has products")
	// ErrSlugTaken is returned when a derived slug collides with an existing category
	ErrSlugTaken = errors.New("category slug already exists")
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// CategoryService handles category management
type CategoryService struct {
	db     *gorm.DB
	config *config.Config
	blobs  storage.BlobStore
	log    *logrus.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, cfg *config.Config, blobs storage.BlobStore, log *logrus.Logger) *CategoryService {
	return &CategoryService{
		db:     db,
		config: cfg,
		blobs:  blobs,
		log:    log,
	}
}

// CreateCategoryRequest represents category creation data
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
}

// UpdateCategoryRequest represents category update data
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImagePath   *string `json:"image_path"`
	IsActive    *bool   `json:"is_active"`
}

// Slugify derives a URL-safe slug from a category name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// CreateCategory creates a category with a derived, unique slug
func (s *CategoryService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*Category, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	slug := Slugify(req.Name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name must contain at least one alphanumeric character", ErrValidation)
	}

	var existing Category
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
	if err == nil {
		return nil, ErrSlugTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	category := Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		ImagePath:   req.ImagePath,
		IsActive:    true,
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.log.WithField("slug", slug).Info("Category created")
	return &category, nil
}

// UpdateCategory applies a partial update. The slug follows a name change.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uint, req *UpdateCategoryRequest) (*Category, error) {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	oldImage := category.ImagePath

	if req.Name != nil && *req.Name != category.Name {
		slug := Slugify(*req.Name)
		if slug == "" {
			return nil, fmt.Errorf("%w: name must contain at least one alphanumeric character", ErrValidation)
		}
		var existing Category
		err := s.db.WithContext(ctx).Where("slug = ? AND id <> ?", slug, id).First(&existing).Error
		if err == nil {
			return nil, ErrSlugTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		category.Name = *req.Name
		category.Slug = slug
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.ImagePath != nil {
		category.ImagePath = *req.ImagePath
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	if req.ImagePath != nil && oldImage != "" && oldImage != category.ImagePath {
		if err := s.blobs.Delete(oldImage); err != nil {
			s.log.WithError(err).WithField("image", oldImage).Warn("Failed to delete replaced category image")
		}
	}

	return &category, nil
}

// DeleteCategory removes a category that no longer classifies any product
func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to load category: %w", err)
	}

	var productCount int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if productCount > 0 {
		return ErrCategoryInUse
	}

	if err := s.db.WithContext(ctx).Delete(&category).Error; err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if category.ImagePath != "" {
		if err := s.blobs.Delete(category.ImagePath); err != nil {
			s.log.WithError(err).WithField("image", category.ImagePath).Warn("Failed to delete category image")
		}
	}

	return nil
}

// ListCategories returns categories ordered by name; activeOnly limits the
// result to storefront-visible ones
func (s *CategoryService) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var categories []Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug resolves one category by its slug
func (s *CategoryService) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to retrieve category: %w", err)
	}
	return &category, nil
}
