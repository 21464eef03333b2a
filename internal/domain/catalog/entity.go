// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a purchasable catalog item
type Product struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"not null;size:255" json:"name"`
	Description            string         `gorm:"type:text" json:"description"`
	Price                  int64          `gorm:"not null" json:"price"` // Smallest currency unit
	SalePrice              *int64         `json:"sale_price,omitempty"`
	OnSale                 bool           `json:"on_sale"`
	IsAvailableForPurchase bool           `gorm:"index" json:"is_available_for_purchase"`
	CategoryID             uint           `gorm:"not null;index" json:"category_id"`
	ImagePath              string         `gorm:"size:500" json:"image_path"` // Opaque blob store reference
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
}

// Category represents a product classification
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	ImagePath   string         `gorm:"size:500" json:"image_path"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }

// IsEffectivelySale reports whether the sale price applies right now.
// Both the flag and a sale price must be present.
func (p *Product) IsEffectivelySale() bool {
	return p.OnSale && p.SalePrice != nil
}

// EffectivePrice returns the price a buyer pays for one unit right now
func (p *Product) EffectivePrice() int64 {
	if p.IsEffectivelySale() {
		return *p.SalePrice
	}
	return p.Price
}

// DiscountPercent returns the active discount as a whole percentage
func (p *Product) DiscountPercent() int {
	if !p.IsEffectivelySale() || p.Price == 0 {
		return 0
	}
	return int(((p.Price - *p.SalePrice) * 100) / p.Price)
}
