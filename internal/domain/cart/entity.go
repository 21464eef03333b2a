// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is a transient container addressed by the opaque token handed to the
// client. It exists from the first mutation until checkout converts it into
// orders.
type Cart struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem is one product line within a cart. A cart holds at most one row
// per product; quantity accumulates instead of duplicating rows.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    string    `gorm:"not null;size:36;index;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// BeforeCreate assigns the opaque cart token
func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
