// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Status represents the order fulfillment status
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// KnownStatuses lists every valid status value
var KnownStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// IsKnown reports whether the status is one of the defined values
func (s Status) IsKnown() bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order is one purchased line item. PricePaid is frozen at creation time:
// later catalog price changes never alter an existing order's value.
type Order struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ProductID       uint      `gorm:"not null;index" json:"product_id"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	PricePaid       int64     `gorm:"not null" json:"price_paid"` // Effective unit price * quantity at checkout
	ShippingDetails string    `gorm:"type:text" json:"shipping_details"`
	Status          Status    `gorm:"not null;size:20" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relationships
	User    user.User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Product catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// DownloadVerification is a short-lived fulfillment token letting a buyer
// retrieve a purchased product
type DownloadVerification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string                { return "orders" }
func (DownloadVerification) TableName() string { return "download_verifications" }

// BeforeCreate assigns the opaque token id
func (d *DownloadVerification) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// IsExpired reports whether the token is past its validity window
func (d *DownloadVerification) IsExpired() bool {
	return time.Now().After(d.ExpiresAt)
}

// MintDownloadVerification creates a fulfillment token on the given handle,
// which may be a transaction
func MintDownloadVerification(tx *gorm.DB, productID uint, ttl time.Duration) (*DownloadVerification, error) {
	dv := DownloadVerification{
		ProductID: productID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := tx.Create(&dv).Error; err != nil {
		return nil, err
	}
	return &dv, nil
}
