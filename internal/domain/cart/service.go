// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cart error taxonomy. All are client-correctable conditions, not server
// faults; handlers translate them to 4xx responses.
var (
	ErrProductUnavailable = errors.New("product not found or not available for purchase")
	ErrCartNotFound       = errors.New("cart not found")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	log         *logrus.Logger
}

// NewService creates a new cart service. redisClient may be nil; cache
// invalidation then becomes a no-op.
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		log:         log,
	}
}

// Line is one cart line joined to live product data. EffectiveUnitPrice
// follows the catalog until checkout freezes it into an order.
type Line struct {
	ProductID          uint   `json:"product_id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	ImagePath          string `json:"image_path"`
	UnitPrice          int64  `json:"unit_price"`
	EffectiveUnitPrice int64  `json:"effective_unit_price"`
	OnSale             bool   `json:"on_sale"`
	Quantity           int    `json:"quantity"`
}

// Totals represents derived cart totals
type Totals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique items
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	Subtotal      int64 `json:"sub_total"`      // Sum of effective price * quantity
}

// Contents represents a cart with its lines and summary
type Contents struct {
	CartID string `json:"cart_id"`
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// GetOrCreateCart resolves the cart for a token, creating one when the token
// is absent or stale. A missing token is an empty cart, never a fault. The
// returned flag tells the boundary to re-issue the client token.
func (s *Service) GetOrCreateCart(ctx context.Context, token string) (*Cart, bool, error) {
	if token != "" {
		var existing Cart
		err := s.db.WithContext(ctx).First(&existing, "id = ?", token).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to resolve cart: %w", err)
		}
	}

	newCart := Cart{}
	if err := s.db.WithContext(ctx).Create(&newCart).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create cart: %w", err)
	}

	s.log.WithField("cart_id", newCart.ID).Debug("Cart created")
	return &newCart, true, nil
}

// AddItem adds quantity of a product to the cart, accumulating onto an
// existing line. The availability gate runs before any cart mutation so an
// invalid product leaves no partial state. Returns the cart so a freshly
// minted token can reach the client.
func (s *Service) AddItem(ctx context.Context, token string, productID uint, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var product catalog.Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_available_for_purchase = ?", productID, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, fmt.Errorf("failed to resolve product: %w", err)
	}

	resolved, _, err := s.GetOrCreateCart(ctx, token)
	if err != nil {
		return nil, err
	}

	// Single upsert against the unique (cart_id, product_id) index:
	// concurrent adds of the same product net one row with the summed
	// quantity, with no insert/update race to lose.
	item := CartItem{
		CartID:    resolved.ID,
		ProductID: productID,
		Quantity:  quantity,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}

	s.invalidateCartCache(ctx, resolved.ID)
	return resolved, nil
}

// UpdateItemQuantity overwrites a line's quantity. A quantity of zero or
// below deletes the line; non-positive quantities are never persisted. No
// upper bound is enforced here: the service stays a pure data operation and
// any per-order cap belongs to the storefront UI.
func (s *Service) UpdateItemQuantity(ctx context.Context, token string, productID uint, quantity int) error {
	var resolved Cart
	err := s.db.WithContext(ctx).First(&resolved, "id = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartNotFound
		}
		return fmt.Errorf("failed to resolve cart: %w", err)
	}

	var item CartItem
	err = s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", resolved.ID, productID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to resolve cart item: %w", err)
	}

	if quantity <= 0 {
		if err := s.db.WithContext(ctx).Delete(&item).Error; err != nil {
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
	} else {
		if err := s.db.WithContext(ctx).Model(&item).Update("quantity", quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
	}

	s.invalidateCartCache(ctx, resolved.ID)
	return nil
}

// RemoveItem deletes a line from the cart. Removing an absent item, or
// removing from an absent cart, is a no-op rather than an error.
func (s *Service) RemoveItem(ctx context.Context, token string, productID uint) error {
	err := s.UpdateItemQuantity(ctx, token, productID, 0)
	if errors.Is(err, ErrCartNotFound) || errors.Is(err, ErrItemNotFound) {
		return nil
	}
	return err
}

// GetCartContents joins cart lines to current product data. A missing cart
// reads as empty. Lines whose product has since been deleted are orphans:
// they are skipped, never resurrected with stale data.
func (s *Service) GetCartContents(ctx context.Context, token string) (*Contents, error) {
	contents := &Contents{CartID: token, Lines: []Line{}}
	if token == "" {
		return contents, nil
	}

	var items []CartItem
	err := s.db.WithContext(ctx).
		Where("cart_id = ?", token).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve cart items: %w", err)
	}

	for _, item := range items {
		var product catalog.Product
		err := s.db.WithContext(ctx).First(&product, item.ProductID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.WithFields(logrus.Fields{
					"cart_id":    item.CartID,
					"product_id": item.ProductID,
				}).Warn("Skipping orphaned cart item")
				continue
			}
			return nil, fmt.Errorf("failed to load product: %w", err)
		}

		contents.Lines = append(contents.Lines, Line{
			ProductID:          product.ID,
			Name:               product.Name,
			Description:        product.Description,
			ImagePath:          product.ImagePath,
			UnitPrice:          product.Price,
			EffectiveUnitPrice: product.EffectivePrice(),
			OnSale:             product.IsEffectivelySale(),
			Quantity:           item.Quantity,
		})
	}

	contents.Totals = calculateTotals(contents.Lines)
	return contents, nil
}

// ClearCart removes the cart and all its lines
func (s *Service) ClearCart(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", token).Delete(&CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Cart{}, "id = ?", token).Error
	})
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.invalidateCartCache(ctx, token)
	return nil
}

// invalidateCartCache signals the presentation layer that cart-bearing pages
// are stale. Failures are logged, never surfaced: the cache is advisory.
func (s *Service) invalidateCartCache(ctx context.Context, cartID string) {
	if s.redisClient == nil {
		return
	}
	key := fmt.Sprintf("cache:cart:%s", cartID)
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		s.log.WithError(err).WithField("cart_id", cartID).Warn("Failed to invalidate cart cache")
	}
}

func calculateTotals(lines []Line) Totals {
	var totals Totals
	totals.ItemCount = len(lines)
	for _, line := range lines {
		totals.TotalQuantity += line.Quantity
		totals.Subtotal += line.EffectiveUnitPrice * int64(line.Quantity)
	}
	return totals
}
