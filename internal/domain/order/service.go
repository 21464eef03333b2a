// internal/domain/order/service.go
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Order error taxonomy
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrProductGone       = errors.New("product no longer available for purchase")
	ErrDuplicateCheckout = errors.New("checkout already processed for this key")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// downloadTokenTTL is the validity window for fulfillment tokens minted when
// mailing order history
const downloadTokenTTL = 24 * time.Hour

// Notifier dispatches buyer-facing mail. Dispatch happens strictly after
// commit and never affects the order outcome.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email string, orders []Order) error
	SendOrderHistory(ctx context.Context, email string, entries []HistoryEntry) error
}

// Publisher emits order lifecycle events to the stream
type Publisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

// ContactDetails is the buyer-supplied shipping snapshot captured at checkout
type ContactDetails struct {
	Email         string `json:"email" binding:"required,email"`
	FullName      string `json:"full_name" binding:"required"`
	PhoneNumber   string `json:"phone_number"`
	Province      string `json:"province"`
	City          string `json:"city"`
	StreetAddress string `json:"street_address"`
}

// HistoryEntry pairs a past order with a freshly minted fulfillment token
type HistoryEntry struct {
	Order         Order
	DownloadToken string
	ExpiresAt     time.Time
}

// OrderCreatedEvent is the payload published to the order stream after a
// successful checkout
type OrderCreatedEvent struct {
	OrderIDs  []uint    `json:"order_ids"`
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Service handles order business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	cartService *cart.Service
	notifier    Notifier
	publisher   Publisher
	log         *logrus.Logger
}

// NewService creates a new order service. notifier, publisher and redisClient
// may be nil; the corresponding side effects then become no-ops.
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, cartService *cart.Service, notifier Notifier, publisher Publisher, log *logrus.Logger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		cartService: cartService,
		notifier:    notifier,
		publisher:   publisher,
		log:         log,
	}
}

// PlaceOrder converts the cart behind token into orders inside a single
// transaction: every product is re-resolved against the live catalog, the
// buyer is upserted by email, one order row is written per cart line with its
// price frozen, and the cart is deleted. Any failure rolls the whole set back
// and leaves the cart intact.
//
// idempotencyKey is optional; a repeated key within the retention window is
// rejected with ErrDuplicateCheckout before any work happens.
func (s *Service) PlaceOrder(ctx context.Context, token string, contact ContactDetails, idempotencyKey string) ([]Order, error) {
	if strings.TrimSpace(contact.Email) == "" {
		return nil, fmt.Errorf("email is required")
	}

	reserved, err := s.reserveIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}

	contents, err := s.cartService.GetCartContents(ctx, token)
	if err != nil {
		s.releaseIdempotencyKey(ctx, reserved)
		return nil, err
	}
	if len(contents.Lines) == 0 {
		s.releaseIdempotencyKey(ctx, reserved)
		return nil, ErrEmptyCart
	}

	snapshot, err := json.Marshal(contact)
	if err != nil {
		s.releaseIdempotencyKey(ctx, reserved)
		return nil, fmt.Errorf("failed to serialize shipping details: %w", err)
	}

	txCtx, cancel := context.WithTimeout(ctx, s.config.Checkout.TransactionTimeout)
	defer cancel()

	var orders []Order
	var buyer *user.User
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		buyer, err = user.FindOrCreate(tx, contact.Email)
		if err != nil {
			return err
		}

		for _, line := range contents.Lines {
			// Re-resolve at commit time: a product pulled from sale
			// between cart and checkout fails the whole order.
			var product catalog.Product
			err := tx.Where("id = ? AND is_available_for_purchase = ?", line.ProductID, true).
				First(&product).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductGone
				}
				return fmt.Errorf("failed to resolve product %d: %w", line.ProductID, err)
			}

			o := Order{
				UserID:          buyer.ID,
				ProductID:       product.ID,
				Quantity:        line.Quantity,
				PricePaid:       product.EffectivePrice() * int64(line.Quantity),
				ShippingDetails: string(snapshot),
				Status:          StatusPending,
			}
			if err := tx.Create(&o).Error; err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}
			// Carry the resolved product so the confirmation email can
			// render names without a re-read
			o.Product = product
			orders = append(orders, o)
		}

		if err := tx.Where("cart_id = ?", contents.CartID).Delete(&cart.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if err := tx.Delete(&cart.Cart{}, "id = ?", contents.CartID).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
	if err != nil {
		s.releaseIdempotencyKey(ctx, reserved)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": buyer.ID,
		"orders":  len(orders),
		"total":   contents.Totals.Subtotal,
	}).Info("Order placed")

	s.afterCheckout(ctx, buyer, contact.Email, contents.CartID, orders)
	return orders, nil
}

// afterCheckout runs the post-commit side effects. All of them are
// best-effort: the orders are already durable.
func (s *Service) afterCheckout(ctx context.Context, buyer *user.User, email, cartID string, orders []Order) {
	s.invalidateCartCache(ctx, cartID)

	if s.notifier != nil {
		if err := s.notifier.SendOrderConfirmation(ctx, email, orders); err != nil {
			s.log.WithError(err).WithField("email", email).Warn("Failed to send order confirmation")
		}
	}

	if s.publisher != nil {
		event := OrderCreatedEvent{
			UserID:    buyer.ID,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		for _, o := range orders {
			event.OrderIDs = append(event.OrderIDs, o.ID)
			event.Total += o.PricePaid
		}
		if err := s.publisher.Publish(ctx, fmt.Sprintf("user-%d", buyer.ID), event); err != nil {
			s.log.WithError(err).Warn("Failed to publish order created event")
		}
	}
}

// GetOrder retrieves a single order with its product and buyer
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("User").
		First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrders returns all orders newest first (admin view)
func (s *Service) GetOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("User").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetUserOrders returns the order history for an email address, newest first
func (s *Service) GetUserOrders(ctx context.Context, email string) ([]Order, error) {
	buyer, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var orders []Order
	err = s.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", buyer.ID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus overwrites an order's status. Any known status may
// replace any other; the fulfillment flow is operator-driven and transitions
// are deliberately unconstrained.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, status Status) (*Order, error) {
	if !status.IsKnown() {
		return nil, ErrUnknownStatus
	}

	var o Order
	err := s.db.WithContext(ctx).First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&o).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"status":   status,
	}).Info("Order status updated")
	return &o, nil
}

// DeleteOrder hard-deletes an order (admin operation)
func (s *Service) DeleteOrder(ctx context.Context, orderID uint) error {
	res := s.db.WithContext(ctx).Delete(&Order{}, orderID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// EmailOrderHistory mints a fulfillment token per past order and mails the
// buyer their history. An unknown email reports success to the caller so the
// endpoint cannot be used to probe which addresses have accounts.
func (s *Service) EmailOrderHistory(ctx context.Context, email string) error {
	buyer, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil
		}
		return err
	}

	var orders []Order
	err = s.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", buyer.ID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return fmt.Errorf("failed to list user orders: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(orders))
	for _, o := range orders {
		dv, err := MintDownloadVerification(s.db.WithContext(ctx), o.ProductID, downloadTokenTTL)
		if err != nil {
			return fmt.Errorf("failed to mint download token: %w", err)
		}
		entries = append(entries, HistoryEntry{
			Order:         o,
			DownloadToken: dv.ID,
			ExpiresAt:     dv.ExpiresAt,
		})
	}

	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.SendOrderHistory(ctx, buyer.Email, entries); err != nil {
		return fmt.Errorf("failed to send order history: %w", err)
	}
	return nil
}

// GetDownloadVerification resolves a fulfillment token, rejecting expired or
// unknown ones identically
func (s *Service) GetDownloadVerification(ctx context.Context, tokenID string) (*DownloadVerification, error) {
	var dv DownloadVerification
	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", tokenID, time.Now().UTC()).
		First(&dv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to resolve download token: %w", err)
	}
	return &dv, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*user.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	var buyer user.User
	err := s.db.WithContext(ctx).Where("email = ?", normalized).First(&buyer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &buyer, nil
}

// reserveIdempotencyKey claims the key with SETNX. Returns the redis key to
// release on failure, or "" when no reservation was made.
func (s *Service) reserveIdempotencyKey(ctx context.Context, key string) (string, error) {
	if key == "" || s.redisClient == nil {
		return "", nil
	}

	redisKey := fmt.Sprintf("checkout:idempotency:%s", key)
	ok, err := s.redisClient.SetNX(ctx, redisKey, time.Now().UTC().Format(time.RFC3339), s.config.Checkout.IdempotencyTTL).Result()
	if err != nil {
		// Redis being down must not block checkout; skip the guard.
		s.log.WithError(err).Warn("Idempotency reservation unavailable, proceeding without it")
		return "", nil
	}
	if !ok {
		return "", ErrDuplicateCheckout
	}
	return redisKey, nil
}

// releaseIdempotencyKey frees a reservation after a failed checkout so the
// client can retry with the same key
func (s *Service) releaseIdempotencyKey(ctx context.Context, redisKey string) {
	if redisKey == "" || s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, redisKey).Err(); err != nil {
		s.log.WithError(err).Warn("Failed to release idempotency key")
	}
}

// invalidateCartCache mirrors the cart service's advisory cache signal for
// pages keyed by the now-deleted cart
func (s *Service) invalidateCartCache(ctx context.Context, cartID string) {
	if s.redisClient == nil || cartID == "" {
		return
	}
	key := fmt.Sprintf("cache:cart:%s", cartID)
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		s.log.WithError(err).WithField("cart_id", cartID).Warn("Failed to invalidate cart cache")
	}
}
