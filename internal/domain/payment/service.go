// internal/domain/payment/service.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Payment error taxonomy
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownProduct   = errors.New("charge references an unknown product")
	ErrMissingEmail     = errors.New("charge carries no buyer email")
)

// downloadTokenTTL matches the window granted on the checkout path
const downloadTokenTTL = 24 * time.Hour

// CapturedCharge is the normalized payload of a successful external payment
// capture
type CapturedCharge struct {
	ProductID  uint   `json:"product_id"`
	Email      string `json:"email"`
	AmountPaid int64  `json:"amount_paid"`
	ChargeID   string `json:"charge_id"`
}

// Receipt is the durable outcome of recording a captured charge
type Receipt struct {
	Order         order.Order
	DownloadToken string
	ExpiresAt     time.Time
}

// Service records orders originating from the payment provider's capture
// webhook rather than the interactive checkout
type Service struct {
	db       *gorm.DB
	config   *config.Config
	notifier order.Notifier
	log      *logrus.Logger
}

// NewService creates a new payment service. notifier may be nil.
func NewService(db *gorm.DB, cfg *config.Config, notifier order.Notifier, log *logrus.Logger) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		notifier: notifier,
		log:      log,
	}
}

// VerifySignature checks the webhook body against its HMAC-SHA256 signature
// header. An empty configured secret rejects everything.
func (s *Service) VerifySignature(body []byte, signature string) error {
	secret := s.config.External.Stripe.WebhookSecret
	if secret == "" {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	provided := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrInvalidSignature
	}
	return nil
}

// RecordCapturedCharge writes the buyer, the order and its fulfillment token
// in one transaction. The price paid is whatever the provider captured, not
// the current catalog price. The receipt email is sent after commit and its
// failure never surfaces to the provider.
func (s *Service) RecordCapturedCharge(ctx context.Context, charge CapturedCharge) (*Receipt, error) {
	if strings.TrimSpace(charge.Email) == "" {
		return nil, ErrMissingEmail
	}

	var receipt Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Existence only: a product pulled from sale can still be paid
		// for if the provider captured the charge.
		var product catalog.Product
		if err := tx.First(&product, charge.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownProduct
			}
			return fmt.Errorf("failed to resolve product: %w", err)
		}

		buyer, err := user.FindOrCreate(tx, charge.Email)
		if err != nil {
			return err
		}

		o := order.Order{
			UserID:    buyer.ID,
			ProductID: product.ID,
			Quantity:  1,
			PricePaid: charge.AmountPaid,
			Status:    order.StatusPending,
		}
		if err := tx.Create(&o).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		// Carry the resolved product so the receipt email can render its name
		o.Product = product

		dv, err := order.MintDownloadVerification(tx, product.ID, downloadTokenTTL)
		if err != nil {
			return fmt.Errorf("failed to mint download token: %w", err)
		}

		receipt = Receipt{
			Order:         o,
			DownloadToken: dv.ID,
			ExpiresAt:     dv.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  receipt.Order.ID,
		"charge_id": charge.ChargeID,
	}).Info("Captured charge recorded")

	if s.notifier != nil {
		if err := s.notifier.SendOrderConfirmation(ctx, charge.Email, []order.Order{receipt.Order}); err != nil {
			s.log.WithError(err).WithField("email", charge.Email).Warn("Failed to send purchase receipt")
		}
	}
	return &receipt, nil
}
