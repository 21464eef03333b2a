// internal/domain/payment/service_test.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

type stubNotifier struct {
	confirmations []string
	orders        []order.Order
	err           error
}

func (s *stubNotifier) SendOrderConfirmation(ctx context.Context, email string, orders []order.Order) error {
	s.confirmations = append(s.confirmations, email)
	s.orders = orders
	return s.err
}

func (s *stubNotifier) SendOrderHistory(ctx context.Context, email string, entries []order.HistoryEntry) error {
	return nil
}

func newTestService(t *testing.T, secret string) (*Service, *gorm.DB, *stubNotifier) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&catalog.Category{}, &catalog.Product{},
		&order.Order{}, &order.DownloadVerification{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{}
	cfg.External.Stripe.WebhookSecret = secret

	notifier := &stubNotifier{}
	return NewService(db, cfg, notifier, log), db, notifier
}

func seedProduct(t *testing.T, db *gorm.DB, available bool) *catalog.Product {
	t.Helper()

	category := catalog.Category{Name: "Electronics", Slug: "electronics", IsActive: true}
	require.NoError(t, db.Create(&category).Error)

	product := catalog.Product{
		Name:                   "Widget",
		Description:            "test product",
		Price:                  1000,
		CategoryID:             category.ID,
		IsAvailableForPurchase: available,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, "whsec_test")
	body := []byte(`{"type":"charge.succeeded"}`)

	require.NoError(t, svc.VerifySignature(body, sign("whsec_test", body)))
	require.NoError(t, svc.VerifySignature(body, "sha256="+sign("whsec_test", body)))

	require.ErrorIs(t, svc.VerifySignature(body, sign("wrong-secret", body)), ErrInvalidSignature)
	require.ErrorIs(t, svc.VerifySignature([]byte("tampered"), sign("whsec_test", body)), ErrInvalidSignature)
	require.ErrorIs(t, svc.VerifySignature(body, ""), ErrInvalidSignature)
}

func TestVerifySignatureNoSecretConfigured(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, "")
	body := []byte(`{}`)

	require.ErrorIs(t, svc.VerifySignature(body, sign("", body)),
		ErrInvalidSignature, "a missing secret must reject everything")
}

func TestRecordCapturedCharge(t *testing.T) {
	t.Parallel()

	svc, db, notifier := newTestService(t, "whsec_test")
	product := seedProduct(t, db, true)
	ctx := context.Background()

	receipt, err := svc.RecordCapturedCharge(ctx, CapturedCharge{
		ProductID:  product.ID,
		Email:      "buyer@example.com",
		AmountPaid: 750,
		ChargeID:   "ch_123",
	})
	require.NoError(t, err)

	// The order carries the captured amount, not the catalog price
	assert.Equal(t, int64(750), receipt.Order.PricePaid)
	assert.Equal(t, 1, receipt.Order.Quantity)
	assert.Equal(t, order.StatusPending, receipt.Order.Status)

	var buyer user.User
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&buyer).Error)
	assert.Equal(t, buyer.ID, receipt.Order.UserID)

	assert.NotEmpty(t, receipt.DownloadToken)
	assert.True(t, receipt.ExpiresAt.After(time.Now()))

	var dv order.DownloadVerification
	require.NoError(t, db.First(&dv, "id = ?", receipt.DownloadToken).Error)
	assert.Equal(t, product.ID, dv.ProductID)

	require.Len(t, notifier.confirmations, 1)
	assert.Equal(t, "buyer@example.com", notifier.confirmations[0])

	// The receipt email renders the product name off the row it receives
	require.Len(t, notifier.orders, 1)
	assert.Equal(t, "Widget", notifier.orders[0].Product.Name)
}

func TestRecordCapturedChargeUnavailableProductStillSucceeds(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t, "whsec_test")
	product := seedProduct(t, db, false)

	// The provider already took the money; existence is the only gate
	receipt, err := svc.RecordCapturedCharge(context.Background(), CapturedCharge{
		ProductID:  product.ID,
		Email:      "buyer@example.com",
		AmountPaid: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, product.ID, receipt.Order.ProductID)
}

func TestRecordCapturedChargeUnknownProduct(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t, "whsec_test")

	_, err := svc.RecordCapturedCharge(context.Background(), CapturedCharge{
		ProductID:  42,
		Email:      "buyer@example.com",
		AmountPaid: 1000,
	})
	require.ErrorIs(t, err, ErrUnknownProduct)

	// Nothing may survive the rollback
	var users, orders int64
	require.NoError(t, db.Model(&user.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&order.Order{}).Count(&orders).Error)
	assert.Zero(t, users)
	assert.Zero(t, orders)
}

func TestRecordCapturedChargeMissingEmail(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t, "whsec_test")
	product := seedProduct(t, db, true)

	_, err := svc.RecordCapturedCharge(context.Background(), CapturedCharge{
		ProductID:  product.ID,
		AmountPaid: 1000,
	})
	require.ErrorIs(t, err, ErrMissingEmail)
}

func TestRecordCapturedChargeEmailFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	svc, db, notifier := newTestService(t, "whsec_test")
	notifier.err = assert.AnError
	product := seedProduct(t, db, true)

	_, err := svc.RecordCapturedCharge(context.Background(), CapturedCharge{
		ProductID:  product.ID,
		Email:      "buyer@example.com",
		AmountPaid: 1000,
	})
	require.NoError(t, err, "receipt email failure never bounces the webhook")
}
