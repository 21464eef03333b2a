// internal/domain/cart/service_test.go
package cart

import (
	"context"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalog.Category{}, &catalog.Product{}, &Cart{}, &CartItem{}))
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(newTestDB(t), nil, &config.Config{}, log)
}

func seedProduct(t *testing.T, db *gorm.DB, price int64, available bool) *catalog.Product {
	t.Helper()

	category := catalog.Category{Name: "Electronics", Slug: "electronics", IsActive: true}
	require.NoError(t, db.FirstOrCreate(&category, catalog.Category{Slug: "electronics"}).Error)

	product := catalog.Product{
		Name:                   "Widget",
		Description:            "A widget",
		Price:                  price,
		CategoryID:             category.ID,
		IsAvailableForPurchase: available,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)
	ctx := context.Background()

	resolved, err := svc.AddItem(ctx, "", product.ID, 1)
	require.NoError(t, err)
	require.NotEmpty(t, resolved.ID)

	for i := 0; i < 2; i++ {
		_, err = svc.AddItem(ctx, resolved.ID, product.ID, 1)
		require.NoError(t, err)
	}
	_, err = svc.AddItem(ctx, resolved.ID, product.ID, 2)
	require.NoError(t, err)

	var items []CartItem
	require.NoError(t, svc.db.Where("cart_id = ?", resolved.ID).Find(&items).Error)
	require.Len(t, items, 1, "repeated adds must accumulate onto a single line")
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddItemRejectsUnavailableProduct(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, false)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "", product.ID, 1)
	require.ErrorIs(t, err, ErrProductUnavailable)

	// The gate runs before any mutation, so no cart may exist
	var count int64
	require.NoError(t, svc.db.Model(&Cart{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddItemRejectsUnknownProduct(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.AddItem(context.Background(), "", 9999, 1)
	require.ErrorIs(t, err, ErrProductUnavailable)
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)

	_, err := svc.AddItem(context.Background(), "", product.ID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), "", product.ID, -3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGetOrCreateCartStaleToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	resolved, created, err := svc.GetOrCreateCart(context.Background(), "no-such-cart")
	require.NoError(t, err)
	assert.True(t, created, "a stale token must mint a fresh cart, not fail")
	assert.NotEqual(t, "no-such-cart", resolved.ID)
}

func TestGetOrCreateCartReusesExisting(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.GetOrCreateCart(ctx, "")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.GetOrCreateCart(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpdateItemQuantity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)
	ctx := context.Background()

	resolved, err := svc.AddItem(ctx, "", product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateItemQuantity(ctx, resolved.ID, product.ID, 7))

	var item CartItem
	require.NoError(t, svc.db.Where("cart_id = ? AND product_id = ?", resolved.ID, product.ID).First(&item).Error)
	assert.Equal(t, 7, item.Quantity)
}

func TestUpdateItemQuantityZeroDeletesLine(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)
	ctx := context.Background()

	resolved, err := svc.AddItem(ctx, "", product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateItemQuantity(ctx, resolved.ID, product.ID, 0))

	var count int64
	require.NoError(t, svc.db.Model(&CartItem{}).Where("cart_id = ?", resolved.ID).Count(&count).Error)
	assert.Zero(t, count, "a zero quantity must delete the line, never persist")
}

func TestUpdateItemQuantityMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)
	ctx := context.Background()

	err := svc.UpdateItemQuantity(ctx, "no-such-cart", product.ID, 3)
	require.ErrorIs(t, err, ErrCartNotFound)

	resolved, _, err := svc.GetOrCreateCart(ctx, "")
	require.NoError(t, err)

	err = svc.UpdateItemQuantity(ctx, resolved.ID, product.ID, 3)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)
	ctx := context.Background()

	resolved, err := svc.AddItem(ctx, "", product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, resolved.ID, product.ID))
	require.NoError(t, svc.RemoveItem(ctx, resolved.ID, product.ID), "removing an absent item is a no-op")
	require.NoError(t, svc.RemoveItem(ctx, "no-such-cart", product.ID), "removing from an absent cart is a no-op")
}

func TestGetCartContentsTotals(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	regular := seedProduct(t, svc.db, 1000, true)

	salePrice := int64(400)
	onSale := seedProduct(t, svc.db, 500, true)
	require.NoError(t, svc.db.Model(onSale).Updates(map[string]interface{}{
		"on_sale":    true,
		"sale_price": salePrice,
	}).Error)

	resolved, err := svc.AddItem(ctx, "", regular.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, resolved.ID, onSale.ID, 3)
	require.NoError(t, err)

	contents, err := svc.GetCartContents(ctx, resolved.ID)
	require.NoError(t, err)

	require.Len(t, contents.Lines, 2)
	assert.Equal(t, 2, contents.Totals.ItemCount)
	assert.Equal(t, 5, contents.Totals.TotalQuantity)
	// 2*1000 at the regular price plus 3*400 at the sale price
	assert.Equal(t, int64(3200), contents.Totals.Subtotal)
}

func TestGetCartContentsSkipsOrphanedLines(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	kept := seedProduct(t, svc.db, 1000, true)
	doomed := seedProduct(t, svc.db, 500, true)

	resolved, err := svc.AddItem(ctx, "", kept.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, resolved.ID, doomed.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.db.Delete(doomed).Error)

	contents, err := svc.GetCartContents(ctx, resolved.ID)
	require.NoError(t, err)
	require.Len(t, contents.Lines, 1, "lines whose product is gone must be skipped")
	assert.Equal(t, kept.ID, contents.Lines[0].ProductID)
	assert.Equal(t, int64(1000), contents.Totals.Subtotal)
}

func TestGetCartContentsMissingCartReadsEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	contents, err := svc.GetCartContents(context.Background(), "no-such-cart")
	require.NoError(t, err)
	assert.Empty(t, contents.Lines)
	assert.Zero(t, contents.Totals.Subtotal)
}

func TestClearCart(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	product := seedProduct(t, svc.db, 1000, true)
	ctx := context.Background()

	resolved, err := svc.AddItem(ctx, "", product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, resolved.ID))

	var carts, items int64
	require.NoError(t, svc.db.Model(&Cart{}).Count(&carts).Error)
	require.NoError(t, svc.db.Model(&CartItem{}).Count(&items).Error)
	assert.Zero(t, carts)
	assert.Zero(t, items)
}
