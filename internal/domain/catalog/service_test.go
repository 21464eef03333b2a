// internal/domain/catalog/service_test.go
package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

type stubBlobs struct {
	deleted []string
}

func (s *stubBlobs) Store(data []byte, folder, filename string) (string, error) {
	return "/uploads/" + folder + "/" + filename, nil
}

func (s *stubBlobs) Delete(ref string) error {
	s.deleted = append(s.deleted, ref)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Category{}, &Product{}))
	return db
}

func newTestServices(t *testing.T) (*Service, *CategoryService, *stubBlobs) {
	t.Helper()

	db := newTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	blobs := &stubBlobs{}
	cfg := &config.Config{}

	return NewService(db, cfg, blobs, log), NewCategoryService(db, cfg, blobs, log), blobs
}

func seedCategory(t *testing.T, svc *CategoryService, name string) *Category {
	t.Helper()

	category, err := svc.CreateCategory(context.Background(), &CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return category
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	svc, categories, _ := newTestServices(t)
	ctx := context.Background()
	category := seedCategory(t, categories, "Electronics")

	product, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name:        "Widget",
		Description: "A widget",
		Price:       1000,
		CategoryID:  category.ID,
	})
	require.NoError(t, err)
	assert.True(t, product.IsAvailableForPurchase, "new products are purchasable by default")
	assert.False(t, product.OnSale)
}

func TestCreateKeepsExplicitFalseFlags(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	category := Category{Name: "Archive", Slug: "archive", IsActive: false}
	require.NoError(t, db.Create(&category).Error)

	product := Product{
		Name:                   "Retired",
		Description:            "d",
		Price:                  1000,
		CategoryID:             category.ID,
		IsAvailableForPurchase: false,
	}
	require.NoError(t, db.Create(&product).Error)

	var storedProduct Product
	require.NoError(t, db.First(&storedProduct, product.ID).Error)
	assert.False(t, storedProduct.IsAvailableForPurchase, "an explicit false must survive the insert")

	var storedCategory Category
	require.NoError(t, db.First(&storedCategory, category.ID).Error)
	assert.False(t, storedCategory.IsActive)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestServices(t)

	_, err := svc.CreateProduct(context.Background(), &CreateProductRequest{
		Name:        "Widget",
		Description: "A widget",
		Price:       1000,
		CategoryID:  42,
	})
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestUpdateProductRejectsInvalidSalePrice(t *testing.T) {
	t.Parallel()

	svc, categories, _ := newTestServices(t)
	ctx := context.Background()
	category := seedCategory(t, categories, "Electronics")

	product, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name:        "Widget",
		Description: "A widget",
		Price:       1000,
		CategoryID:  category.ID,
	})
	require.NoError(t, err)

	equal := int64(1000)
	onSale := true
	_, err = svc.UpdateProduct(ctx, product.ID, &UpdateProductRequest{SalePrice: &equal, OnSale: &onSale})
	require.ErrorIs(t, err, ErrInvalidSalePrice, "sale price must be strictly below the regular price")

	// The rejected combination must never have been stored
	stored, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, stored.OnSale)
	assert.Nil(t, stored.SalePrice)

	lower := int64(800)
	updated, err := svc.UpdateProduct(ctx, product.ID, &UpdateProductRequest{SalePrice: &lower, OnSale: &onSale})
	require.NoError(t, err)
	assert.Equal(t, int64(800), updated.EffectivePrice())
}

func TestEffectivePrice(t *testing.T) {
	t.Parallel()

	sale := int64(400)
	tests := []struct {
		name    string
		product Product
		want    int64
		onSale  bool
	}{
		{"regular", Product{Price: 500}, 500, false},
		{"active sale", Product{Price: 500, SalePrice: &sale, OnSale: true}, 400, true},
		{"sale flag without price", Product{Price: 500, OnSale: true}, 500, false},
		{"sale price without flag", Product{Price: 500, SalePrice: &sale}, 500, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.product.EffectivePrice())
			assert.Equal(t, tt.onSale, tt.product.IsEffectivelySale())
		})
	}
}

func TestListProductsHidesUnavailable(t *testing.T) {
	t.Parallel()

	svc, categories, _ := newTestServices(t)
	ctx := context.Background()

	active := seedCategory(t, categories, "Electronics")
	inactive := seedCategory(t, categories, "Archive")
	off := false
	_, err := categories.UpdateCategory(ctx, inactive.ID, &UpdateCategoryRequest{IsActive: &off})
	require.NoError(t, err)

	visible, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Widget", Description: "d", Price: 1000, CategoryID: active.ID,
	})
	require.NoError(t, err)

	hidden, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Hidden", Description: "d", Price: 1000, CategoryID: active.ID,
	})
	require.NoError(t, err)
	unavailable := false
	_, err = svc.UpdateProduct(ctx, hidden.ID, &UpdateProductRequest{Available: &unavailable})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Archived", Description: "d", Price: 1000, CategoryID: inactive.ID,
	})
	require.NoError(t, err)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, visible.ID, products[0].ID)
}

func TestGetSaleProductsSortedByDiscount(t *testing.T) {
	t.Parallel()

	svc, categories, _ := newTestServices(t)
	ctx := context.Background()
	category := seedCategory(t, categories, "Electronics")

	makeSale := func(name string, price, salePrice int64) {
		product, err := svc.CreateProduct(ctx, &CreateProductRequest{
			Name: name, Description: "d", Price: price, CategoryID: category.ID,
		})
		require.NoError(t, err)
		_, err = svc.SetSale(ctx, product.ID, &salePrice, true)
		require.NoError(t, err)
	}

	makeSale("Small Discount", 1000, 900) // 10%
	makeSale("Big Discount", 1000, 500)   // 50%
	makeSale("Mid Discount", 1000, 750)   // 25%

	// And one product not on sale at all
	_, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Full Price", Description: "d", Price: 1000, CategoryID: category.ID,
	})
	require.NoError(t, err)

	products, err := svc.GetSaleProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Big Discount", products[0].Name)
	assert.Equal(t, "Mid Discount", products[1].Name)
	assert.Equal(t, "Small Discount", products[2].Name)
}

func TestDeleteProductRemovesImage(t *testing.T) {
	t.Parallel()

	svc, categories, blobs := newTestServices(t)
	ctx := context.Background()
	category := seedCategory(t, categories, "Electronics")

	product, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Widget", Description: "d", Price: 1000, CategoryID: category.ID,
		ImagePath: "/uploads/products/widget.png",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	assert.Contains(t, blobs.deleted, "/uploads/products/widget.png")

	_, err = svc.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Electronics", "electronics"},
		{"Home & Garden", "home-garden"},
		{"  Board Games!  ", "board-games"},
		{"Déjà Vu", "d-j-vu"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "slugify %q", tt.in)
	}
}

func TestCreateCategoryDuplicateSlug(t *testing.T) {
	t.Parallel()

	_, categories, _ := newTestServices(t)
	ctx := context.Background()

	_, err := categories.CreateCategory(ctx, &CreateCategoryRequest{Name: "Electronics"})
	require.NoError(t, err)

	_, err = categories.CreateCategory(ctx, &CreateCategoryRequest{Name: "electronics"})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestDeleteCategoryInUse(t *testing.T) {
	t.Parallel()

	svc, categories, _ := newTestServices(t)
	ctx := context.Background()
	category := seedCategory(t, categories, "Electronics")

	_, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Widget", Description: "d", Price: 1000, CategoryID: category.ID,
	})
	require.NoError(t, err)

	require.ErrorIs(t, categories.DeleteCategory(ctx, category.ID), ErrCategoryInUse)

	require.NoError(t, svc.DeleteProduct(ctx, 1))
	require.NoError(t, categories.DeleteCategory(ctx, category.ID))
}

func TestListProductsByCategory(t *testing.T) {
	t.Parallel()

	svc, categories, _ := newTestServices(t)
	ctx := context.Background()

	electronics := seedCategory(t, categories, "Electronics")
	books := seedCategory(t, categories, "Books")

	_, err := svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Widget", Description: "d", Price: 1000, CategoryID: electronics.ID,
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, &CreateProductRequest{
		Name: "Novel", Description: "d", Price: 900, CategoryID: books.ID,
	})
	require.NoError(t, err)

	products, err := svc.ListProductsByCategory(ctx, "books")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Novel", products[0].Name)

	_, err = svc.ListProductsByCategory(ctx, "no-such-category")
	require.ErrorIs(t, err, ErrCategoryNotFound)
}
