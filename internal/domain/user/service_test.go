// internal/domain/user/service_test.go
package user

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func TestFindOrCreateNormalizesAndReuses(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	first, err := FindOrCreate(db, "  Buyer@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", first.Email)

	second, err := FindOrCreate(db, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "the upsert must never mint a second row for one email")
}

func TestFindOrCreateLeavesExistingRowUntouched(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	existing := User{Email: "buyer@example.com"}
	require.NoError(t, db.Create(&existing).Error)

	found, err := FindOrCreate(db, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, found.ID)
	assert.WithinDuration(t, existing.CreatedAt, found.CreatedAt, time.Second)
}

func TestFindOrCreateRejectsEmptyEmail(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	_, err := FindOrCreate(db, "   ")
	require.Error(t, err)
}

func TestGetByEmailUnknown(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))

	_, err := svc.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}
