// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserNotFound is returned when an email resolves to no user
var ErrUserNotFound = errors.New("user not found")

// Service provides the user directory keyed by contact email
type Service struct {
	db *gorm.DB
}

// NewService creates a new user service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// FindOrCreate upserts a user by email on the given handle, which may be a
// transaction. An existing user is reused untouched; a new one carries only
// the email.
func FindOrCreate(tx *gorm.DB, email string) (*User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, fmt.Errorf("email is required")
	}

	// Insert with ON CONFLICT DO NOTHING, then re-read: two concurrent
	// first-time buyers with the same email both land on the one row
	// instead of one of them hitting the unique index.
	candidate := User{Email: normalized}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	var u User
	if err := tx.Where("email = ?", normalized).First(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to read back user: %w", err)
	}
	return &u, nil
}

// FindOrCreateByEmail upserts against the service's own connection
func (s *Service) FindOrCreateByEmail(ctx context.Context, email string) (*User, error) {
	return FindOrCreate(s.db.WithContext(ctx), email)
}

// GetByEmail resolves a user without creating one
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var u User
	err := s.db.WithContext(ctx).Where("email = ?", normalized).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users, newest first (admin view)
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
