// Package users provides database operations for credential records.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByEmail(email)
package users

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/abushop/shopfront/internal/entities"
)

// ErrDuplicateUser is returned when a user with the same email or username
// already exists. Detection happens at the storage layer via unique indexes,
// so two concurrent registrations for the same email cannot both succeed.
var ErrDuplicateUser = errors.New("user already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new credential record. The insert is atomic: a
// duplicate email or username is rejected by the database's unique index and
// surfaces as ErrDuplicateUser.
func (r *Repository) CreateUser(user *entities.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateError(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// isDuplicateError reports whether err was caused by a unique constraint.
// GORM translates driver errors when TranslateError is enabled; the string
// check covers SQLite errors that slip through untranslated.
func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
