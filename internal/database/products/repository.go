// Package products provides database operations for the product catalog.
package products

import (
	"errors"

	"gorm.io/gorm"

	"github.com/abushop/shopfront/internal/entities"
)

// ErrProductNotFound is returned when no product matches the lookup.
var ErrProductNotFound = errors.New("product not found")

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new products repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListProducts returns the full catalog ordered by ID.
func (r *Repository) ListProducts() ([]entities.Product, error) {
	var products []entities.Product
	err := r.db.Order("id").Find(&products).Error
	return products, err
}

// GetProductByID retrieves a single product.
func (r *Repository) GetProductByID(id uint) (*entities.Product, error) {
	var product entities.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}
