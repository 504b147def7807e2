// Package cart computes order totals against the product catalog.
//
// The calculation is all-or-nothing: the first invalid entry aborts with a
// descriptive error and no partial total is ever returned. Nothing is
// mutated; the calculator is a pure function of catalog + input.
package cart

import (
	"errors"
	"fmt"
	"math"

	"github.com/abushop/shopfront/internal/database/products"
	"github.com/abushop/shopfront/internal/entities"
)

const (
	// MaxItems is the maximum number of line items per request.
	MaxItems = 50

	// MinQuantity and MaxQuantity bound the per-line quantity.
	MinQuantity = 1
	MaxQuantity = 100
)

var (
	// ErrTooManyItems means the request exceeded MaxItems line items.
	ErrTooManyItems = errors.New("too many items")

	// ErrInvalidQuantity means a line quantity was outside [MinQuantity, MaxQuantity].
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// UnknownProductError reports a line item whose ID is not in the catalog.
type UnknownProductError struct {
	ID uint
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product %d", e.ID)
}

// Item is a single cart line.
type Item struct {
	ID  uint `json:"id"`
	Qty int  `json:"qty"`
}

// ProductLookup resolves catalog entries. Missing IDs must surface as
// products.ErrProductNotFound.
type ProductLookup interface {
	GetProductByID(id uint) (*entities.Product, error)
}

// Calculator computes cart totals against a catalog.
type Calculator struct {
	catalog ProductLookup
}

// NewCalculator creates a calculator over the given catalog.
func NewCalculator(catalog ProductLookup) *Calculator {
	return &Calculator{catalog: catalog}
}

// Total validates every line item and returns the sum of unit price times
// quantity, rounded to 2 decimal places.
func (c *Calculator) Total(items []Item) (float64, error) {
	if len(items) > MaxItems {
		return 0, ErrTooManyItems
	}

	var total float64
	for _, item := range items {
		product, err := c.catalog.GetProductByID(item.ID)
		if err != nil {
			if errors.Is(err, products.ErrProductNotFound) {
				return 0, &UnknownProductError{ID: item.ID}
			}
			return 0, fmt.Errorf("failed to look up product %d: %w", item.ID, err)
		}
		if item.Qty < MinQuantity || item.Qty > MaxQuantity {
			return 0, ErrInvalidQuantity
		}
		total += product.Price * float64(item.Qty)
	}

	return math.Round(total*100) / 100, nil
}
