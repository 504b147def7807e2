package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/entities"
)

// ProductStore provides catalog access for the HTTP layer.
type ProductStore interface {
	ListProducts() ([]entities.Product, error)
	GetProductByID(id uint) (*entities.Product, error)
}

// ProductsController serves the public product catalog.
type ProductsController struct {
	store ProductStore
}

// NewProductsController creates a new ProductsController.
func NewProductsController(store ProductStore) *ProductsController {
	return &ProductsController{store: store}
}

// ListProducts returns the full catalog. Public, no authentication.
func (pc *ProductsController) ListProducts(c *gin.Context) {
	products, err := pc.store.ListProducts()
	if err != nil {
		respondInternalError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
