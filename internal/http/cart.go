package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/cart"
)

// CartController computes cart totals. The endpoint mutates nothing, but it
// is CSRF-guarded like every POST so forged cross-site requests are rejected
// before processing.
type CartController struct {
	calculator *cart.Calculator
}

// NewCartController creates a new CartController.
func NewCartController(calculator *cart.Calculator) *CartController {
	return &CartController{calculator: calculator}
}

type cartRequest struct {
	Items []cart.Item `json:"items"`
}

// Total validates the submitted items and returns the order total. The
// request is all-or-nothing: the first invalid line aborts it.
func (cc *CartController) Total(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ErrKeyBadItems)
		return
	}

	total, err := cc.calculator.Total(req.Items)
	if err != nil {
		var unknown *cart.UnknownProductError
		switch {
		case errors.As(err, &unknown):
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrKeyUnknownProduct, "id": unknown.ID})
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondBadRequest(c, ErrKeyInvalidQty)
		case errors.Is(err, cart.ErrTooManyItems):
			respondBadRequest(c, ErrKeyBadItems)
		default:
			respondInternalError(c, err, "cart total")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "total": total})
}
