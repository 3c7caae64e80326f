package repository

import (
	"context"

	"coursestore-backend/internal/domains/basket/model"
)

// BasketRepoInterface is the read side of the basket collaborator. The
// payment flow only ever loads a basket and marks it submitted; basket
// assembly belongs to the storefront.
type BasketRepoInterface interface {
	// GetByID loads a basket with its lines.
	// Returns model.ErrBasketNotFound when it does not exist.
	GetByID(ctx context.Context, id int64) (*model.Basket, error)
}
