package repository

import (
	"context"

	"coursestore-backend/internal/domains/order/model"
)

type OrderRepoInterface interface {
	// Create inserts an order and marks its basket submitted in one
	// transaction. Returns model.ErrOrderNumberExists when an order
	// with the same number has already been placed.
	Create(ctx context.Context, order *model.Order) error

	// GetByNumber returns model.ErrOrderNotFound when absent.
	GetByNumber(ctx context.Context, number string) (*model.Order, error)

	// ExistsByNumber is the cheap form of GetByNumber for redirect
	// resolution and duplicate detection.
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}
