package service

import (
	"context"

	basketModel "coursestore-backend/internal/domains/basket/model"
	"coursestore-backend/internal/domains/order/model"
)

type OrderService interface {
	// PlaceOrder creates the one order allowed for a basket. When an
	// order with the same number already exists it returns that order
	// with placed=false instead of an error.
	PlaceOrder(ctx context.Context, basket *basketModel.Basket) (order *model.Order, placed bool, err error)

	GetByNumber(ctx context.Context, number string) (*model.Order, error)

	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

// Notifier receives the order-placed event. The storefront's mailing
// integration hangs off this boundary.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *model.Order)
}
