package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	basketModel "coursestore-backend/internal/domains/basket/model"
	"coursestore-backend/internal/domains/order/model"
	repo "coursestore-backend/internal/domains/order/repository"
	"coursestore-backend/pkg/logger"
)

type orderService struct {
	orderRepo repo.OrderRepoInterface
	codec     model.NumberCodec
	notifier  Notifier
}

func NewOrderService(orderRepo repo.OrderRepoInterface, codec model.NumberCodec, notifier Notifier) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		codec:     codec,
		notifier:  notifier,
	}
}

// PlaceOrder turns a paid basket into an order.
//
// Concurrency: callbacks for the same basket may race each other and the
// browser redirect. No locks are taken; the unique constraint on the
// order number is the arbiter. The loser of the race gets
// ErrOrderNumberExists, which is success from the processor's point of
// view - the order it paid for exists.
func (s *orderService) PlaceOrder(ctx context.Context, basket *basketModel.Basket) (*model.Order, bool, error) {
	number := s.codec.OrderNumber(basket.ID)

	order := &model.Order{
		ID:            uuid.New(),
		Number:        number,
		BasketID:      basket.ID,
		OwnerUsername: basket.OwnerUsername,
		TotalInclTax:  basket.TotalInclTax,
		Currency:      basket.Currency,
		Status:        model.OrderStatusPlaced,
		PlacedAt:      time.Now().UTC(),
	}

	err := s.orderRepo.Create(ctx, order)
	if err != nil {
		if errors.Is(err, model.ErrOrderNumberExists) {
			existing, getErr := s.orderRepo.GetByNumber(ctx, number)
			if getErr != nil {
				return nil, false, fmt.Errorf("order exists but could not be loaded: %w", getErr)
			}
			logger.Info("Order already placed for basket", map[string]interface{}{
				"basket_id":    basket.ID,
				"order_number": number,
			})
			return existing, false, nil
		}
		return nil, false, err
	}

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, order)
	}

	return order, true, nil
}

func (s *orderService) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return s.orderRepo.GetByNumber(ctx, number)
}

func (s *orderService) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	return s.orderRepo.ExistsByNumber(ctx, number)
}

// LogNotifier is the default Notifier; it only records the event. The
// production deployment swaps in the mailing integration here.
type LogNotifier struct{}

func (LogNotifier) OrderPlaced(_ context.Context, order *model.Order) {
	logger.Info("Order placed", map[string]interface{}{
		"order_number": order.Number,
		"basket_id":    order.BasketID,
		"total":        order.TotalInclTax.String(),
		"currency":     order.Currency,
	})
}
