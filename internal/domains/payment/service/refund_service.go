package service

import (
	"context"
	"errors"
	"fmt"

	basketRepo "coursestore-backend/internal/domains/basket/repository"
	orderModel "coursestore-backend/internal/domains/order/model"
	orderService "coursestore-backend/internal/domains/order/service"
	"coursestore-backend/internal/domains/payment/gateway"
	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/pkg/logger"
)

type refundService struct {
	registry   *gateway.Registry
	basketRepo basketRepo.BasketRepoInterface
	orders     orderService.OrderService
}

func NewRefundService(
	registry *gateway.Registry,
	baskets basketRepo.BasketRepoInterface,
	orders orderService.OrderService,
) RefundService {
	return &refundService{
		registry:   registry,
		basketRepo: baskets,
		orders:     orders,
	}
}

// Refund reverses a settled payment in full. The order must exist - a
// refund request for a number no order was placed under is a support
// mistake, not a gateway call.
func (s *refundService) Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResult, error) {
	processor, err := s.registry.Get(req.Processor)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		if errors.Is(err, orderModel.ErrOrderNotFound) {
			return nil, model.ErrInvalidBasket
		}
		return nil, fmt.Errorf("failed to load order for refund: %w", err)
	}

	basket, err := s.basketRepo.GetByID(ctx, order.BasketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load basket for refund: %w", err)
	}

	result, err := processor.IssueRefund(ctx, order.Number, basket)
	if err != nil {
		logger.ErrorWithFields("refund failed", err, map[string]interface{}{
			"processor":    req.Processor,
			"order_number": req.OrderNumber,
		})
		return nil, err
	}

	logger.Info("Refund issued", map[string]interface{}{
		"processor":    result.Processor,
		"order_number": result.OrderNumber,
		"status":       result.Status,
	})

	return result, nil
}
