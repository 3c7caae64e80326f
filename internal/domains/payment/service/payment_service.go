package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursestore-backend/internal/config"
	basketModel "coursestore-backend/internal/domains/basket/model"
	basketRepo "coursestore-backend/internal/domains/basket/repository"
	orderModel "coursestore-backend/internal/domains/order/model"
	orderService "coursestore-backend/internal/domains/order/service"
	"coursestore-backend/internal/domains/payment/gateway"
	"coursestore-backend/internal/domains/payment/model"
	paymentRepo "coursestore-backend/internal/domains/payment/repository"
	"coursestore-backend/pkg/logger"
)

// Browser redirects race the server callback that actually places the
// order. Give the callback a moment to win before concluding nothing
// was paid.
var (
	settleCheckAttempts = 4
	settleCheckInterval = time.Second
)

type paymentService struct {
	registry   *gateway.Registry
	basketRepo basketRepo.BasketRepoInterface
	orders     orderService.OrderService
	cache      paymentRepo.CallbackCacheInterface
	codec      orderModel.NumberCodec
	app        *config.AppConfig
}

func NewPaymentService(
	registry *gateway.Registry,
	baskets basketRepo.BasketRepoInterface,
	orders orderService.OrderService,
	cache paymentRepo.CallbackCacheInterface,
	codec orderModel.NumberCodec,
	app *config.AppConfig,
) PaymentService {
	return &paymentService{
		registry:   registry,
		basketRepo: baskets,
		orders:     orders,
		cache:      cache,
		codec:      codec,
		app:        app,
	}
}

// =====================================================
// CHECKOUT
// =====================================================

func (s *paymentService) BuildCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutParams, error) {
	processor, err := s.registry.Get(req.Processor)
	if err != nil {
		return nil, err
	}

	basket, err := s.basketRepo.GetByID(ctx, req.BasketID)
	if err != nil {
		if errors.Is(err, basketModel.ErrBasketNotFound) {
			return nil, model.ErrInvalidBasket
		}
		return nil, fmt.Errorf("failed to load basket: %w", err)
	}
	if !basket.IsOpen() {
		return nil, model.ErrInvalidBasket
	}

	return processor.BuildRequest(ctx, basket, s.codec.OrderNumber(basket.ID))
}

// =====================================================
// CALLBACK RECONCILIATION
// =====================================================

// ProcessCallback drives a notification through the full state machine:
// verify and record first, classify, then place the order. The response
// record is committed by the gateway client before this method sees the
// outcome, so a crash between recording and placement loses nothing.
func (s *paymentService) ProcessCallback(ctx context.Context, processorName string, msg model.CallbackMessage) (*CallbackResult, error) {
	processor, err := s.registry.Get(processorName)
	if err != nil {
		return nil, err
	}

	orderNumber := processor.ExtractOrderNumber(msg)

	outcome, err := processor.VerifyCallback(ctx, msg)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAwaitingReview):
			s.flagAwaitingReview(ctx, orderNumber)
			return &CallbackResult{Disposition: DispositionAwaitingReview, OrderNumber: orderNumber}, nil
		case errors.Is(err, model.ErrReversedPayment):
			logger.Warn("Payment reversed by gateway", map[string]interface{}{
				"processor":    processorName,
				"order_number": orderNumber,
			})
			return &CallbackResult{Disposition: DispositionReversed, OrderNumber: orderNumber}, nil
		default:
			return nil, err
		}
	}

	// Fast path for repeated deliveries of the same settled
	// transaction. Read-only here: the claim is written after the order
	// is durably placed, so a transient placement failure leaves the
	// pair unclaimed and the next redelivery retries placement. A cache
	// failure falls through to the database path.
	if outcome.Status == model.OutcomeAccepted || outcome.Status == model.OutcomeSandbox {
		if outcome.TransactionID != "" {
			processed, err := s.cache.IsProcessed(ctx, processorName, outcome.TransactionID)
			if err != nil {
				logger.Error("failed to check callback in cache", err)
			} else if processed {
				return &CallbackResult{
					Disposition: DispositionAlreadyProcessed,
					OrderNumber: outcome.OrderNumber,
					Outcome:     outcome,
				}, nil
			}
		}
		return s.settleAccepted(ctx, processorName, outcome)
	}

	result := &CallbackResult{OrderNumber: outcome.OrderNumber, Outcome: outcome}
	switch outcome.Status {
	case model.OutcomeDuplicate:
		result.Disposition = DispositionDuplicate
	default:
		result.Disposition = DispositionRejected
		logger.Info("Payment rejected by gateway", map[string]interface{}{
			"processor":    processorName,
			"order_number": outcome.OrderNumber,
			"error_code":   outcome.ErrorCode,
			"description":  outcome.ErrorDescription,
		})
	}
	return result, nil
}

func (s *paymentService) settleAccepted(ctx context.Context, processorName string, outcome *model.TransactionOutcome) (*CallbackResult, error) {
	basketID, err := s.codec.BasketID(outcome.OrderNumber)
	if err != nil {
		return nil, model.ErrInvalidBasket
	}

	basket, err := s.basketRepo.GetByID(ctx, basketID)
	if err != nil {
		// The money moved; surface the distinct failure class so the
		// handler still acks and support can replay from the record.
		return nil, fmt.Errorf("basket %d unavailable after settled payment: %w", basketID, model.ErrOrderPlacementFailure)
	}

	order, placed, err := s.orders.PlaceOrder(ctx, basket)
	if err != nil {
		logger.ErrorWithFields("order placement failed after settled payment", err, map[string]interface{}{
			"processor":     processorName,
			"order_number":  outcome.OrderNumber,
			"record_id":     outcome.ResponseRecordID.String(),
			"transaction":   outcome.TransactionID,
			"basket_id":     basketID,
		})
		return nil, fmt.Errorf("%v: %w", err, model.ErrOrderPlacementFailure)
	}

	if outcome.TransactionID != "" {
		if _, err := s.cache.MarkProcessed(ctx, processorName, outcome.TransactionID); err != nil {
			logger.Error("failed to mark callback processed", err)
		}
	}

	if err := s.cache.ClearAwaitingReview(ctx, basketID); err != nil {
		logger.Error("failed to clear review flag", err)
	}

	logger.Info("Payment reconciled", map[string]interface{}{
		"processor":    processorName,
		"order_number": order.Number,
		"placed":       placed,
		"total":        outcome.Total.String(),
		"currency":     outcome.Currency,
	})

	return &CallbackResult{
		Disposition: DispositionAccepted,
		OrderNumber: order.Number,
		Order:       order,
		OrderPlaced: placed,
		Outcome:     outcome,
	}, nil
}

func (s *paymentService) flagAwaitingReview(ctx context.Context, orderNumber string) {
	basketID, err := s.codec.BasketID(orderNumber)
	if err != nil {
		return
	}
	if err := s.cache.SetAwaitingReview(ctx, basketID); err != nil {
		logger.Error("failed to flag basket for review", err)
	}
}

// =====================================================
// BROWSER RETURN RESOLUTION
// =====================================================

func (s *paymentService) ResolveReturn(ctx context.Context, basketID int64) (*ReturnDestination, error) {
	orderNumber := s.codec.OrderNumber(basketID)

	for attempt := 0; attempt < settleCheckAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(settleCheckInterval):
			}
		}

		exists, err := s.orders.ExistsByNumber(ctx, orderNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve return: %w", err)
		}
		if exists {
			return &ReturnDestination{
				State:       ReturnStateReceipt,
				OrderNumber: orderNumber,
				RedirectURL: s.app.StorefrontURL + s.app.ReceiptPath + orderNumber,
			}, nil
		}
	}

	reviewing, err := s.cache.IsAwaitingReview(ctx, basketID)
	if err != nil {
		logger.Error("failed to check review flag", err)
	}
	if reviewing {
		return &ReturnDestination{
			State:       ReturnStateWait,
			OrderNumber: orderNumber,
			RedirectURL: fmt.Sprintf("%s/api/v1/payments/liqpay/wait?basket=%d", s.app.StorefrontURL, basketID),
		}, nil
	}

	return &ReturnDestination{
		State:       ReturnStateCancel,
		RedirectURL: s.app.StorefrontURL + s.app.CancelPath,
	}, nil
}
