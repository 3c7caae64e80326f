package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"coursestore-backend/internal/config"
	basketModel "coursestore-backend/internal/domains/basket/model"
	orderModel "coursestore-backend/internal/domains/order/model"
	"coursestore-backend/internal/domains/payment/gateway"
	"coursestore-backend/internal/domains/payment/model"
)

// =====================================================
// FAKES
// =====================================================

type fakeProcessor struct {
	name    string
	outcome *model.TransactionOutcome
	err     error
	params  *model.CheckoutParams
	refund  *model.RefundResult
}

func (p *fakeProcessor) Name() string { return p.name }

func (p *fakeProcessor) BuildRequest(_ context.Context, _ *basketModel.Basket, orderNumber string) (*model.CheckoutParams, error) {
	if p.params != nil {
		return p.params, nil
	}
	return &model.CheckoutParams{PaymentPageURL: "https://pay.example.com", OrderNumber: orderNumber}, nil
}

func (p *fakeProcessor) VerifyCallback(_ context.Context, _ model.CallbackMessage) (*model.TransactionOutcome, error) {
	return p.outcome, p.err
}

func (p *fakeProcessor) IssueRefund(_ context.Context, orderNumber string, _ *basketModel.Basket) (*model.RefundResult, error) {
	if p.refund != nil {
		return p.refund, nil
	}
	return &model.RefundResult{OrderNumber: orderNumber, Processor: p.name, Status: "success"}, nil
}

func (p *fakeProcessor) ExtractOrderNumber(msg model.CallbackMessage) string {
	return msg.Get("order_id")
}

type fakeBasketRepo struct {
	baskets map[int64]*basketModel.Basket
}

func (r *fakeBasketRepo) GetByID(_ context.Context, id int64) (*basketModel.Basket, error) {
	b, ok := r.baskets[id]
	if !ok {
		return nil, basketModel.ErrBasketNotFound
	}
	return b, nil
}

type fakeOrderService struct {
	orders     map[string]*orderModel.Order
	placeCalls int
	placeErr   error
}

func (s *fakeOrderService) PlaceOrder(_ context.Context, basket *basketModel.Basket) (*orderModel.Order, bool, error) {
	s.placeCalls++
	if s.placeErr != nil {
		return nil, false, s.placeErr
	}

	number := testCodec.OrderNumber(basket.ID)
	if existing, ok := s.orders[number]; ok {
		return existing, false, nil
	}

	order := &orderModel.Order{
		ID:           uuid.New(),
		Number:       number,
		BasketID:     basket.ID,
		TotalInclTax: basket.TotalInclTax,
		Currency:     basket.Currency,
		Status:       orderModel.OrderStatusPlaced,
	}
	s.orders[number] = order
	return order, true, nil
}

func (s *fakeOrderService) GetByNumber(_ context.Context, number string) (*orderModel.Order, error) {
	order, ok := s.orders[number]
	if !ok {
		return nil, orderModel.ErrOrderNotFound
	}
	return order, nil
}

func (s *fakeOrderService) ExistsByNumber(_ context.Context, number string) (bool, error) {
	_, ok := s.orders[number]
	return ok, nil
}

type fakeCallbackCache struct {
	processed map[string]bool
	reviewing map[int64]bool
}

func newFakeCache() *fakeCallbackCache {
	return &fakeCallbackCache{processed: map[string]bool{}, reviewing: map[int64]bool{}}
}

func (c *fakeCallbackCache) MarkProcessed(_ context.Context, processor, transactionID string) (bool, error) {
	key := processor + ":" + transactionID
	if c.processed[key] {
		return false, nil
	}
	c.processed[key] = true
	return true, nil
}

func (c *fakeCallbackCache) IsProcessed(_ context.Context, processor, transactionID string) (bool, error) {
	return c.processed[processor+":"+transactionID], nil
}

func (c *fakeCallbackCache) SetAwaitingReview(_ context.Context, basketID int64) error {
	c.reviewing[basketID] = true
	return nil
}

func (c *fakeCallbackCache) IsAwaitingReview(_ context.Context, basketID int64) (bool, error) {
	return c.reviewing[basketID], nil
}

func (c *fakeCallbackCache) ClearAwaitingReview(_ context.Context, basketID int64) error {
	delete(c.reviewing, basketID)
	return nil
}

// =====================================================
// FIXTURE
// =====================================================

var testCodec = orderModel.NumberCodec{Prefix: "PROM", Offset: 100000}

type fixture struct {
	processor *fakeProcessor
	baskets   *fakeBasketRepo
	orders    *fakeOrderService
	cache     *fakeCallbackCache
	service   PaymentService
}

func newFixture(processor *fakeProcessor) *fixture {
	baskets := &fakeBasketRepo{baskets: map[int64]*basketModel.Basket{
		42: {
			ID:            42,
			OwnerUsername: "student",
			PartnerCode:   "prima",
			Currency:      "UAH",
			TotalInclTax:  decimal.RequireFromString("50.00"),
			Status:        basketModel.BasketStatusOpen,
			Lines:         []basketModel.Line{{ProductTitle: "Seat in Go Basics", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")}},
		},
	}}
	orders := &fakeOrderService{orders: map[string]*orderModel.Order{}}
	cache := newFakeCache()
	app := &config.AppConfig{
		StorefrontURL: "https://shop.example.com",
		ReceiptPath:   "/checkout/receipt/",
		CancelPath:    "/checkout/cancel-checkout/",
		ErrorPath:     "/checkout/error/",
	}

	return &fixture{
		processor: processor,
		baskets:   baskets,
		orders:    orders,
		cache:     cache,
		service:   NewPaymentService(gateway.NewRegistry(processor), baskets, orders, cache, testCodec, app),
	}
}

func acceptedOutcome() *model.TransactionOutcome {
	return &model.TransactionOutcome{
		Status:           model.OutcomeAccepted,
		TransactionID:    "tx-1",
		Total:            decimal.RequireFromString("50.00"),
		Currency:         "UAH",
		OrderNumber:      "PROM-100042",
		ResponseRecordID: uuid.New(),
	}
}

func init() {
	// Return resolution should not sleep in tests.
	settleCheckAttempts = 1
	settleCheckInterval = 0
}

// =====================================================
// TESTS
// =====================================================

func TestProcessCallback(t *testing.T) {
	msg := model.CallbackMessage{Fields: map[string]string{"order_id": "PROM-100042"}}

	t.Run("accepted payment places order", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: acceptedOutcome()})

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionAccepted, result.Disposition)
		require.True(t, result.OrderPlaced)
		require.Equal(t, "PROM-100042", result.Order.Number)
		require.Equal(t, 1, f.orders.placeCalls)
	})

	t.Run("second delivery is a no-op", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: acceptedOutcome()})

		first, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.True(t, first.OrderPlaced)

		second, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionAlreadyProcessed, second.Disposition)
		require.Equal(t, 1, f.orders.placeCalls)
	})

	t.Run("duplicate code places no order", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: &model.TransactionOutcome{
			Status:      model.OutcomeDuplicate,
			OrderNumber: "PROM-100042",
			ErrorCode:   "order_id_duplicate",
		}})

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionDuplicate, result.Disposition)
		require.Zero(t, f.orders.placeCalls)

		// Processors redeliver duplicate-reference callbacks too.
		again, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionDuplicate, again.Disposition)
		require.Zero(t, f.orders.placeCalls)
	})

	t.Run("redelivery retries after transient placement failure", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: acceptedOutcome()})
		f.orders.placeErr = errors.New("orders table unavailable")

		_, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.ErrorIs(t, err, model.ErrOrderPlacementFailure)
		require.Empty(t, f.cache.processed)

		f.orders.placeErr = nil

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionAccepted, result.Disposition)
		require.True(t, result.OrderPlaced)
		require.Len(t, f.orders.orders, 1)
	})

	t.Run("invalid signature has zero side effects", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", err: model.ErrInvalidSignature})

		_, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.ErrorIs(t, err, model.ErrInvalidSignature)
		require.Zero(t, f.orders.placeCalls)
		require.Empty(t, f.cache.processed)
		require.Empty(t, f.cache.reviewing)
	})

	t.Run("held for review flags the basket", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", err: model.ErrAwaitingReview})

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionAwaitingReview, result.Disposition)
		require.True(t, f.cache.reviewing[42])
		require.Zero(t, f.orders.placeCalls)
	})

	t.Run("reversal places no order", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", err: model.ErrReversedPayment})

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionReversed, result.Disposition)
		require.Zero(t, f.orders.placeCalls)
	})

	t.Run("rejected payment reports codes", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: &model.TransactionOutcome{
			Status:           model.OutcomeRejected,
			OrderNumber:      "PROM-100042",
			ErrorCode:        "limit",
			ErrorDescription: "Amount limit exceeded",
		}})

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionRejected, result.Disposition)
		require.Equal(t, "limit", result.Outcome.ErrorCode)
		require.Zero(t, f.orders.placeCalls)
	})

	t.Run("placement failure after settled payment", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: acceptedOutcome()})
		f.orders.placeErr = errors.New("orders table unavailable")

		_, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.ErrorIs(t, err, model.ErrOrderPlacementFailure)
	})

	t.Run("settled payment for unknown basket", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: &model.TransactionOutcome{
			Status:        model.OutcomeAccepted,
			TransactionID: "tx-9",
			OrderNumber:   "PROM-100999",
		}})

		_, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.ErrorIs(t, err, model.ErrOrderPlacementFailure)
	})

	t.Run("unknown processor", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})

		_, err := f.service.ProcessCallback(context.Background(), "nosuch", msg)
		require.ErrorIs(t, err, model.ErrInvalidProcessor)
	})

	t.Run("sandbox accepted like success", func(t *testing.T) {
		outcome := acceptedOutcome()
		outcome.Status = model.OutcomeSandbox
		f := newFixture(&fakeProcessor{name: "liqpay", outcome: outcome})

		result, err := f.service.ProcessCallback(context.Background(), "liqpay", msg)
		require.NoError(t, err)
		require.Equal(t, DispositionAccepted, result.Disposition)
		require.True(t, result.OrderPlaced)
	})
}

func TestBuildCheckout(t *testing.T) {
	t.Run("open basket", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})

		params, err := f.service.BuildCheckout(context.Background(), model.CheckoutRequest{BasketID: 42, Processor: "liqpay"})
		require.NoError(t, err)
		require.Equal(t, "PROM-100042", params.OrderNumber)
	})

	t.Run("submitted basket refused", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})
		f.baskets.baskets[42].Status = basketModel.BasketStatusSubmitted

		_, err := f.service.BuildCheckout(context.Background(), model.CheckoutRequest{BasketID: 42, Processor: "liqpay"})
		require.ErrorIs(t, err, model.ErrInvalidBasket)
	})

	t.Run("unknown basket", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})

		_, err := f.service.BuildCheckout(context.Background(), model.CheckoutRequest{BasketID: 7, Processor: "liqpay"})
		require.ErrorIs(t, err, model.ErrInvalidBasket)
	})
}

func TestResolveReturn(t *testing.T) {
	t.Run("order exists goes to receipt", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})
		f.orders.orders["PROM-100042"] = &orderModel.Order{Number: "PROM-100042", BasketID: 42}

		dest, err := f.service.ResolveReturn(context.Background(), 42)
		require.NoError(t, err)
		require.Equal(t, ReturnStateReceipt, dest.State)
		require.Equal(t, "https://shop.example.com/checkout/receipt/PROM-100042", dest.RedirectURL)
	})

	t.Run("pending review goes to wait page", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})
		f.cache.reviewing[42] = true

		dest, err := f.service.ResolveReturn(context.Background(), 42)
		require.NoError(t, err)
		require.Equal(t, ReturnStateWait, dest.State)
	})

	t.Run("nothing settled goes to cancel", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})

		dest, err := f.service.ResolveReturn(context.Background(), 42)
		require.NoError(t, err)
		require.Equal(t, ReturnStateCancel, dest.State)
	})
}

func TestRefund(t *testing.T) {
	t.Run("refunds placed order", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})
		f.orders.orders["PROM-100042"] = &orderModel.Order{Number: "PROM-100042", BasketID: 42}

		refunds := NewRefundService(gateway.NewRegistry(f.processor), f.baskets, f.orders)
		result, err := refunds.Refund(context.Background(), model.RefundRequest{OrderNumber: "PROM-100042", Processor: "liqpay"})
		require.NoError(t, err)
		require.Equal(t, "success", result.Status)
	})

	t.Run("refuses unknown order", func(t *testing.T) {
		f := newFixture(&fakeProcessor{name: "liqpay"})

		refunds := NewRefundService(gateway.NewRegistry(f.processor), f.baskets, f.orders)
		_, err := refunds.Refund(context.Background(), model.RefundRequest{OrderNumber: "PROM-100042", Processor: "liqpay"})
		require.ErrorIs(t, err, model.ErrInvalidBasket)
	})
}
