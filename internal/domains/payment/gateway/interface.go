package gateway

import (
	"context"

	"github.com/google/uuid"

	"coursestore-backend/internal/domains/basket/model"
	paymentModel "coursestore-backend/internal/domains/payment/model"
)

// PaymentProcessor is the contract every gateway client implements.
// VerifyCallback must record the raw payload through the Recorder
// before returning any outcome, so an audit row survives even when
// order placement later fails.
type PaymentProcessor interface {
	// Name returns the processor slug used in routes and config.
	Name() string

	// BuildRequest produces the redirect parameters for the hosted
	// payment page of this processor for the given basket.
	BuildRequest(ctx context.Context, basket *model.Basket, orderNumber string) (*paymentModel.CheckoutParams, error)

	// VerifyCallback authenticates an inbound callback, records the raw
	// payload, and maps the processor's status onto an outcome.
	VerifyCallback(ctx context.Context, msg paymentModel.CallbackMessage) (*paymentModel.TransactionOutcome, error)

	// IssueRefund pushes a full refund of the basket total through the
	// processor's API.
	IssueRefund(ctx context.Context, orderNumber string, basket *model.Basket) (*paymentModel.RefundResult, error)

	// ExtractOrderNumber pulls the order reference out of a raw callback
	// without verifying it, for request logging and basket lookup.
	ExtractOrderNumber(msg paymentModel.CallbackMessage) string
}

// Recorder persists raw processor payloads. Gateway clients call it
// from inside VerifyCallback; the write is independent of whatever the
// reconciler decides afterwards.
type Recorder interface {
	RecordResponse(ctx context.Context, processorName string, basketID int64, transactionID string, payload map[string]any) (uuid.UUID, error)

	// LatestTransactionID returns the processor transaction reference from
	// the most recent recorded callback for the basket, or "" when no
	// delivery carried one.
	LatestTransactionID(ctx context.Context, processorName string, basketID int64) (string, error)
}

// Registry maps processor slugs to clients.
type Registry struct {
	processors map[string]PaymentProcessor
}

func NewRegistry(processors ...PaymentProcessor) *Registry {
	r := &Registry{processors: make(map[string]PaymentProcessor, len(processors))}
	for _, p := range processors {
		r.processors[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (PaymentProcessor, error) {
	p, ok := r.processors[name]
	if !ok {
		return nil, paymentModel.ErrInvalidProcessor
	}
	return p, nil
}
