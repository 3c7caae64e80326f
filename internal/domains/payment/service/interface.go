package service

import (
	"context"

	orderModel "coursestore-backend/internal/domains/order/model"
	"coursestore-backend/internal/domains/payment/model"
)

// Disposition is the terminal classification of a callback after
// reconciliation. Handlers map it onto ack / redirect behaviour.
type Disposition string

const (
	DispositionAccepted         Disposition = "accepted"
	DispositionDuplicate        Disposition = "duplicate"
	DispositionAwaitingReview   Disposition = "awaiting_review"
	DispositionReversed         Disposition = "reversed"
	DispositionRejected         Disposition = "rejected"
	DispositionAlreadyProcessed Disposition = "already_processed"
)

type CallbackResult struct {
	Disposition Disposition
	OrderNumber string

	// Set when Disposition is accepted.
	Order       *orderModel.Order
	OrderPlaced bool

	// Raw classification from the gateway, nil for review/reversed
	// deliveries and fast-path duplicates.
	Outcome *model.TransactionOutcome
}

// Return destinations for browser redirect resolution.
const (
	ReturnStateReceipt = "receipt"
	ReturnStateWait    = "wait"
	ReturnStateCancel  = "cancel"
)

type ReturnDestination struct {
	State       string `json:"state"`
	OrderNumber string `json:"order_number,omitempty"`
	RedirectURL string `json:"redirect_url"`
}

type PaymentService interface {
	// BuildCheckout prepares the hosted-page redirect for a basket.
	BuildCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutParams, error)

	// ProcessCallback runs a server-to-server notification through
	// verification, recording and order placement.
	ProcessCallback(ctx context.Context, processorName string, msg model.CallbackMessage) (*CallbackResult, error)

	// ResolveReturn decides where a buyer landing back from a payment
	// page should be sent for a basket.
	ResolveReturn(ctx context.Context, basketID int64) (*ReturnDestination, error)
}

type RefundService interface {
	// Refund pushes a full refund of a placed order back through the
	// processor that captured it.
	Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResult, error)
}
