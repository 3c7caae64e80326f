package model

import "fmt"

// PaymentError carries an internal error code alongside the message so
// handlers can map reconciliation failures onto the right HTTP
// behaviour (ack vs. retry) without string matching.
type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Err: err}
}

// =====================================================
// RECONCILIATION SENTINELS
// =====================================================
var (
	// Signature or MAC did not match. Nothing is recorded, nothing is acked.
	ErrInvalidSignature = &PaymentError{Code: ErrCodeInvalidSignature, Message: "callback signature verification failed"}

	// Processor reports the order reference was already paid. Treated as
	// success from the processor's point of view.
	ErrDuplicateReference = &PaymentError{Code: ErrCodeDuplicateReference, Message: "order reference already processed by gateway"}

	// Payment is held for manual anti-fraud review on the processor side.
	ErrAwaitingReview = &PaymentError{Code: ErrCodeAwaitingReview, Message: "payment held for secondary review"}

	// Previously accepted payment was reversed at the gateway.
	ErrReversedPayment = &PaymentError{Code: ErrCodeReversedPayment, Message: "payment was reversed"}

	// Callback referenced a basket that does not exist or cannot pay.
	ErrInvalidBasket = &PaymentError{Code: ErrCodeInvalidBasket, Message: "callback references an unknown or unpayable basket"}

	// Payment settled but the local order could not be placed. The money
	// moved; the processor must not retry.
	ErrOrderPlacementFailure = &PaymentError{Code: ErrCodeOrderPlacementFailure, Message: "payment accepted but order placement failed"}

	// Caller is not allowed to trigger the requested payment operation.
	ErrAuthorization = &PaymentError{Code: ErrCodeAuthorizationError, Message: "caller not authorized for payment operation"}

	// Unknown processor name in the request path.
	ErrInvalidProcessor = &PaymentError{Code: ErrCodeInvalidProcessor, Message: "unknown payment processor"}
)

// GatewayError wraps a transport or remote-API failure talking to a
// processor. These are retryable from the processor's perspective.
func GatewayError(processor string, err error) *PaymentError {
	return &PaymentError{
		Code:    ErrCodeGatewayError,
		Message: fmt.Sprintf("%s gateway request failed", processor),
		Err:     err,
	}
}

// RefundError wraps a refund rejection reported by the processor API.
func RefundError(processor, detail string) *PaymentError {
	return &PaymentError{
		Code:    ErrCodeRefundFailed,
		Message: fmt.Sprintf("%s refund rejected: %s", processor, detail),
	}
}
