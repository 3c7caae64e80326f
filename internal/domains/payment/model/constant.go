package model

// =====================================================
// PAYMENT PROCESSORS
// =====================================================
const (
	ProcessorLiqPay      = "liqpay"
	ProcessorFondy       = "fondy"
	ProcessorPortmone    = "portmone"
	ProcessorPrivatParts = "privatparts"
)

// =====================================================
// PROCESSOR STATUS TOKENS
// =====================================================
//
// Status fields are lowercased before comparison. Membership is always
// an explicit set, never a substring match.

// LiqPay callback statuses
const (
	LiqPayStatusSuccess    = "success"
	LiqPayStatusSandbox    = "sandbox"
	LiqPayStatusWaitSecure = "wait_secure"
	LiqPayStatusReversed   = "reversed"
	LiqPayStatusError      = "error"
	LiqPayStatusFailure    = "failure"

	// LiqPay duplicate order error code
	LiqPayCodeDuplicateOrder = "order_id_duplicate"
)

// Fondy response statuses
const (
	FondyStatusSuccess  = "success"
	FondyStatusSandbox  = "sandbox"
	FondyStatusReversed = "reversed"
	FondyStatusError    = "error"
	FondyStatusFailure  = "failure"

	// 1013 - duplicate order_id for merchant
	FondyCodeDuplicateOrder = "1013"
)

// Portmone bill statuses
const (
	PortmoneStatusPayed  = "payed"
	PortmoneStatusReturn = "return"

	// 10 - duplicate transactions
	PortmoneCodeDuplicateOrder = "10"
)

// PrivatParts states
const (
	PrivatPartsStateSuccess = "success"
)

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	ErrCodeInvalidSignature      = "PAY001"
	ErrCodeDuplicateReference    = "PAY002"
	ErrCodeAwaitingReview        = "PAY003"
	ErrCodeReversedPayment       = "PAY004"
	ErrCodeGatewayError          = "PAY005"
	ErrCodeInvalidBasket         = "PAY006"
	ErrCodeOrderPlacementFailure = "PAY007"
	ErrCodeAuthorizationError    = "PAY008"
	ErrCodeInvalidProcessor      = "PAY009"
	ErrCodeRefundFailed          = "PAY010"
	ErrCodeInternalError         = "PAY011"
)

// =====================================================
// PAYMENT CONFIGURATION
// =====================================================
const (
	// Window a buyer has to complete payment on the hosted page
	PaymentExpiryHours = 2

	// How long a processed-callback mark lives in the fast-path cache
	ProcessedMarkTTLHours = 24
)
