package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// CALLBACK MESSAGE
// =====================================================

// CallbackMessage is the normalized form of an inbound processor
// callback: a flat string map regardless of whether the wire format was
// form-encoded, JSON, or base64-wrapped JSON.
type CallbackMessage struct {
	Fields map[string]string
}

func (m CallbackMessage) Get(key string) string {
	return m.Fields[key]
}

// =====================================================
// TRANSACTION OUTCOME
// =====================================================

type OutcomeStatus string

const (
	OutcomeAccepted  OutcomeStatus = "accepted"
	OutcomeSandbox   OutcomeStatus = "sandbox"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// TransactionOutcome is what a gateway client hands back to the
// reconciler after verifying a callback and recording the raw payload.
type TransactionOutcome struct {
	Status           OutcomeStatus
	TransactionID    string
	Total            decimal.Decimal
	Currency         string
	CardNumber       string
	CardType         string
	OrderNumber      string
	ErrorCode        string
	ErrorDescription string
	ResponseRecordID uuid.UUID
}

// =====================================================
// REQUEST / RESPONSE DTOs
// =====================================================

// CheckoutRequest asks for the redirect parameters that send a buyer to
// a processor's hosted payment page for a basket.
type CheckoutRequest struct {
	BasketID  int64  `json:"basket_id"`
	Processor string `json:"processor"`
	Partner   string `json:"partner,omitempty"`
}

func (r CheckoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BasketID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Processor, validation.Required, validation.In(
			ProcessorLiqPay, ProcessorFondy, ProcessorPortmone, ProcessorPrivatParts)),
	)
}

// CheckoutParams carries everything the frontend needs to hand the
// buyer off to the hosted payment page.
type CheckoutParams struct {
	PaymentPageURL string            `json:"payment_page_url"`
	Fields         map[string]string `json:"fields,omitempty"`
	Token          string            `json:"token,omitempty"`
	OrderNumber    string            `json:"order_number"`
}

// RefundRequest triggers a full refund of a settled payment back
// through the processor that captured it.
type RefundRequest struct {
	OrderNumber string `json:"order_number"`
	Processor   string `json:"processor"`
	Comment     string `json:"comment,omitempty"`
}

func (r RefundRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderNumber, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Processor, validation.Required, validation.In(
			ProcessorLiqPay, ProcessorFondy, ProcessorPortmone, ProcessorPrivatParts)),
		validation.Field(&r.Comment, validation.Length(0, 255)),
	)
}

// RefundResult reports the processor's answer to a refund request.
type RefundResult struct {
	OrderNumber string `json:"order_number"`
	Processor   string `json:"processor"`
	Status      string `json:"status"`
}
