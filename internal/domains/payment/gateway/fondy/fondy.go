package fondy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"coursestore-backend/internal/config"
	basketModel "coursestore-backend/internal/domains/basket/model"
	orderModel "coursestore-backend/internal/domains/order/model"
	"coursestore-backend/internal/domains/payment/gateway"
	"coursestore-backend/internal/domains/payment/gateway/signature"
	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/pkg/httpclient"
	"coursestore-backend/pkg/logger"
)

const (
	checkoutPath = "checkout/redirect/"
	reversePath  = "reverse/order_id"
)

// Client integrates the Fondy hosted checkout. Requests and callbacks
// are flat field sets signed with the sorted-pipe SHA-1 scheme; amounts
// travel as integer minor units.
type Client struct {
	cfg      *config.FondyConfig
	app      *config.AppConfig
	http     *httpclient.Client
	recorder gateway.Recorder
	codec    orderModel.NumberCodec
}

func NewClient(cfg *config.FondyConfig, app *config.AppConfig, http *httpclient.Client, recorder gateway.Recorder, codec orderModel.NumberCodec) *Client {
	return &Client{
		cfg:      cfg,
		app:      app,
		http:     http,
		recorder: recorder,
		codec:    codec,
	}
}

func (c *Client) Name() string {
	return model.ProcessorFondy
}

// =====================================================
// CHECKOUT
// =====================================================

func (c *Client) BuildRequest(ctx context.Context, basket *basketModel.Basket, orderNumber string) (*model.CheckoutParams, error) {
	cents, err := model.ToMinorUnits(basket.TotalInclTax)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fondy amount: %w", err)
	}

	fields := map[string]string{
		"merchant_id":   c.cfg.MerchantID,
		"order_id":      orderNumber,
		"order_desc":    fmt.Sprintf("Оплата онлайн-курсу \"%s\", замовлення %s", basket.CourseTitle(), orderNumber),
		"amount":        strconv.FormatInt(cents, 10),
		"currency":      c.cfg.Currency,
		"version":       c.cfg.Version,
		"lang":          c.cfg.Lang,
		"merchant_data": strconv.FormatInt(basket.ID, 10),
		"response_url":  fmt.Sprintf("%s/api/v1/payments/fondy/result", c.app.StorefrontURL),
	}
	fields["signature"] = signature.SortedPipe(c.cfg.MerchantPassword, fields)

	return &model.CheckoutParams{
		PaymentPageURL: c.cfg.Host + checkoutPath,
		Fields:         fields,
		OrderNumber:    orderNumber,
	}, nil
}

// =====================================================
// CALLBACK VERIFICATION
// =====================================================

func (c *Client) VerifyCallback(ctx context.Context, msg model.CallbackMessage) (*model.TransactionOutcome, error) {
	sig := msg.Get("signature")
	if sig == "" {
		return nil, model.ErrInvalidSignature
	}

	// The asserted signature and Fondy's own debug echo of the signed
	// string never participate in recomputation.
	signed := make(map[string]string, len(msg.Fields))
	for k, v := range msg.Fields {
		if k == "signature" || k == "response_signature_string" {
			continue
		}
		signed[k] = v
	}
	if !signature.VerifySortedPipe(c.cfg.MerchantPassword, signed, sig) {
		return nil, model.ErrInvalidSignature
	}

	orderNumber := msg.Get("order_id")
	basketID, err := c.codec.BasketID(orderNumber)
	if err != nil {
		return nil, model.ErrInvalidBasket
	}

	payload := make(map[string]any, len(msg.Fields))
	for k, v := range msg.Fields {
		payload[k] = v
	}

	transactionID := msg.Get("payment_id")
	recordID, err := c.recorder.RecordResponse(ctx, model.ProcessorFondy, basketID, transactionID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to record fondy response: %w", err)
	}

	outcome := &model.TransactionOutcome{
		TransactionID:    transactionID,
		Currency:         msg.Get("currency"),
		CardNumber:       msg.Get("masked_card"),
		CardType:         msg.Get("card_type"),
		OrderNumber:      orderNumber,
		ResponseRecordID: recordID,
	}
	if cents, err := strconv.ParseInt(msg.Get("amount"), 10, 64); err == nil {
		outcome.Total = model.FromMinorUnits(cents)
	}

	status := strings.ToLower(msg.Get("response_status"))
	code := msg.Get("response_code")

	switch {
	case status == model.FondyStatusSuccess:
		outcome.Status = model.OutcomeAccepted
	case status == model.FondyStatusSandbox:
		outcome.Status = model.OutcomeSandbox
	case status == model.FondyStatusReversed:
		return nil, model.ErrReversedPayment
	case code == model.FondyCodeDuplicateOrder:
		outcome.Status = model.OutcomeDuplicate
		outcome.ErrorCode = code
	default:
		outcome.Status = model.OutcomeRejected
		outcome.ErrorCode = code
		outcome.ErrorDescription = msg.Get("response_description")
	}

	return outcome, nil
}

func (c *Client) ExtractOrderNumber(msg model.CallbackMessage) string {
	return msg.Get("order_id")
}

// =====================================================
// REFUND
// =====================================================

func (c *Client) IssueRefund(ctx context.Context, orderNumber string, basket *basketModel.Basket) (*model.RefundResult, error) {
	cents, err := model.ToMinorUnits(basket.TotalInclTax)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fondy refund amount: %w", err)
	}

	params := map[string]string{
		"merchant_id": c.cfg.MerchantID,
		"order_id":    orderNumber,
		"amount":      strconv.FormatInt(cents, 10),
		"currency":    c.cfg.Currency,
		"version":     c.cfg.Version,
	}
	params["signature"] = signature.SortedPipe(c.cfg.MerchantPassword, params)

	body, err := c.http.PostJSON(ctx, c.cfg.Host+reversePath, map[string]any{"request": params}, nil)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorFondy, err)
	}

	var envelope struct {
		Response map[string]any `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, model.GatewayError(model.ProcessorFondy, fmt.Errorf("failed to decode reverse response: %w", err))
	}

	if _, err := c.recorder.RecordResponse(ctx, model.ProcessorFondy, basket.ID, orderNumber, envelope.Response); err != nil {
		logger.Error("failed to record fondy refund response", err)
	}

	status := strings.ToLower(asString(envelope.Response["response_status"]))
	if status == "" {
		status = strings.ToLower(asString(envelope.Response["reverse_status"]))
	}

	switch status {
	case model.FondyStatusSuccess, model.FondyStatusReversed, model.FondyStatusSandbox, "approved":
		return &model.RefundResult{
			OrderNumber: orderNumber,
			Processor:   model.ProcessorFondy,
			Status:      status,
		}, nil
	default:
		return nil, model.RefundError(model.ProcessorFondy, asString(envelope.Response["error_message"]))
	}
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
