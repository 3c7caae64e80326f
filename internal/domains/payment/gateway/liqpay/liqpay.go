package liqpay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

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
	checkoutPath = "3/checkout"
	requestPath  = "request"

	timeLayout = "2006-01-02 15:04:05"
)

// Client integrates the LiqPay hosted checkout. Requests carry a
// base64-encoded JSON payload plus a wrapped SHA-1 signature; callbacks
// arrive the same way. Credentials are multi-tenant: the signing key
// pair is resolved from the basket's partner code before anything is
// signed.
type Client struct {
	cfg      *config.LiqPayConfig
	app      *config.AppConfig
	http     *httpclient.Client
	recorder gateway.Recorder
	codec    orderModel.NumberCodec
}

func NewClient(cfg *config.LiqPayConfig, app *config.AppConfig, http *httpclient.Client, recorder gateway.Recorder, codec orderModel.NumberCodec) *Client {
	return &Client{
		cfg:      cfg,
		app:      app,
		http:     http,
		recorder: recorder,
		codec:    codec,
	}
}

func (c *Client) Name() string {
	return model.ProcessorLiqPay
}

// =====================================================
// CHECKOUT
// =====================================================

func (c *Client) BuildRequest(ctx context.Context, basket *basketModel.Basket, orderNumber string) (*model.CheckoutParams, error) {
	keys := c.cfg.ResolveKeys(basket.PartnerCode)

	params := map[string]any{
		"public_key":   keys.PublicKey,
		"version":      c.cfg.Version,
		"action":       "pay",
		"amount":       basket.TotalInclTax.StringFixed(2),
		"currency":     c.cfg.Currency,
		"description":  paymentDescription(basket.CourseTitle(), orderNumber),
		"order_id":     orderNumber,
		"language":     c.cfg.Language,
		"result_url":   fmt.Sprintf("%s/api/v1/payments/liqpay/processed?id=%d", c.app.StorefrontURL, basket.ID),
		"server_url":   fmt.Sprintf("%s/api/v1/payments/liqpay/callback", c.app.StorefrontURL),
		"expired_date": time.Now().UTC().Add(model.PaymentExpiryHours * time.Hour).Format(timeLayout),
	}
	if c.cfg.Sandbox {
		params["sandbox"] = "1"
	}

	data, err := encodePayload(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode liqpay request: %w", err)
	}

	return &model.CheckoutParams{
		PaymentPageURL: c.cfg.Host + checkoutPath,
		Fields: map[string]string{
			"data":      data,
			"signature": signature.WrappedBase64(keys.PrivateKey, data),
		},
		OrderNumber: orderNumber,
	}, nil
}

// =====================================================
// CALLBACK VERIFICATION
// =====================================================

func (c *Client) VerifyCallback(ctx context.Context, msg model.CallbackMessage) (*model.TransactionOutcome, error) {
	data := msg.Get("data")
	sig := msg.Get("signature")
	if data == "" || sig == "" {
		return nil, model.ErrInvalidSignature
	}

	// The callback does not say which tenant it belongs to, so the raw
	// payload is checked against every configured key pair. No match
	// means the message is not ours.
	if _, ok := c.matchPartnerKey(data, sig); !ok {
		return nil, model.ErrInvalidSignature
	}

	payload, err := decodePayload(data)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorLiqPay, err)
	}

	orderNumber, _ := payload["order_id"].(string)
	basketID, err := c.codec.BasketID(orderNumber)
	if err != nil {
		return nil, model.ErrInvalidBasket
	}

	transactionID := stringField(payload, "payment_id")
	recordID, err := c.recorder.RecordResponse(ctx, model.ProcessorLiqPay, basketID, transactionID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to record liqpay response: %w", err)
	}

	outcome := &model.TransactionOutcome{
		TransactionID:    transactionID,
		Currency:         stringField(payload, "currency"),
		CardNumber:       stringField(payload, "sender_card_mask2"),
		CardType:         stringField(payload, "sender_card_type"),
		OrderNumber:      orderNumber,
		ResponseRecordID: recordID,
	}
	if amount, err := decimal.NewFromString(stringField(payload, "amount")); err == nil {
		outcome.Total = amount
	}

	status := strings.ToLower(stringField(payload, "status"))
	errCode := stringField(payload, "err_code")

	switch {
	case status == model.LiqPayStatusSuccess:
		outcome.Status = model.OutcomeAccepted
	case status == model.LiqPayStatusSandbox:
		outcome.Status = model.OutcomeSandbox
	case status == model.LiqPayStatusWaitSecure:
		return nil, model.ErrAwaitingReview
	case status == model.LiqPayStatusReversed:
		return nil, model.ErrReversedPayment
	case errCode == model.LiqPayCodeDuplicateOrder:
		outcome.Status = model.OutcomeDuplicate
		outcome.ErrorCode = errCode
	default:
		outcome.Status = model.OutcomeRejected
		outcome.ErrorCode = errCode
		outcome.ErrorDescription = stringField(payload, "err_description")
	}

	return outcome, nil
}

func (c *Client) ExtractOrderNumber(msg model.CallbackMessage) string {
	payload, err := decodePayload(msg.Get("data"))
	if err != nil {
		return ""
	}
	orderNumber, _ := payload["order_id"].(string)
	return orderNumber
}

// =====================================================
// REFUND
// =====================================================

func (c *Client) IssueRefund(ctx context.Context, orderNumber string, basket *basketModel.Basket) (*model.RefundResult, error) {
	keys := c.cfg.ResolveKeys(basket.PartnerCode)

	params := map[string]any{
		"public_key": keys.PublicKey,
		"version":    c.cfg.Version,
		"action":     "refund",
		"order_id":   orderNumber,
		"amount":     basket.TotalInclTax.StringFixed(2),
		"currency":   basket.Currency,
	}

	// The refund API settles faster against the processor's transaction
	// reference than against our order id. The reference comes from the
	// recorded acceptance callback; a missing one only drops the field.
	transactionID, err := c.recorder.LatestTransactionID(ctx, model.ProcessorLiqPay, basket.ID)
	if err != nil {
		logger.Error("failed to look up liqpay transaction reference", err)
	} else if transactionID != "" {
		params["payment_id"] = transactionID
	}

	data, err := encodePayload(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode liqpay refund: %w", err)
	}

	form := url.Values{}
	form.Set("data", data)
	form.Set("signature", signature.WrappedBase64(keys.PrivateKey, data))

	body, err := c.http.PostForm(ctx, c.cfg.Host+requestPath, form)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorLiqPay, err)
	}

	payload, err := decodeBody(body)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorLiqPay, err)
	}

	if _, err := c.recorder.RecordResponse(ctx, model.ProcessorLiqPay, basket.ID, stringField(payload, "payment_id"), payload); err != nil {
		logger.Error("failed to record liqpay refund response", err)
	}

	status := strings.ToLower(stringField(payload, "status"))
	switch status {
	case model.LiqPayStatusSuccess, model.LiqPayStatusReversed, model.LiqPayStatusSandbox:
		return &model.RefundResult{
			OrderNumber: orderNumber,
			Processor:   model.ProcessorLiqPay,
			Status:      status,
		}, nil
	default:
		return nil, model.RefundError(model.ProcessorLiqPay, stringField(payload, "err_description"))
	}
}

// =====================================================
// HELPERS
// =====================================================

func (c *Client) matchPartnerKey(data, sig string) (config.KeyPair, bool) {
	if keys, ok := c.cfg.PartnerKeys[c.cfg.DefaultPartner]; ok {
		if signature.VerifyWrappedBase64(keys.PrivateKey, sig, data) {
			return keys, true
		}
	}
	for partner, keys := range c.cfg.PartnerKeys {
		if partner == c.cfg.DefaultPartner {
			continue
		}
		if signature.VerifyWrappedBase64(keys.PrivateKey, sig, data) {
			return keys, true
		}
	}
	return config.KeyPair{}, false
}

func paymentDescription(course, orderNumber string) string {
	return fmt.Sprintf("Оплата онлайн-курсу \"%s\", замовлення %s", course, orderNumber)
}

func encodePayload(params map[string]any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodePayload(data string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode callback data: %w", err)
	}
	return decodeBody(raw)
}

func decodeBody(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	payload := map[string]any{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return payload, nil
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
