package privatparts

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
	createPath  = "payment/create"
	statePath   = "payment/state"
	declinePath = "payment/decline"
	paymentPath = "payment"

	merchantType = "II"
)

// Client integrates the PrivatBank installment ("payment by parts")
// API. Unlike the redirect processors, checkout requires a signed
// pre-registration round trip that yields a one-time token; payment
// state is pulled, never pushed, so callback verification is a signed
// state query.
type Client struct {
	cfg      *config.PrivatPartsConfig
	app      *config.AppConfig
	http     *httpclient.Client
	recorder gateway.Recorder
	codec    orderModel.NumberCodec
}

func NewClient(cfg *config.PrivatPartsConfig, app *config.AppConfig, http *httpclient.Client, recorder gateway.Recorder, codec orderModel.NumberCodec) *Client {
	return &Client{
		cfg:      cfg,
		app:      app,
		http:     http,
		recorder: recorder,
		codec:    codec,
	}
}

func (c *Client) Name() string {
	return model.ProcessorPrivatParts
}

// =====================================================
// CHECKOUT (PRE-REGISTRATION)
// =====================================================

func (c *Client) BuildRequest(ctx context.Context, basket *basketModel.Basket, orderNumber string) (*model.CheckoutParams, error) {
	cents, err := model.ToMinorUnits(basket.TotalInclTax)
	if err != nil {
		return nil, fmt.Errorf("failed to encode privatparts amount: %w", err)
	}

	productName := basket.CourseTitle()
	productCount := "1"
	productPrice := strconv.FormatInt(cents, 10)
	responseURL := fmt.Sprintf("%s/api/v1/payments/privatparts/callback?orderId=%s", c.app.StorefrontURL, orderNumber)
	redirectURL := fmt.Sprintf("%s/api/v1/payments/privatparts/processed?id=%d", c.app.StorefrontURL, basket.ID)

	request := map[string]any{
		"storeId":      c.cfg.StoreID,
		"orderId":      orderNumber,
		"amount":       cents,
		"partsCount":   c.cfg.PartsCount,
		"merchantType": merchantType,
		"responseUrl":  responseURL,
		"redirectUrl":  redirectURL,
		"products": []map[string]any{{
			"name":  productName,
			"count": 1,
			"price": cents,
		}},
		"signature": signature.WrappedBase64(c.cfg.Password,
			c.cfg.StoreID,
			orderNumber,
			strconv.FormatInt(cents, 10),
			strconv.Itoa(c.cfg.PartsCount),
			merchantType,
			responseURL,
			redirectURL,
			productName,
			productCount,
			productPrice,
		),
	}

	body, err := c.http.PostJSON(ctx, c.cfg.Host+createPath, request, nil)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorPrivatParts, err)
	}

	var response struct {
		State     string `json:"state"`
		StoreID   string `json:"storeId"`
		OrderID   string `json:"orderId"`
		Token     string `json:"token"`
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, model.GatewayError(model.ProcessorPrivatParts, fmt.Errorf("failed to decode create response: %w", err))
	}

	// Fail closed: no token means the bank refused the registration.
	if !strings.EqualFold(response.State, model.PrivatPartsStateSuccess) {
		logger.Warn("privatparts payment registration refused", map[string]interface{}{
			"order_number": orderNumber,
			"state":        response.State,
			"message":      response.Message,
		})
		return nil, model.ErrAuthorization
	}

	if !signature.VerifyWrappedBase64(c.cfg.Password, response.Signature,
		response.State, response.StoreID, response.OrderID, response.Token) {
		return nil, model.ErrInvalidSignature
	}

	return &model.CheckoutParams{
		PaymentPageURL: fmt.Sprintf("%s%s?token=%s", c.cfg.Host, paymentPath, response.Token),
		Token:          response.Token,
		OrderNumber:    orderNumber,
	}, nil
}

// =====================================================
// CALLBACK VERIFICATION (STATE PULL)
// =====================================================

func (c *Client) VerifyCallback(ctx context.Context, msg model.CallbackMessage) (*model.TransactionOutcome, error) {
	orderNumber := c.ExtractOrderNumber(msg)
	basketID, err := c.codec.BasketID(orderNumber)
	if err != nil {
		return nil, model.ErrInvalidBasket
	}

	request := map[string]any{
		"storeId": c.cfg.StoreID,
		"orderId": orderNumber,
		"signature": signature.WrappedBase64(c.cfg.Password,
			c.cfg.StoreID, orderNumber),
	}

	body, err := c.http.PostJSON(ctx, c.cfg.Host+statePath, request, nil)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorPrivatParts, err)
	}

	var response struct {
		State        string `json:"state"`
		StoreID      string `json:"storeId"`
		OrderID      string `json:"orderId"`
		PaymentState string `json:"paymentState"`
		Message      string `json:"message"`
		Signature    string `json:"signature"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, model.GatewayError(model.ProcessorPrivatParts, fmt.Errorf("failed to decode state response: %w", err))
	}

	if !signature.VerifyWrappedBase64(c.cfg.Password, response.Signature,
		response.State, response.StoreID, response.OrderID, response.PaymentState, response.Message) {
		return nil, model.ErrInvalidSignature
	}

	payload := map[string]any{
		"state":        response.State,
		"storeId":      response.StoreID,
		"orderId":      response.OrderID,
		"paymentState": response.PaymentState,
		"message":      response.Message,
	}
	recordID, err := c.recorder.RecordResponse(ctx, model.ProcessorPrivatParts, basketID, orderNumber, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to record privatparts response: %w", err)
	}

	outcome := &model.TransactionOutcome{
		TransactionID:    orderNumber,
		OrderNumber:      orderNumber,
		ResponseRecordID: recordID,
	}

	// Both the query state and the payment state must report success;
	// the query can succeed while the installment itself was declined.
	if strings.EqualFold(response.State, model.PrivatPartsStateSuccess) &&
		strings.EqualFold(response.PaymentState, model.PrivatPartsStateSuccess) {
		outcome.Status = model.OutcomeAccepted
	} else {
		outcome.Status = model.OutcomeRejected
		outcome.ErrorDescription = response.Message
	}

	return outcome, nil
}

func (c *Client) ExtractOrderNumber(msg model.CallbackMessage) string {
	return msg.Get("orderId")
}

// =====================================================
// REFUND (DECLINE)
// =====================================================

func (c *Client) IssueRefund(ctx context.Context, orderNumber string, basket *basketModel.Basket) (*model.RefundResult, error) {
	cents, err := model.ToMinorUnits(basket.TotalInclTax)
	if err != nil {
		return nil, fmt.Errorf("failed to encode privatparts refund amount: %w", err)
	}

	request := map[string]any{
		"storeId": c.cfg.StoreID,
		"orderId": orderNumber,
		"amount":  cents,
		"signature": signature.WrappedBase64(c.cfg.Password,
			c.cfg.StoreID, orderNumber, strconv.FormatInt(cents, 10)),
	}

	body, err := c.http.PostJSON(ctx, c.cfg.Host+declinePath, request, nil)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorPrivatParts, err)
	}

	var response struct {
		State   string `json:"state"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, model.GatewayError(model.ProcessorPrivatParts, fmt.Errorf("failed to decode decline response: %w", err))
	}

	if _, err := c.recorder.RecordResponse(ctx, model.ProcessorPrivatParts, basket.ID, orderNumber, map[string]any{
		"state":   response.State,
		"message": response.Message,
		"action":  "decline",
	}); err != nil {
		logger.Error("failed to record privatparts refund response", err)
	}

	if !strings.EqualFold(response.State, model.PrivatPartsStateSuccess) {
		return nil, model.RefundError(model.ProcessorPrivatParts, response.Message)
	}

	return &model.RefundResult{
		OrderNumber: orderNumber,
		Processor:   model.ProcessorPrivatParts,
		Status:      strings.ToLower(response.State),
	}, nil
}
