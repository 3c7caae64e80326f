package portmone

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"coursestore-backend/internal/config"
	basketModel "coursestore-backend/internal/domains/basket/model"
	orderModel "coursestore-backend/internal/domains/order/model"
	"coursestore-backend/internal/domains/payment/gateway"
	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/pkg/httpclient"
	"coursestore-backend/pkg/logger"
)

// Statuses that count as a settled payment. Membership is an explicit
// set; anything outside it is not paid.
var paidStatuses = map[string]struct{}{
	model.PortmoneStatusPayed: {},
}

// Client integrates the Portmone gateway. The hosted-page redirect is
// unsigned; the inbound notification only names the bill, so the
// authoritative payment state always comes from a synchronous
// credentialed `result` call back to Portmone.
type Client struct {
	cfg      *config.PortmoneConfig
	app      *config.AppConfig
	http     *httpclient.Client
	recorder gateway.Recorder
	codec    orderModel.NumberCodec
}

func NewClient(cfg *config.PortmoneConfig, app *config.AppConfig, http *httpclient.Client, recorder gateway.Recorder, codec orderModel.NumberCodec) *Client {
	return &Client{
		cfg:      cfg,
		app:      app,
		http:     http,
		recorder: recorder,
		codec:    codec,
	}
}

func (c *Client) Name() string {
	return model.ProcessorPortmone
}

// =====================================================
// CHECKOUT
// =====================================================

func (c *Client) BuildRequest(ctx context.Context, basket *basketModel.Basket, orderNumber string) (*model.CheckoutParams, error) {
	fields := map[string]string{
		"payee_id":          c.cfg.PayeeID,
		"shop_order_number": orderNumber,
		"bill_amount":       basket.TotalInclTax.StringFixed(2),
		"bill_currency":     c.cfg.Currency,
		"description":       fmt.Sprintf("Оплата онлайн-курсу \"%s\", замовлення %s", basket.CourseTitle(), orderNumber),
		"success_url":       fmt.Sprintf("%s/api/v1/payments/portmone/result", c.app.StorefrontURL),
		"failure_url":       c.app.StorefrontURL + c.app.ErrorPath,
		"lang":              c.cfg.Lang,
		"attribute1":        c.cfg.Currency,
	}

	return &model.CheckoutParams{
		PaymentPageURL: c.cfg.Host,
		Fields:         fields,
		OrderNumber:    orderNumber,
	}, nil
}

// =====================================================
// CALLBACK VERIFICATION
// =====================================================

func (c *Client) VerifyCallback(ctx context.Context, msg model.CallbackMessage) (*model.TransactionOutcome, error) {
	orderNumber := c.ExtractOrderNumber(msg)
	basketID, err := c.codec.BasketID(orderNumber)
	if err != nil {
		return nil, model.ErrInvalidBasket
	}

	// The notification itself is unauthenticated. Trust nothing in it
	// beyond the bill reference: fetch the state over the credentialed
	// channel instead.
	bill, err := c.fetchBill(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	recordID, err := c.recorder.RecordResponse(ctx, model.ProcessorPortmone, basketID, bill.BillID, bill.raw)
	if err != nil {
		return nil, fmt.Errorf("failed to record portmone response: %w", err)
	}

	outcome := &model.TransactionOutcome{
		TransactionID:    bill.BillID,
		Currency:         bill.Attribute1,
		OrderNumber:      orderNumber,
		ResponseRecordID: recordID,
	}
	if amount, err := decimal.NewFromString(bill.BillAmount); err == nil {
		outcome.Total = amount
	}

	status := strings.ToLower(bill.Status)
	switch {
	case isPaid(status):
		outcome.Status = model.OutcomeAccepted
	case bill.ErrorCode == model.PortmoneCodeDuplicateOrder:
		outcome.Status = model.OutcomeDuplicate
		outcome.ErrorCode = bill.ErrorCode
	default:
		outcome.Status = model.OutcomeRejected
		outcome.ErrorCode = bill.ErrorCode
		outcome.ErrorDescription = bill.Error
	}

	return outcome, nil
}

func (c *Client) ExtractOrderNumber(msg model.CallbackMessage) string {
	if n := msg.Get("SHOPORDERNUMBER"); n != "" {
		return n
	}
	return msg.Get("shop_order_number")
}

// =====================================================
// REFUND
// =====================================================

func (c *Client) IssueRefund(ctx context.Context, orderNumber string, basket *basketModel.Basket) (*model.RefundResult, error) {
	payload, err := c.call(ctx, "return", map[string]any{
		"login":           c.cfg.Login,
		"password":        c.cfg.Password,
		"payeeId":         c.cfg.PayeeID,
		"shopOrderNumber": orderNumber,
		"returnAmount":    basket.TotalInclTax.StringFixed(2),
		"message":         fmt.Sprintf("Повернення коштів за онлайн-курс \"%s\"", basket.CourseTitle()),
	})
	if err != nil {
		return nil, err
	}

	bill, err := firstBill(payload)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorPortmone, err)
	}

	if _, err := c.recorder.RecordResponse(ctx, model.ProcessorPortmone, basket.ID, bill.BillID, bill.raw); err != nil {
		logger.Error("failed to record portmone refund response", err)
	}

	status := strings.ToLower(bill.Status)
	if status != model.PortmoneStatusReturn {
		return nil, model.RefundError(model.ProcessorPortmone, bill.Error)
	}

	return &model.RefundResult{
		OrderNumber: orderNumber,
		Processor:   model.ProcessorPortmone,
		Status:      status,
	}, nil
}

// =====================================================
// GATEWAY RPC
// =====================================================

type bill struct {
	BillID     string
	Status     string
	BillAmount string
	Attribute1 string
	ErrorCode  string
	Error      string

	raw map[string]any
}

func (c *Client) fetchBill(ctx context.Context, orderNumber string) (*bill, error) {
	payload, err := c.call(ctx, "result", map[string]any{
		"login":           c.cfg.Login,
		"password":        c.cfg.Password,
		"payeeId":         c.cfg.PayeeID,
		"shopOrderNumber": orderNumber,
	})
	if err != nil {
		return nil, err
	}

	b, err := firstBill(payload)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorPortmone, err)
	}
	return b, nil
}

func (c *Client) call(ctx context.Context, method string, data map[string]any) (json.RawMessage, error) {
	request := map[string]any{
		"method": method,
		"params": map[string]any{"data": data},
		"id":     "1",
	}

	body, err := c.http.PostJSON(ctx, c.cfg.Host, request, nil)
	if err != nil {
		return nil, model.GatewayError(model.ProcessorPortmone, err)
	}

	var response struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    any    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, model.GatewayError(model.ProcessorPortmone, fmt.Errorf("failed to decode %s response: %w", method, err))
	}
	if response.Error != nil {
		return nil, model.GatewayError(model.ProcessorPortmone, fmt.Errorf("%s call rejected: %s", method, response.Error.Message))
	}

	return response.Result, nil
}

// firstBill unwraps the result array the gateway returns for bill
// queries. An empty result means the bill reference is unknown.
func firstBill(result json.RawMessage) (*bill, error) {
	var rows []map[string]any
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode bill list: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("bill not found")
	}

	row := rows[0]
	return &bill{
		BillID:     asString(row["billId"]),
		Status:     asString(row["status"]),
		BillAmount: asString(row["billAmount"]),
		Attribute1: asString(row["attribute1"]),
		ErrorCode:  asString(row["errorCode"]),
		Error:      asString(row["error"]),
		raw:        row,
	}, nil
}

func isPaid(status string) bool {
	_, ok := paidStatuses[status]
	return ok
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
