package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/internal/domains/payment/repository"
	"coursestore-backend/internal/domains/payment/service"
	"coursestore-backend/internal/shared/middleware"
	"coursestore-backend/internal/shared/response"
	"coursestore-backend/pkg/logger"
)

// =====================================================
// PAYMENT HANDLER
// =====================================================

type PaymentHandler struct {
	payments service.PaymentService
	refunds  service.RefundService
	records  repository.ResponseRepoInterface
}

func NewPaymentHandler(payments service.PaymentService, refunds service.RefundService, records repository.ResponseRepoInterface) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		refunds:  refunds,
		records:  records,
	}
}

// =====================================================
// CHECKOUT
// =====================================================

// Checkout builds the hosted-page redirect parameters for a basket
// POST /api/v1/payments/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req model.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	params, err := h.payments.BuildCheckout(c.Request.Context(), req)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	response.Success(c, http.StatusOK, params)
}

// =====================================================
// SERVER-TO-SERVER CALLBACKS
// =====================================================

// LiqPayCallback receives the signed server notification
// POST /api/v1/payments/liqpay/callback
func (h *PaymentHandler) LiqPayCallback(c *gin.Context) {
	msg := model.CallbackMessage{Fields: map[string]string{
		"data":      c.PostForm("data"),
		"signature": c.PostForm("signature"),
	}}
	h.handleCallback(c, model.ProcessorLiqPay, msg)
}

// PrivatPartsCallback receives the installment state notification
// POST /api/v1/payments/privatparts/callback?orderId={orderNumber}
func (h *PaymentHandler) PrivatPartsCallback(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		orderID = c.PostForm("orderId")
	}
	msg := model.CallbackMessage{Fields: map[string]string{"orderId": orderID}}
	h.handleCallback(c, model.ProcessorPrivatParts, msg)
}

// handleCallback applies the ack policy shared by every server
// notification: 200 whenever the processor must not redeliver,
// including after an order placement failure on our side.
func (h *PaymentHandler) handleCallback(c *gin.Context, processorName string, msg model.CallbackMessage) {
	logger.Info("Callback received", map[string]interface{}{
		"processor": processorName,
		"client_ip": middleware.GetClientIPFromContext(c.Request.Context()),
	})

	result, err := h.payments.ProcessCallback(c.Request.Context(), processorName, msg)
	if err != nil {
		if errors.Is(err, model.ErrOrderPlacementFailure) {
			logger.Error("callback acknowledged despite placement failure", err)
			response.Success(c, http.StatusOK, gin.H{"status": "recorded"})
			return
		}
		h.respondPaymentError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":       string(result.Disposition),
		"order_number": result.OrderNumber,
	})
}

// =====================================================
// BROWSER RETURNS
// =====================================================

// LiqPayProcessed lands the buyer returning from the LiqPay page
// POST /api/v1/payments/liqpay/processed?id={basketID}
func (h *PaymentHandler) LiqPayProcessed(c *gin.Context) {
	h.resolveAndRedirect(c, c.Query("id"))
}

// PrivatPartsProcessed lands the buyer returning from the bank page
// GET /api/v1/payments/privatparts/processed?id={basketID}
func (h *PaymentHandler) PrivatPartsProcessed(c *gin.Context) {
	h.resolveAndRedirect(c, c.Query("id"))
}

// LiqPayWait reports whether a held payment has settled yet
// GET /api/v1/payments/liqpay/wait?basket={basketID}
func (h *PaymentHandler) LiqPayWait(c *gin.Context) {
	basketID, err := strconv.ParseInt(c.Query("basket"), 10, 64)
	if err != nil || basketID <= 0 {
		response.BadRequest(c, "Invalid basket id")
		return
	}

	dest, err := h.payments.ResolveReturn(c.Request.Context(), basketID)
	if err != nil {
		response.InternalServerError(c, "Failed to resolve payment state")
		return
	}

	response.Success(c, http.StatusOK, dest)
}

// FondyResult handles the combined callback-and-return POST
// POST /api/v1/payments/fondy/result
func (h *PaymentHandler) FondyResult(c *gin.Context) {
	h.handleFormResult(c, model.ProcessorFondy)
}

// PortmoneResult handles the combined callback-and-return POST
// POST /api/v1/payments/portmone/result
func (h *PaymentHandler) PortmoneResult(c *gin.Context) {
	h.handleFormResult(c, model.ProcessorPortmone)
}

// handleFormResult reconciles a form-encoded notification and then
// redirects the buyer's browser according to the outcome.
func (h *PaymentHandler) handleFormResult(c *gin.Context, processorName string) {
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "Invalid form body")
		return
	}

	fields := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	result, err := h.payments.ProcessCallback(c.Request.Context(), processorName, model.CallbackMessage{Fields: fields})
	if err != nil {
		h.redirectAfterResult(c, nil, err)
		return
	}
	h.redirectAfterResult(c, result, nil)
}

func (h *PaymentHandler) redirectAfterResult(c *gin.Context, result *service.CallbackResult, err error) {
	if err != nil {
		if errors.Is(err, model.ErrOrderPlacementFailure) {
			// Settled but not placed. Park the buyer on the wait page;
			// it resolves to the receipt once the record is replayed.
			c.Redirect(http.StatusFound, "/checkout/wait/")
			return
		}
		logger.Error("payment result failed", err)
		c.Redirect(http.StatusFound, "/checkout/error/")
		return
	}

	switch result.Disposition {
	case service.DispositionAccepted, service.DispositionAlreadyProcessed, service.DispositionDuplicate:
		c.Redirect(http.StatusFound, "/checkout/receipt/"+result.OrderNumber)
	case service.DispositionAwaitingReview:
		c.Redirect(http.StatusFound, "/checkout/wait/")
	default:
		c.Redirect(http.StatusFound, "/checkout/error/")
	}
}

func (h *PaymentHandler) resolveAndRedirect(c *gin.Context, rawID string) {
	basketID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || basketID <= 0 {
		response.BadRequest(c, "Invalid basket id")
		return
	}

	dest, err := h.payments.ResolveReturn(c.Request.Context(), basketID)
	if err != nil {
		response.InternalServerError(c, "Failed to resolve payment state")
		return
	}

	c.Redirect(http.StatusFound, dest.RedirectURL)
}

// =====================================================
// REFUNDS
// =====================================================

// Refund reverses a settled payment in full (internal, JWT-protected)
// POST /api/v1/payments/refunds
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req model.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	result, err := h.refunds.Refund(c.Request.Context(), req)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// =====================================================
// SUPPORT TOOLING
// =====================================================

// ListRecords returns the raw processor interactions recorded for a
// basket (internal, JWT-protected)
// GET /api/v1/payments/records?basket={basketID}
func (h *PaymentHandler) ListRecords(c *gin.Context) {
	basketID, err := strconv.ParseInt(c.Query("basket"), 10, 64)
	if err != nil || basketID <= 0 {
		response.BadRequest(c, "Invalid basket id")
		return
	}

	records, err := h.records.ListByBasket(c.Request.Context(), basketID)
	if err != nil {
		logger.Error("failed to list processor responses", err)
		response.InternalServerError(c, "Failed to list records")
		return
	}

	response.Success(c, http.StatusOK, records)
}

// GetRecord returns one recorded processor interaction
// GET /api/v1/payments/records/:id
func (h *PaymentHandler) GetRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid record id")
		return
	}

	record, err := h.records.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrResponseRecordNotFound) {
			response.NotFound(c, "Record not found")
			return
		}
		logger.Error("failed to get processor response", err)
		response.InternalServerError(c, "Failed to get record")
		return
	}

	response.Success(c, http.StatusOK, record)
}

// =====================================================
// ERROR MAPPING
// =====================================================

func (h *PaymentHandler) respondPaymentError(c *gin.Context, err error) {
	var paymentErr *model.PaymentError
	if !errors.As(err, &paymentErr) {
		logger.Error("payment operation failed", err)
		response.InternalServerError(c, "Payment operation failed")
		return
	}

	switch paymentErr.Code {
	case model.ErrCodeInvalidSignature:
		response.ErrorResponse(c, http.StatusBadRequest, paymentErr.Code, paymentErr.Message)
	case model.ErrCodeInvalidBasket:
		response.ErrorResponse(c, http.StatusBadRequest, paymentErr.Code, paymentErr.Message)
	case model.ErrCodeInvalidProcessor:
		response.ErrorResponse(c, http.StatusNotFound, paymentErr.Code, paymentErr.Message)
	case model.ErrCodeAuthorizationError:
		response.ErrorResponse(c, http.StatusBadGateway, paymentErr.Code, paymentErr.Message)
	case model.ErrCodeGatewayError:
		logger.Error("gateway call failed", err)
		response.ErrorResponse(c, http.StatusBadGateway, paymentErr.Code, paymentErr.Message)
	case model.ErrCodeRefundFailed:
		response.ErrorResponse(c, http.StatusUnprocessableEntity, paymentErr.Code, paymentErr.Message)
	default:
		logger.Error("payment operation failed", err)
		response.ErrorResponse(c, http.StatusInternalServerError, paymentErr.Code, paymentErr.Message)
	}
}
