package liqpay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"coursestore-backend/internal/config"
	basketModel "coursestore-backend/internal/domains/basket/model"
	orderModel "coursestore-backend/internal/domains/order/model"
	"coursestore-backend/internal/domains/payment/gateway/signature"
	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/pkg/httpclient"
)

type fakeRecorder struct {
	calls  []recordedCall
	latest string
	err    error
}

type recordedCall struct {
	processor     string
	basketID      int64
	transactionID string
	payload       map[string]any
}

func (r *fakeRecorder) RecordResponse(_ context.Context, processor string, basketID int64, transactionID string, payload map[string]any) (uuid.UUID, error) {
	if r.err != nil {
		return uuid.Nil, r.err
	}
	r.calls = append(r.calls, recordedCall{processor, basketID, transactionID, payload})
	return uuid.New(), nil
}

func (r *fakeRecorder) LatestTransactionID(_ context.Context, _ string, _ int64) (string, error) {
	return r.latest, nil
}

func testClient(recorder *fakeRecorder) (*Client, config.KeyPair) {
	return testClientAt(recorder, "https://www.liqpay.ua/api/")
}

func testClientAt(recorder *fakeRecorder, host string) (*Client, config.KeyPair) {
	keys := config.KeyPair{PublicKey: "pub-key", PrivateKey: "private-key"}
	cfg := &config.LiqPayConfig{
		Host:           host,
		DefaultPartner: "prima",
		PartnerKeys:    map[string]config.KeyPair{"prima": keys},
		Version:        3,
		Currency:       "UAH",
		Language:       "uk",
	}
	app := &config.AppConfig{StorefrontURL: "https://shop.example.com"}
	codec := orderModel.NumberCodec{Prefix: "PROM", Offset: 100000}
	return NewClient(cfg, app, httpclient.New("liqpay", 5*time.Second), recorder, codec), keys
}

func callback(t *testing.T, privateKey string, payload map[string]any) model.CallbackMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data := base64.StdEncoding.EncodeToString(raw)
	return model.CallbackMessage{Fields: map[string]string{
		"data":      data,
		"signature": signature.WrappedBase64(privateKey, data),
	}}
}

func TestVerifyCallback(t *testing.T) {
	t.Run("accepted payment", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id":          "PROM-100042",
			"status":            "success",
			"amount":            50.00,
			"currency":          "UAH",
			"payment_id":        987654,
			"sender_card_mask2": "516875*57",
			"sender_card_type":  "mc",
		})

		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeAccepted, outcome.Status)
		require.Equal(t, "PROM-100042", outcome.OrderNumber)
		require.Equal(t, "987654", outcome.TransactionID)
		require.True(t, decimal.RequireFromString("50").Equal(outcome.Total))
		require.NotEqual(t, uuid.Nil, outcome.ResponseRecordID)

		require.Len(t, recorder.calls, 1)
		require.Equal(t, model.ProcessorLiqPay, recorder.calls[0].processor)
		require.Equal(t, int64(42), recorder.calls[0].basketID)
	})

	t.Run("sandbox payment", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id": "PROM-100042",
			"status":   "sandbox",
		})

		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeSandbox, outcome.Status)
	})

	t.Run("wait_secure held for review", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id": "PROM-100042",
			"status":   "wait_secure",
		})

		_, err := client.VerifyCallback(context.Background(), msg)
		require.ErrorIs(t, err, model.ErrAwaitingReview)
	})

	t.Run("duplicate order id", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id": "PROM-100042",
			"status":   "error",
			"err_code": "order_id_duplicate",
		})

		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeDuplicate, outcome.Status)
		require.Equal(t, "order_id_duplicate", outcome.ErrorCode)
	})

	t.Run("declined payment rejected", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id":        "PROM-100042",
			"status":          "failure",
			"err_code":        "limit",
			"err_description": "Amount limit exceeded",
		})

		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeRejected, outcome.Status)
		require.Equal(t, "limit", outcome.ErrorCode)
		require.Equal(t, "Amount limit exceeded", outcome.ErrorDescription)
		require.Len(t, recorder.calls, 1)
	})

	t.Run("forged signature records nothing", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, _ := testClient(recorder)

		msg := callback(t, "wrong-key", map[string]any{
			"order_id": "PROM-100042",
			"status":   "success",
		})

		_, err := client.VerifyCallback(context.Background(), msg)
		require.ErrorIs(t, err, model.ErrInvalidSignature)
		require.Empty(t, recorder.calls)
	})

	t.Run("unknown order number", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id": "OTHER-1",
			"status":   "success",
		})

		_, err := client.VerifyCallback(context.Background(), msg)
		require.ErrorIs(t, err, model.ErrInvalidBasket)
		require.Empty(t, recorder.calls)
	})

	t.Run("recorder failure surfaces", func(t *testing.T) {
		recorder := &fakeRecorder{err: errors.New("db down")}
		client, keys := testClient(recorder)

		msg := callback(t, keys.PrivateKey, map[string]any{
			"order_id": "PROM-100042",
			"status":   "success",
		})

		_, err := client.VerifyCallback(context.Background(), msg)
		require.Error(t, err)
	})
}

func TestBuildRequest(t *testing.T) {
	recorder := &fakeRecorder{}
	client, keys := testClient(recorder)

	basket := &basketModel.Basket{
		ID:           42,
		PartnerCode:  "prima",
		Currency:     "UAH",
		TotalInclTax: decimal.RequireFromString("50.00"),
		Lines:        []basketModel.Line{{ProductTitle: "Seat in Go Basics with professional certificate", Quantity: 1}},
	}

	params, err := client.BuildRequest(context.Background(), basket, "PROM-100042")
	require.NoError(t, err)
	require.Equal(t, "https://www.liqpay.ua/api/3/checkout", params.PaymentPageURL)
	require.Equal(t, signature.WrappedBase64(keys.PrivateKey, params.Fields["data"]), params.Fields["signature"])

	raw, err := base64.StdEncoding.DecodeString(params.Fields["data"])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, "PROM-100042", payload["order_id"])
	require.Equal(t, "50.00", payload["amount"])
	require.Equal(t, "pay", payload["action"])
	require.Equal(t, `Оплата онлайн-курсу "Go Basics", замовлення PROM-100042`, payload["description"])
	require.Contains(t, payload["result_url"], "id=42")
}

func TestIssueRefund(t *testing.T) {
	var refundPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := base64.StdEncoding.DecodeString(r.FormValue("data"))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &refundPayload))

		json.NewEncoder(w).Encode(map[string]any{
			"status":     "reversed",
			"payment_id": 987654,
		})
	}))
	defer srv.Close()

	recorder := &fakeRecorder{latest: "987654"}
	client, _ := testClientAt(recorder, srv.URL+"/")

	basket := &basketModel.Basket{
		ID:           42,
		PartnerCode:  "prima",
		Currency:     "UAH",
		TotalInclTax: decimal.RequireFromString("50.00"),
	}

	result, err := client.IssueRefund(context.Background(), "PROM-100042", basket)
	require.NoError(t, err)
	require.Equal(t, "reversed", result.Status)

	require.Equal(t, "refund", refundPayload["action"])
	require.Equal(t, "PROM-100042", refundPayload["order_id"])
	require.Equal(t, "50.00", refundPayload["amount"])
	require.Equal(t, "UAH", refundPayload["currency"])
	require.Equal(t, "987654", refundPayload["payment_id"])

	// The refund response itself is recorded too.
	require.Len(t, recorder.calls, 1)
	require.Equal(t, "987654", recorder.calls[0].transactionID)
}

func TestExtractOrderNumber(t *testing.T) {
	recorder := &fakeRecorder{}
	client, keys := testClient(recorder)

	msg := callback(t, keys.PrivateKey, map[string]any{"order_id": "PROM-100042"})
	require.Equal(t, "PROM-100042", client.ExtractOrderNumber(msg))
	require.Empty(t, client.ExtractOrderNumber(model.CallbackMessage{Fields: map[string]string{"data": "not-base64!"}}))
}
