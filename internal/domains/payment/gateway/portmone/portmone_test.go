package portmone

import (
	"context"
	"encoding/json"
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
	"coursestore-backend/internal/domains/payment/model"
	"coursestore-backend/pkg/httpclient"
)

type fakeRecorder struct {
	calls int
}

func (r *fakeRecorder) RecordResponse(_ context.Context, _ string, _ int64, _ string, _ map[string]any) (uuid.UUID, error) {
	r.calls++
	return uuid.New(), nil
}

func (r *fakeRecorder) LatestTransactionID(_ context.Context, _ string, _ int64) (string, error) {
	return "", nil
}

// gatewayStub answers the JSON-RPC result/return calls the client makes.
func gatewayStub(t *testing.T, bills map[string][]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Method string `json:"method"`
			Params struct {
				Data map[string]any `json:"data"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Equal(t, "test-login", request.Params.Data["login"])

		rows, ok := bills[request.Method]
		if !ok {
			rows = []map[string]any{}
		}
		json.NewEncoder(w).Encode(map[string]any{"result": rows})
	}))
}

func testClient(recorder *fakeRecorder, host string) *Client {
	cfg := &config.PortmoneConfig{
		Host:     host,
		PayeeID:  "7488",
		Login:    "test-login",
		Password: "test-password",
		Currency: "UAH",
		Lang:     "uk",
	}
	app := &config.AppConfig{StorefrontURL: "https://shop.example.com", ErrorPath: "/checkout/error/"}
	codec := orderModel.NumberCodec{Prefix: "PROM", Offset: 100000}
	return NewClient(cfg, app, httpclient.New("portmone", 5*time.Second), recorder, codec)
}

func TestVerifyCallback(t *testing.T) {
	t.Run("payed bill accepted", func(t *testing.T) {
		srv := gatewayStub(t, map[string][]map[string]any{
			"result": {{
				"billId":     "8801234",
				"status":     "PAYED",
				"billAmount": "50.00",
				"attribute1": "UAH",
			}},
		})
		defer srv.Close()

		recorder := &fakeRecorder{}
		client := testClient(recorder, srv.URL)

		msg := model.CallbackMessage{Fields: map[string]string{"SHOPORDERNUMBER": "PROM-100042"}}
		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeAccepted, outcome.Status)
		require.Equal(t, "8801234", outcome.TransactionID)
		require.True(t, decimal.RequireFromString("50.00").Equal(outcome.Total))
		require.Equal(t, "UAH", outcome.Currency)
		require.Equal(t, 1, recorder.calls)
	})

	t.Run("created bill is not paid", func(t *testing.T) {
		srv := gatewayStub(t, map[string][]map[string]any{
			"result": {{"billId": "8801234", "status": "CREATED"}},
		})
		defer srv.Close()

		recorder := &fakeRecorder{}
		client := testClient(recorder, srv.URL)

		msg := model.CallbackMessage{Fields: map[string]string{"SHOPORDERNUMBER": "PROM-100042"}}
		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeRejected, outcome.Status)
		require.Equal(t, 1, recorder.calls)
	})

	t.Run("duplicate error code", func(t *testing.T) {
		srv := gatewayStub(t, map[string][]map[string]any{
			"result": {{"billId": "8801234", "status": "REJECTED", "errorCode": "10"}},
		})
		defer srv.Close()

		recorder := &fakeRecorder{}
		client := testClient(recorder, srv.URL)

		msg := model.CallbackMessage{Fields: map[string]string{"SHOPORDERNUMBER": "PROM-100042"}}
		outcome, err := client.VerifyCallback(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeDuplicate, outcome.Status)
	})

	t.Run("unknown bill reference", func(t *testing.T) {
		srv := gatewayStub(t, nil)
		defer srv.Close()

		recorder := &fakeRecorder{}
		client := testClient(recorder, srv.URL)

		msg := model.CallbackMessage{Fields: map[string]string{"SHOPORDERNUMBER": "PROM-100042"}}
		_, err := client.VerifyCallback(context.Background(), msg)
		require.Error(t, err)
		require.Zero(t, recorder.calls)
	})

	t.Run("foreign order number", func(t *testing.T) {
		recorder := &fakeRecorder{}
		client := testClient(recorder, "http://127.0.0.1:1")

		msg := model.CallbackMessage{Fields: map[string]string{"SHOPORDERNUMBER": "XX-1"}}
		_, err := client.VerifyCallback(context.Background(), msg)
		require.ErrorIs(t, err, model.ErrInvalidBasket)
	})
}

func TestIssueRefund(t *testing.T) {
	t.Run("returned bill", func(t *testing.T) {
		srv := gatewayStub(t, map[string][]map[string]any{
			"return": {{"billId": "8801234", "status": "RETURN"}},
		})
		defer srv.Close()

		recorder := &fakeRecorder{}
		client := testClient(recorder, srv.URL)

		basket := &basketModel.Basket{ID: 42, TotalInclTax: decimal.RequireFromString("50.00")}
		result, err := client.IssueRefund(context.Background(), "PROM-100042", basket)
		require.NoError(t, err)
		require.Equal(t, "return", result.Status)
		require.Equal(t, 1, recorder.calls)
	})

	t.Run("refund rejected", func(t *testing.T) {
		srv := gatewayStub(t, map[string][]map[string]any{
			"return": {{"billId": "8801234", "status": "PAYED", "error": "return window closed"}},
		})
		defer srv.Close()

		recorder := &fakeRecorder{}
		client := testClient(recorder, srv.URL)

		basket := &basketModel.Basket{ID: 42, TotalInclTax: decimal.RequireFromString("50.00")}
		_, err := client.IssueRefund(context.Background(), "PROM-100042", basket)
		require.Error(t, err)
	})
}
