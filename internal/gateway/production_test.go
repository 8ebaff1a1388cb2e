package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citypay-ro/ghiseul-gateway/internal/config"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/internal/gateway"
	"github.com/citypay-ro/ghiseul-gateway/internal/signature"
)

func productionGateway(t *testing.T, handler http.Handler) *gateway.ProductionGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return gateway.NewProductionGateway(config.GatewayConfig{
		Mode:       config.ModeProduction,
		APIBaseURL: srv.URL,
		APIKey:     "test-api-key",
	}, srv.Client(), zap.NewNop())
}

func TestProductionGateway_InitiatePayment(t *testing.T) {
	gw := productionGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/initiate", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 150.50, body["amount"])
		assert.Equal(t, "CER-2026-000123", body["reference_id"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"payment_id":     "pay_123",
			"transaction_id": "GHIS-2026-000777",
			"redirect_url":   "https://www.ghiseul.ro/pay/GHIS-2026-000777",
			"expires_at":     time.Now().Add(30 * time.Minute).UTC().Format(time.RFC3339),
		})
	}))

	resp, err := gw.InitiatePayment(context.Background(), ports.InitiateRequest{
		Amount:      decimal.NewFromFloat(150.50),
		CerereID:    "CER-2026-000123",
		ReturnURL:   "https://portal.example.ro/payments/done",
		CallbackURL: "https://portal.example.ro/api/payments/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_123", resp.PaymentID)
	assert.Equal(t, "GHIS-2026-000777", resp.TransactionID)
	assert.Equal(t, "https://www.ghiseul.ro/pay/GHIS-2026-000777", resp.RedirectURL)
}

func TestProductionGateway_GetPaymentStatus(t *testing.T) {
	gw := productionGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/GHIS-2026-000777", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"transaction_id": "GHIS-2026-000777",
			"status":         "success",
			"amount":         150.50,
		})
	}))

	status, err := gw.GetPaymentStatus(context.Background(), "GHIS-2026-000777")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, status.Status)
	assert.True(t, status.Amount.Equal(decimal.NewFromFloat(150.50)))
}

func TestProductionGateway_GetPaymentStatus_NotFound(t *testing.T) {
	gw := productionGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := gw.GetPaymentStatus(context.Background(), "GHIS-2026-missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestProductionGateway_APIErrorSurfacesMessage(t *testing.T) {
	gw := productionGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"message": "upstream maintenance"})
	}))

	_, err := gw.GetPaymentStatus(context.Background(), "GHIS-2026-000777")
	assert.Equal(t, domain.ErrorCodeGatewayError, domain.GetErrorCode(err))
	assert.Contains(t, err.Error(), "upstream maintenance")
}

func TestProductionGateway_VerifyWebhook_FailsClosed(t *testing.T) {
	gw := gateway.NewProductionGateway(config.GatewayConfig{
		Mode:       config.ModeProduction,
		APIBaseURL: "https://api.ghiseul.ro",
		APIKey:     "test-api-key",
	}, nil, zap.NewNop())

	payload := ports.WebhookPayload{
		TransactionID: "GHIS-2026-000777",
		Status:        domain.StatusSuccess,
	}

	// Even a signature that would satisfy the mock scheme is rejected
	sig := signature.NewSigner("test-webhook-secret").Sign(payload.TransactionID, payload.Status)
	assert.False(t, gw.VerifyWebhook(payload, sig))
	assert.False(t, gw.VerifyWebhook(payload, ""))
	assert.False(t, gw.IsMockMode())
}
