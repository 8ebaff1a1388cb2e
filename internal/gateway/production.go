package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/citypay-ro/ghiseul-gateway/internal/config"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/pkg/httpx"
)

// ProductionGateway implements ports.PaymentGateway against the real
// Ghișeul.ro API contract.
//
// VerifyWebhook is deliberately fail-closed: it returns false for every
// payload, however well-formed, until the real signature scheme is
// integrated. Do not "fix" this by accepting unverified webhooks.
type ProductionGateway struct {
	httpClient ports.HTTPClient
	logger     *zap.Logger
	baseURL    string
	apiKey     string
}

// NewProductionGateway creates the production implementation.
func NewProductionGateway(cfg config.GatewayConfig, httpClient ports.HTTPClient, logger *zap.Logger) *ProductionGateway {
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = httpx.NewClient(httpx.GatewayClientConfig(), timeout)
	}
	return &ProductionGateway{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    cfg.APIBaseURL,
		apiKey:     cfg.APIKey,
	}
}

type initiateAPIRequest struct {
	Amount      float64           `json:"amount"`
	ReferenceID string            `json:"reference_id"`
	ReturnURL   string            `json:"return_url"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initiateAPIResponse struct {
	PaymentID     string    `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
	RedirectURL   string    `json:"redirect_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type statusAPIResponse struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	ErrorCode     string    `json:"error_code"`
	ErrorMessage  string    `json:"error_message"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type apiError struct {
	Message string `json:"message"`
}

// InitiatePayment opens a payment session on the real gateway.
func (g *ProductionGateway) InitiatePayment(ctx context.Context, req ports.InitiateRequest) (*ports.InitiateResponse, error) {
	body, err := json.Marshal(initiateAPIRequest{
		Amount:      req.Amount.InexactFloat64(),
		ReferenceID: req.CerereID,
		ReturnURL:   req.ReturnURL,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initiate request: %w", err)
	}

	var resp initiateAPIResponse
	if err := g.call(ctx, http.MethodPost, "/payments/initiate", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	return &ports.InitiateResponse{
		PaymentID:     resp.PaymentID,
		TransactionID: resp.TransactionID,
		RedirectURL:   resp.RedirectURL,
		ExpiresAt:     resp.ExpiresAt,
	}, nil
}

// GetPaymentStatus queries the real gateway for a transaction's state.
func (g *ProductionGateway) GetPaymentStatus(ctx context.Context, transactionID string) (*ports.StatusResponse, error) {
	var resp statusAPIResponse
	if err := g.call(ctx, http.MethodGet, "/payments/"+transactionID, nil, &resp); err != nil {
		return nil, err
	}

	return &ports.StatusResponse{
		TransactionID: resp.TransactionID,
		Status:        domain.TransactionStatus(resp.Status),
		Amount:        decimal.NewFromFloat(resp.Amount),
		ErrorCode:     resp.ErrorCode,
		ErrorMessage:  resp.ErrorMessage,
		CreatedAt:     resp.CreatedAt,
		UpdatedAt:     resp.UpdatedAt,
	}, nil
}

// VerifyWebhook always returns false until the real Ghișeul.ro signature
// scheme is integrated. Fail closed: an unverifiable webhook is an
// unaccepted webhook.
func (g *ProductionGateway) VerifyWebhook(payload ports.WebhookPayload, signature string) bool {
	g.logger.Warn("Production webhook verification not implemented, rejecting",
		zap.String("transaction_id", payload.TransactionID),
	)
	return false
}

// IsMockMode reports false.
func (g *ProductionGateway) IsMockMode() bool {
	return false
}

func (g *ProductionGateway) call(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayError, "gateway request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayError, "read gateway response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrTransactionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = "unknown error"
		}
		return domain.NewDomainError(domain.ErrorCodeGatewayError,
			fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, apiErr.Message))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayError, "decode gateway response", err)
	}
	return nil
}
