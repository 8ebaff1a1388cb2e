package gateway

import (
	"context"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/internal/services/simulator"
)

// MockGateway implements ports.PaymentGateway against the in-repo payment
// simulator.
type MockGateway struct {
	sim *simulator.Service
}

// NewMockGateway wraps the simulator in the gateway contract.
func NewMockGateway(sim *simulator.Service) *MockGateway {
	return &MockGateway{sim: sim}
}

// InitiatePayment opens a simulated payment session.
func (g *MockGateway) InitiatePayment(ctx context.Context, req ports.InitiateRequest) (*ports.InitiateResponse, error) {
	return g.sim.Initiate(ctx, req)
}

// GetPaymentStatus queries the simulated transaction ledger.
func (g *MockGateway) GetPaymentStatus(ctx context.Context, transactionID string) (*ports.StatusResponse, error) {
	return g.sim.QueryStatus(ctx, transactionID)
}

// VerifyWebhook checks the HMAC signature the simulator stamped on the
// payload.
func (g *MockGateway) VerifyWebhook(payload ports.WebhookPayload, signature string) bool {
	return g.sim.VerifySignature(payload.TransactionID, payload.Status, signature)
}

// IsMockMode reports true.
func (g *MockGateway) IsMockMode() bool {
	return true
}
