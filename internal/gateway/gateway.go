// Package gateway is the routing façade the rest of the portal consumes.
// One configuration decides at construction time whether payments run
// against the Ghișeul.ro simulation or the real API; both branches
// normalize into the same response shapes, so callers never see
// implementation-specific fields.
package gateway

import (
	"go.uber.org/zap"

	"github.com/citypay-ro/ghiseul-gateway/internal/config"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/internal/services/simulator"
)

// New selects the gateway implementation for the configured mode. The
// simulator is required in mock mode and ignored in production mode.
func New(cfg config.GatewayConfig, sim *simulator.Service, httpClient ports.HTTPClient, logger *zap.Logger) ports.PaymentGateway {
	logger.Info("Payment gateway initialized", zap.String("mode", cfg.Mode))

	if cfg.Mode == config.ModeProduction {
		return NewProductionGateway(cfg, httpClient, logger)
	}
	return NewMockGateway(sim)
}
