package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/citypay-ro/ghiseul-gateway/internal/adapters/memory"
	"github.com/citypay-ro/ghiseul-gateway/internal/adapters/postgres"
	redislock "github.com/citypay-ro/ghiseul-gateway/internal/adapters/redis"
	"github.com/citypay-ro/ghiseul-gateway/internal/cards"
	"github.com/citypay-ro/ghiseul-gateway/internal/config"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/internal/gateway"
	"github.com/citypay-ro/ghiseul-gateway/internal/services/simulator"
	"github.com/citypay-ro/ghiseul-gateway/internal/services/webhook"
	"github.com/citypay-ro/ghiseul-gateway/internal/signature"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(err)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting Ghișeul.ro gateway server",
		zap.String("mode", cfg.Gateway.Mode),
	)

	store, cleanup := initStore(cfg, logger)
	defer cleanup()

	locker := initLocker(cfg, logger)
	signer := signature.NewSigner(cfg.Gateway.WebhookSecret)

	scheduler := webhook.NewScheduler(webhook.Config{
		DelayMin:       cfg.Gateway.WebhookDelayMin,
		DelayMax:       cfg.Gateway.WebhookDelayMax,
		RequestTimeout: cfg.Gateway.RequestTimeout,
	}, nil, store, logger)
	defer scheduler.Close()

	sim := simulator.NewService(simulator.Config{
		CheckoutBaseURL: cfg.Gateway.CheckoutBaseURL,
		SessionTTL:      cfg.Gateway.SessionTTL,
	}, store, locker, scheduler, signer, logger)

	gw := gateway.New(cfg.Gateway, sim, nil, logger)

	srv := &server{gateway: gw, sim: sim, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/payments/ghiseul-mock/initiate", srv.handleInitiate)
	mux.HandleFunc("/api/payments/ghiseul-mock/checkout", srv.handleCheckout)
	mux.HandleFunc("/api/payments/ghiseul-mock/status", srv.handleStatus)
	mux.HandleFunc("/api/payments/ghiseul-mock/test-cards", srv.handleTestCards)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

type server struct {
	gateway ports.PaymentGateway
	sim     *simulator.Service
	logger  *zap.Logger
}

type initiateRequestBody struct {
	Amount      decimal.Decimal `json:"amount"`
	CerereID    string          `json:"cerere_id"`
	ReturnURL   string          `json:"return_url"`
	CallbackURL string          `json:"callback_url"`
}

func (s *server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body initiateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, domain.ErrInvalidAmount)
		return
	}

	resp, err := s.gateway.InitiatePayment(r.Context(), ports.InitiateRequest{
		Amount:      body.Amount,
		CerereID:    body.CerereID,
		ReturnURL:   body.ReturnURL,
		CallbackURL: body.CallbackURL,
	})
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, domain.ErrMissingTransaction)
		return
	}

	res, err := s.sim.SubmitCheckout(r.Context(), simulator.CheckoutRequest{
		TransactionID: r.FormValue("transaction_id"),
		CardNumber:    r.FormValue("card_number"),
		CardHolder:    r.FormValue("card_holder"),
		ExpiryMonth:   r.FormValue("expiry_month"),
		ExpiryYear:    r.FormValue("expiry_year"),
		CVV:           r.FormValue("cvv"),
	})
	if err != nil {
		writeJSONError(w, err)
		return
	}

	// Declined payments are results, not errors; the form gets a 200 with
	// the outcome and the browser redirect target. The redirect is built
	// from the return URL recorded at initiation, not from form input.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transaction_id": res.TransactionID,
		"status":         res.Status,
		"error_code":     res.ErrorCode,
		"error_message":  res.ErrorMessage,
		"card_last4":     res.CardLast4,
		"redirect_url":   simulator.RedirectURL(res.ReturnURL, res),
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.gateway.GetPaymentStatus(r.Context(), r.URL.Query().Get("transaction_id"))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleTestCards(w http.ResponseWriter, r *http.Request) {
	if !s.gateway.IsMockMode() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cards.AllTestCards())
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, err error) {
	code := domain.GetErrorCode(err)
	if code == "" {
		code = domain.ErrorCodeGatewayError
	}
	writeJSON(w, domain.HTTPStatus(err), map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// initStore selects PostgreSQL when DATABASE_URL is set, otherwise the
// in-memory store for local development.
func initStore(cfg *config.Config, logger *zap.Logger) (ports.TransactionStore, func()) {
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory transaction store")
		return memory.NewTransactionStore(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, &postgres.Config{
		DatabaseURL: cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	return postgres.NewTransactionStore(db), db.Close
}

// initLocker selects the Redis locker when REDIS_URL is set, otherwise the
// in-process one.
func initLocker(cfg *config.Config, logger *zap.Logger) ports.TransactionLocker {
	if cfg.Redis.URL == "" {
		return memory.NewLocker()
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse REDIS_URL", zap.Error(err))
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	logger.Info("Redis transaction locker initialized")
	return redislock.NewLocker(client, logger)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
