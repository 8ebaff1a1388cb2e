// Package simulator models the Ghișeul.ro payment gateway: transaction
// lifecycle, deterministic test-card behaviors, simulated processing
// latency, and asynchronous webhook scheduling.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/citypay-ro/ghiseul-gateway/internal/cards"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
	"github.com/citypay-ro/ghiseul-gateway/internal/domain/ports"
	"github.com/citypay-ro/ghiseul-gateway/internal/signature"
	"github.com/citypay-ro/ghiseul-gateway/pkg/observability"
	"github.com/citypay-ro/ghiseul-gateway/pkg/timeutil"
)

const (
	// DefaultSessionTTL is how long an initiated payment waits for a
	// checkout submission before it logically expires.
	DefaultSessionTTL = 30 * time.Minute

	checkoutPath = "/api/payments/ghiseul-mock/checkout"
)

// Config holds simulator tunables.
type Config struct {
	// CheckoutBaseURL is the host portal's base URL; the checkout page for
	// a transaction lives under it.
	CheckoutBaseURL string

	// SessionTTL bounds the pending→checkout window. Zero means
	// DefaultSessionTTL.
	SessionTTL time.Duration

	// NetworkLatencyMin/Max simulate the roundtrip to an external gateway
	// on initiate and status calls. Both zero disables the delay.
	NetworkLatencyMin time.Duration
	NetworkLatencyMax time.Duration
}

// CheckoutRequest carries the checkout form fields.
type CheckoutRequest struct {
	TransactionID string
	CardNumber    string
	CardHolder    string
	ExpiryMonth   string
	ExpiryYear    string
	CVV           string
}

// CheckoutResult is the synchronous outcome of a checkout submission. The
// same data also travels in the webhook, so the UI never needs to poll.
// ReturnURL is the one recorded at initiation; redirects must be built from
// it, never from checkout form input.
type CheckoutResult struct {
	Timestamp     time.Time
	TransactionID string
	PaymentMethod string
	ErrorCode     string
	ErrorMessage  string
	CardLast4     string
	ReturnURL     string
	Status        domain.TransactionStatus
	Amount        decimal.Decimal
}

// Service orchestrates payment simulation: ledger entries, card behavior
// resolution, processing latency and webhook scheduling. All state lives in
// the injected store; the service itself is stateless and safe for
// concurrent use.
type Service struct {
	store     ports.TransactionStore
	locker    ports.TransactionLocker
	scheduler ports.WebhookScheduler
	signer    *signature.Signer
	logger    *zap.Logger
	cfg       Config
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

// Option customizes a Service, mainly for tests.
type Option func(*Service)

// WithSleepFunc replaces the latency sleep. Tests use this to run the
// 500ms–10s card latencies instantly.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithNowFunc replaces the clock, so tests can move a session past its
// expiry window.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a payment simulator.
func NewService(
	cfg Config,
	store ports.TransactionStore,
	locker ports.TransactionLocker,
	scheduler ports.WebhookScheduler,
	signer *signature.Signer,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	s := &Service{
		store:     store,
		locker:    locker,
		scheduler: scheduler,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepContext,
		now:       timeutil.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate validates the request, creates a pending ledger entry and returns
// the checkout reference. Validation failures create no state.
func (s *Service) Initiate(ctx context.Context, req ports.InitiateRequest) (*ports.InitiateResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if req.CerereID == "" {
		return nil, domain.ErrMissingCerereID
	}
	if !isAbsoluteHTTPURL(req.ReturnURL) {
		return nil, domain.ErrInvalidReturnURL
	}
	if !isAbsoluteHTTPURL(req.CallbackURL) {
		return nil, domain.ErrInvalidCallbackURL
	}

	if err := s.simulateNetworkLatency(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	txn := &domain.Transaction{
		PaymentID:        uuid.NewString(),
		TransactionID:    NewTransactionID(),
		RequestReference: req.CerereID,
		Amount:           req.Amount,
		Status:           domain.StatusPending,
		CallbackURL:      req.CallbackURL,
		ReturnURL:        req.ReturnURL,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        timeutil.ExpiresAfter(now, s.cfg.SessionTTL),
	}

	if err := s.store.Create(ctx, txn); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "create transaction", err)
	}

	observability.RecordPaymentInitiated("mock")
	s.logger.Info("Payment initiated",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("cerere_id", txn.RequestReference),
		zap.String("amount", txn.Amount.StringFixed(2)),
	)

	return &ports.InitiateResponse{
		PaymentID:     txn.PaymentID,
		TransactionID: txn.TransactionID,
		RedirectURL:   s.checkoutURL(txn.TransactionID),
		ExpiresAt:     txn.ExpiresAt,
	}, nil
}

// SubmitCheckout resolves a checkout submission to a terminal status. The
// caller is suspended for the card's simulated processing latency and always
// receives a definitive result synchronously; the webhook fires later on its
// own timer.
//
// Submissions for the same transaction are serialized by the locker; a
// second submission after a terminal resolution replays the recorded result
// without re-triggering a webhook.
func (s *Service) SubmitCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckoutRequest(req, s.now()); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, req.TransactionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "acquire transaction lock", err)
	}
	defer unlock()

	// Authoritative read: amount and status come from the external store,
	// never from anything cached in this process.
	txn, err := s.store.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status.IsTerminal() {
		s.logger.Info("Checkout replayed for resolved transaction",
			zap.String("transaction_id", txn.TransactionID),
			zap.String("status", string(txn.Status)),
		)
		return resultFromTransaction(txn), nil
	}

	if txn.IsExpired(s.now()) {
		// Fresh error per call: WithDetail mutates its receiver, so the
		// shared sentinel must never carry per-transaction details.
		return nil, domain.NewDomainError(domain.ErrorCodeTransactionExpired, "checkout session expired").
			WithDetail("expires_at", txn.ExpiresAt)
	}

	started := s.now()

	entry, ok := cards.Lookup(req.CardNumber)
	if !ok {
		// Malformed or Luhn-invalid number: resolved immediately, recorded
		// as the transaction's terminal outcome like any other decline.
		return s.resolve(ctx, txn, txn.Status, domain.StatusFailed,
			domain.ErrorCodeInvalidCard, "Invalid card number",
			cards.Last4(req.CardNumber), started)
	}

	if err := s.store.MarkProcessing(ctx, txn.TransactionID, cards.MaskNumber(req.CardNumber), entry.Kind); err != nil {
		if errors.Is(err, domain.ErrTransactionAlreadyResolved) {
			return s.replay(ctx, txn.TransactionID)
		}
		return nil, err
	}

	if err := s.sleep(ctx, entry.Latency); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayError, "processing interrupted", err)
	}

	status := domain.StatusFailed
	errorCode := entry.ErrorCode
	if entry.IsSuccess() {
		status = domain.StatusSuccess
		errorCode = ""
	} else if errorCode == "" {
		errorCode = domain.ErrorCodeUnknownError
	}

	return s.resolve(ctx, txn, domain.StatusProcessing, status,
		errorCode, errorMessageFor(errorCode),
		cards.Last4(req.CardNumber), started)
}

// QueryStatus is a pure read of a transaction's current state.
func (s *Service) QueryStatus(ctx context.Context, transactionID string) (*ports.StatusResponse, error) {
	if err := s.simulateNetworkLatency(ctx); err != nil {
		return nil, err
	}

	txn, err := s.store.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	return &ports.StatusResponse{
		TransactionID: txn.TransactionID,
		Status:        txn.Status,
		Amount:        txn.Amount,
		ErrorCode:     txn.ErrorCode,
		ErrorMessage:  txn.ErrorMessage,
		CreatedAt:     txn.CreatedAt,
		UpdatedAt:     txn.UpdatedAt,
	}, nil
}

// VerifySignature checks a webhook signature against this gateway's secret.
func (s *Service) VerifySignature(transactionID string, status domain.TransactionStatus, sig string) bool {
	return s.signer.Verify(transactionID, status, sig)
}

// RedirectURL builds the browser redirect after checkout: the transaction's
// return URL with the outcome in query parameters.
func RedirectURL(returnURL string, res *CheckoutResult) string {
	u, err := url.Parse(returnURL)
	if err != nil {
		return returnURL
	}

	q := u.Query()
	q.Set("transaction_id", res.TransactionID)
	q.Set("status", string(res.Status))
	if res.Status == domain.StatusSuccess {
		q.Set("payment_id", res.TransactionID)
	} else {
		code := res.ErrorCode
		if code == "" {
			code = string(domain.ErrorCodeUnknownError)
		}
		q.Set("error", code)
		if res.ErrorMessage != "" {
			q.Set("error_message", res.ErrorMessage)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// resolve finalizes the ledger entry and schedules exactly one webhook for
// the outcome. A lost compare-and-set race means another submission already
// resolved the transaction; its result is replayed instead.
func (s *Service) resolve(
	ctx context.Context,
	txn *domain.Transaction,
	from, to domain.TransactionStatus,
	errorCode domain.ErrorCode,
	errorMessage, cardLast4 string,
	started time.Time,
) (*CheckoutResult, error) {
	if err := s.store.ResolveStatus(ctx, txn.TransactionID, from, to, string(errorCode), errorMessage); err != nil {
		if errors.Is(err, domain.ErrTransactionAlreadyResolved) {
			return s.replay(ctx, txn.TransactionID)
		}
		return nil, err
	}

	result := &CheckoutResult{
		TransactionID: txn.TransactionID,
		Status:        to,
		Amount:        txn.Amount,
		PaymentMethod: "card",
		ErrorCode:     string(errorCode),
		ErrorMessage:  errorMessage,
		CardLast4:     cardLast4,
		ReturnURL:     txn.ReturnURL,
		Timestamp:     s.now(),
	}

	s.scheduleWebhook(txn, result)

	observability.RecordCheckoutResolution(string(to), string(errorCode), s.now().Sub(started))
	s.logger.Info("Payment processed",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("status", string(to)),
		zap.String("error_code", string(errorCode)),
	)

	return result, nil
}

// replay re-reads an already-resolved transaction and returns its recorded
// outcome. No webhook is scheduled here; the resolving submission did that.
func (s *Service) replay(ctx context.Context, transactionID string) (*CheckoutResult, error) {
	txn, err := s.store.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.Status.IsTerminal() {
		return nil, domain.ErrTransactionAlreadyResolved
	}
	return resultFromTransaction(txn), nil
}

func (s *Service) scheduleWebhook(txn *domain.Transaction, result *CheckoutResult) {
	s.scheduler.Schedule(ports.WebhookJob{
		CallbackURL: txn.CallbackURL,
		Payload: ports.WebhookPayload{
			Event:         ports.EventForStatus(result.Status),
			TransactionID: result.TransactionID,
			Status:        result.Status,
			Amount:        result.Amount.InexactFloat64(),
			PaymentMethod: "card",
			ErrorCode:     result.ErrorCode,
			ErrorMessage:  result.ErrorMessage,
			Timestamp:     result.Timestamp.Format(time.RFC3339),
			Signature:     s.signer.Sign(result.TransactionID, result.Status),
		},
	})
}

func (s *Service) checkoutURL(transactionID string) string {
	return fmt.Sprintf("%s%s?transaction_id=%s", s.cfg.CheckoutBaseURL, checkoutPath, url.QueryEscape(transactionID))
}

func (s *Service) simulateNetworkLatency(ctx context.Context) error {
	span := s.cfg.NetworkLatencyMax - s.cfg.NetworkLatencyMin
	if s.cfg.NetworkLatencyMax <= 0 || span < 0 {
		return nil
	}
	delay := s.cfg.NetworkLatencyMin
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	return s.sleep(ctx, delay)
}

func validateCheckoutRequest(req CheckoutRequest, now time.Time) error {
	if req.TransactionID == "" {
		return domain.ErrMissingTransaction
	}
	if req.CardNumber == "" {
		return domain.ErrMissingCardNumber
	}
	if len([]rune(strings.TrimSpace(req.CardHolder))) < 3 {
		return domain.ErrInvalidCardHolder
	}
	if !isCVV(req.CVV) {
		return domain.ErrInvalidCVV
	}
	return validateExpiry(req.ExpiryMonth, req.ExpiryYear, now)
}

func validateExpiry(month, year string, now time.Time) error {
	monthNum, err := strconv.Atoi(month)
	if err != nil || monthNum < 1 || monthNum > 12 {
		return domain.ErrInvalidExpiryMonth
	}

	yearNum, err := strconv.Atoi(year)
	if err != nil {
		return domain.ErrInvalidExpiryYear
	}
	// Accept two-digit years
	if yearNum < 100 {
		yearNum += 2000
	}

	currentYear, currentMonth := now.Year(), int(now.Month())
	if yearNum < currentYear || (yearNum == currentYear && monthNum < currentMonth) {
		return domain.ErrCardExpired
	}
	// Guards against fat-finger input
	if yearNum > currentYear+20 {
		return domain.ErrInvalidExpiryYear
	}
	return nil
}

func errorMessageFor(code domain.ErrorCode) string {
	switch code {
	case "":
		return ""
	case domain.ErrorCodeInsufficientFunds:
		return "Card declined - insufficient funds"
	case domain.ErrorCodeCardExpired:
		return "Card expired"
	case domain.ErrorCodeFraudSuspected:
		return "Payment blocked - fraud suspected"
	case domain.ErrorCodeCardDeclined:
		return "Card declined"
	case domain.ErrorCodeInvalidCard:
		return "Invalid card number"
	default:
		return "Unknown error occurred"
	}
}

func resultFromTransaction(txn *domain.Transaction) *CheckoutResult {
	return &CheckoutResult{
		TransactionID: txn.TransactionID,
		Status:        txn.Status,
		Amount:        txn.Amount,
		PaymentMethod: "card",
		ErrorCode:     txn.ErrorCode,
		ErrorMessage:  txn.ErrorMessage,
		CardLast4:     last4FromMasked(txn.CardMasked),
		ReturnURL:     txn.ReturnURL,
		Timestamp:     txn.UpdatedAt,
	}
}

func last4FromMasked(masked string) string {
	if len(masked) < 4 {
		return ""
	}
	last4 := masked[len(masked)-4:]
	for _, r := range last4 {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return last4
}

func isAbsoluteHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isCVV(cvv string) bool {
	if len(cvv) < 3 || len(cvv) > 4 {
		return false
	}
	for _, r := range cvv {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
