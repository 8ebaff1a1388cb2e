package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a machine-readable error code surfaced to the host portal.
type ErrorCode string

const (
	// Validation errors - rejected before any state is created
	ErrorCodeInvalidAmount      ErrorCode = "invalid_amount"
	ErrorCodeMissingCerereID    ErrorCode = "missing_cerere_id"
	ErrorCodeInvalidReturnURL   ErrorCode = "invalid_return_url"
	ErrorCodeInvalidCallbackURL ErrorCode = "invalid_callback_url"
	ErrorCodeMissingTransaction ErrorCode = "missing_transaction_id"
	ErrorCodeMissingCardNumber  ErrorCode = "missing_card_number"
	ErrorCodeInvalidCardHolder  ErrorCode = "invalid_card_holder"
	ErrorCodeInvalidCVV         ErrorCode = "invalid_cvv"
	ErrorCodeInvalidExpiryMonth ErrorCode = "invalid_expiry_month"
	ErrorCodeInvalidExpiryYear  ErrorCode = "invalid_expiry_year"
	ErrorCodeCardExpired        ErrorCode = "card_expired"

	// Gateway-domain error codes - recorded on a terminal failed transaction
	ErrorCodeInvalidCard       ErrorCode = "invalid_card"
	ErrorCodeInsufficientFunds ErrorCode = "insufficient_funds"
	ErrorCodeCardDeclined      ErrorCode = "card_declined"
	ErrorCodeFraudSuspected    ErrorCode = "fraud_suspected"
	ErrorCodeUnknownError      ErrorCode = "unknown_error"

	// Infrastructure errors
	ErrorCodeTransactionNotFound ErrorCode = "transaction_not_found"
	ErrorCodeTransactionExpired  ErrorCode = "transaction_expired"
	ErrorCodeAlreadyResolved     ErrorCode = "transaction_already_resolved"
	ErrorCodeInvalidTransition   ErrorCode = "invalid_status_transition"
	ErrorCodeStoreError          ErrorCode = "store_error"
	ErrorCodeGatewayError        ErrorCode = "gateway_error"
)

// DomainError is a structured error with a machine-readable code, suitable
// for mapping onto an HTTP response by the host's route handlers.
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error.
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain error code.
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// IsDomainError checks whether err carries the given code.
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the code from an error, or "" if it is not a
// DomainError.
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError reports whether err was rejected before any transaction
// state was created.
func IsValidationError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeInvalidAmount, ErrorCodeMissingCerereID,
		ErrorCodeInvalidReturnURL, ErrorCodeInvalidCallbackURL,
		ErrorCodeMissingTransaction, ErrorCodeMissingCardNumber,
		ErrorCodeInvalidCardHolder, ErrorCodeInvalidCVV,
		ErrorCodeInvalidExpiryMonth, ErrorCodeInvalidExpiryYear,
		ErrorCodeCardExpired:
		return true
	}
	return false
}

// HTTPStatus maps an error to the status the host's route handler should
// return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsDomainError(err, ErrorCodeTransactionNotFound):
		return http.StatusNotFound
	case IsDomainError(err, ErrorCodeTransactionExpired),
		IsDomainError(err, ErrorCodeAlreadyResolved),
		IsDomainError(err, ErrorCodeInvalidTransition):
		return http.StatusConflict
	case IsValidationError(err):
		return http.StatusBadRequest
	case IsDomainError(err, ErrorCodeGatewayError):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Sentinel instances for the common cases.
var (
	ErrInvalidAmount      = NewDomainError(ErrorCodeInvalidAmount, "invalid amount")
	ErrMissingCerereID    = NewDomainError(ErrorCodeMissingCerereID, "missing cerere_id")
	ErrInvalidReturnURL   = NewDomainError(ErrorCodeInvalidReturnURL, "invalid return_url")
	ErrInvalidCallbackURL = NewDomainError(ErrorCodeInvalidCallbackURL, "invalid callback_url")
	ErrMissingTransaction = NewDomainError(ErrorCodeMissingTransaction, "missing transaction_id")
	ErrMissingCardNumber  = NewDomainError(ErrorCodeMissingCardNumber, "missing card_number")
	ErrInvalidCardHolder  = NewDomainError(ErrorCodeInvalidCardHolder, "invalid card_holder")
	ErrInvalidCVV         = NewDomainError(ErrorCodeInvalidCVV, "invalid CVV")
	ErrInvalidExpiryMonth = NewDomainError(ErrorCodeInvalidExpiryMonth, "invalid expiry month")
	ErrInvalidExpiryYear  = NewDomainError(ErrorCodeInvalidExpiryYear, "invalid expiry year")
	ErrCardExpired        = NewDomainError(ErrorCodeCardExpired, "card expired")

	ErrTransactionNotFound         = NewDomainError(ErrorCodeTransactionNotFound, "transaction not found")
	ErrTransactionExpired          = NewDomainError(ErrorCodeTransactionExpired, "checkout session expired")
	ErrTransactionAlreadyResolved  = NewDomainError(ErrorCodeAlreadyResolved, "transaction already resolved")
	ErrInvalidStatusTransition     = NewDomainError(ErrorCodeInvalidTransition, "status transition not allowed")
	ErrProductionVerifyUnavailable = NewDomainError(ErrorCodeGatewayError, "production webhook verification not implemented")
)
