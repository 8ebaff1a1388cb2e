package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := domain.WrapError(domain.ErrorCodeStoreError, "insert failed", cause)

	assert.Contains(t, err.Error(), "store_error")
	assert.Contains(t, err.Error(), "insert failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := domain.NewDomainError(domain.ErrorCodeInvalidAmount, "invalid amount").
		WithDetail("amount", "-5.00")

	require.NotNil(t, err.Details)
	assert.Equal(t, "-5.00", err.Details["amount"])
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, domain.ErrorCodeInvalidCVV, domain.GetErrorCode(domain.ErrInvalidCVV))
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(errors.New("plain error")))
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(nil))

	// Codes survive fmt.Errorf wrapping
	wrapped := fmt.Errorf("submit checkout: %w", domain.ErrTransactionExpired)
	assert.Equal(t, domain.ErrorCodeTransactionExpired, domain.GetErrorCode(wrapped))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, domain.IsValidationError(domain.ErrInvalidAmount))
	assert.True(t, domain.IsValidationError(domain.ErrCardExpired))
	assert.True(t, domain.IsValidationError(domain.ErrMissingCardNumber))

	assert.False(t, domain.IsValidationError(domain.ErrTransactionNotFound))
	assert.False(t, domain.IsValidationError(domain.ErrTransactionAlreadyResolved))
	assert.False(t, domain.IsValidationError(errors.New("plain error")))
}

func TestErrInvalidStatusTransition_HasOwnCode(t *testing.T) {
	// An illegal transition is a state-machine violation, not a replay; the
	// two must stay distinguishable by code.
	assert.Equal(t, domain.ErrorCodeInvalidTransition, domain.GetErrorCode(domain.ErrInvalidStatusTransition))
	assert.NotEqual(t,
		domain.GetErrorCode(domain.ErrTransactionAlreadyResolved),
		domain.GetErrorCode(domain.ErrInvalidStatusTransition),
	)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{domain.ErrTransactionNotFound, http.StatusNotFound},
		{domain.ErrTransactionExpired, http.StatusConflict},
		{domain.ErrTransactionAlreadyResolved, http.StatusConflict},
		{domain.ErrInvalidStatusTransition, http.StatusConflict},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrInvalidCVV, http.StatusBadRequest},
		{domain.ErrProductionVerifyUnavailable, http.StatusBadGateway},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, domain.HTTPStatus(tt.err), "err: %v", tt.err)
	}
}
