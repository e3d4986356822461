package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LOY_002", "Not enough coins", http.StatusOK),
			expected: "[LOY_002] Not enough coins",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("LOY_001", "test", http.StatusNotFound).Unwrap())
}

func TestLoyaltyErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"AuthInvalid", ErrAuthInvalid(), "AUTH_001", 401},
		{"InvalidSession", ErrInvalidSession(), "AUTH_002", 401},
		{"NotFound", ErrNotFound("Reward"), "LOY_001", 404},
		{"InsufficientFunds", ErrInsufficientFunds(5), "LOY_002", 200},
		{"AlreadyRedeemed", ErrAlreadyRedeemed(), "LOY_003", 200},
		{"DuplicateScan", ErrDuplicateScan(), "LOY_004", 200},
		{"Validation", Validation("bad"), "VAL_001", 400},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
		{"Internal", InternalError(errors.New("x")), "SYS_001", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("purchase: %w", ErrAlreadyRedeemed())

	assert.True(t, Is(err, CodeAlreadyRedeemed))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeNotFound))
	assert.False(t, Is(nil, CodeNotFound))
}

func TestBalanceOf(t *testing.T) {
	b, ok := BalanceOf(fmt.Errorf("debit: %w", ErrInsufficientFunds(7)))
	assert.True(t, ok)
	assert.Equal(t, int64(7), b)

	_, ok = BalanceOf(ErrNotFound("Account"))
	assert.False(t, ok)
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Voucher")
	assert.Contains(t, err.Message, "Voucher")
	assert.Equal(t, CodeNotFound, err.Code)
}
