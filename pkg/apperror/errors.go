package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Handlers branch on these for business outcomes that are
// reported with a success flag rather than a transport failure.
const (
	CodeAuthInvalid       = "AUTH_001"
	CodeInvalidSession    = "AUTH_002"
	CodeNotFound          = "LOY_001"
	CodeInsufficientFunds = "LOY_002"
	CodeAlreadyRedeemed   = "LOY_003"
	CodeDuplicateScan     = "LOY_004"
	CodeValidation        = "VAL_001"
	CodeRateLimit         = "RATE_001"
	CodeInternal          = "SYS_001"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string                 `json:"error_code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a client-visible detail and returns the same error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// As extracts the *AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given error code.
func Is(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// ---- Authentication (AUTH) ----

func ErrAuthInvalid() *AppError {
	return New(CodeAuthInvalid, "Invalid Telegram initData (signature check failed)", http.StatusUnauthorized)
}

func ErrInvalidSession() *AppError {
	return New(CodeInvalidSession, "Invalid or expired session", http.StatusUnauthorized)
}

// ---- Loyalty Business Logic (LOY) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrInsufficientFunds reports the balance observed inside the debit transaction.
func ErrInsufficientFunds(balance int64) *AppError {
	return New(CodeInsufficientFunds, "Not enough coins", http.StatusOK).
		WithDetail("balance", balance)
}

func ErrAlreadyRedeemed() *AppError {
	return New(CodeAlreadyRedeemed, "Voucher has already been redeemed", http.StatusOK)
}

func ErrDuplicateScan() *AppError {
	return New(CodeDuplicateScan, "This QR code was already scanned.", http.StatusOK)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimit, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// BalanceOf returns the balance detail carried by an InsufficientFunds error.
func BalanceOf(err error) (int64, bool) {
	appErr, ok := As(err)
	if !ok || appErr.Details == nil {
		return 0, false
	}
	b, ok := appErr.Details["balance"].(int64)
	return b, ok
}
