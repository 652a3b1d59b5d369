package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code           string `json:"error_code"`
	Message        string `json:"message"`
	HTTPStatus     int    `json:"-"`
	UpstreamStatus int    `json:"-"` // Status reported by the Open Payments server, 0 if none
	Err            error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// HasCode reports whether any error in err's chain is an AppError with code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error kinds surfaced by the transfer choreography.
const (
	CodeValidation        = "VAL_001"
	CodeResolution        = "RES_001"
	CodeGrantNotFinalized = "GRANT_001"
	CodeGrantNotReady     = "GRANT_002"
	CodeAdapter           = "OP_001"
	CodeTransferNotFound  = "TRF_001"
	CodeTransferState     = "TRF_002"
)

// ---- Choreography (VAL / RES / GRANT / OP / TRF) ----

// Validation rejects malformed caller input before any upstream call.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrResolution(walletURL string, err error) *AppError {
	return Wrap(CodeResolution, fmt.Sprintf("wallet address %s could not be resolved", walletURL), http.StatusNotFound, err)
}

// ErrGrantNotFinalized signals a grant type that must be immediate came back
// pending. Not retryable.
func ErrGrantNotFinalized(accessType string) *AppError {
	return New(CodeGrantNotFinalized, fmt.Sprintf("expected %s grant to be finalized", accessType), http.StatusBadGateway)
}

// ErrGrantNotReady signals continuation before the user approved the grant.
// The caller may retry the continuation later.
func ErrGrantNotReady(err error) *AppError {
	return Wrap(CodeGrantNotReady, "grant has not been authorized yet", http.StatusConflict, err)
}

// ErrAdapter carries an upstream failure with the upstream status and message.
func ErrAdapter(upstreamStatus int, message string, err error) *AppError {
	if message == "" {
		message = "open payments request failed"
	}
	return &AppError{
		Code:           CodeAdapter,
		Message:        message,
		HTTPStatus:     http.StatusBadGateway,
		UpstreamStatus: upstreamStatus,
		Err:            err,
	}
}

func ErrTransferNotFound() *AppError {
	return New(CodeTransferNotFound, "transfer not found", http.StatusNotFound)
}

func ErrTransferState(state string) *AppError {
	return New(CodeTransferState, fmt.Sprintf("transfer cannot be completed from state %s", state), http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
