package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its transport status.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindRateLimit      Kind = "rate_limit"
	KindInternal       Kind = "internal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Kind       Kind   `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Kind:       kindForStatus(httpStatus),
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Kind:       kindForStatus(httpStatus),
		Err:        err,
	}
}

// KindOf returns the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusLocked:
		return KindAuthentication
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusConflict:
		return KindConflict
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindInternal
	}
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid email or password", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountLocked() *AppError {
	return New("AUTH_004", "Account temporarily locked after too many failed attempts", http.StatusLocked)
}

// ErrBlacklisted is an authentication failure even though it renders as 403.
func ErrBlacklisted(reason string) *AppError {
	msg := "Account has been blocked"
	if reason != "" {
		msg = fmt.Sprintf("Account has been blocked. Reason: %s", reason)
	}
	e := New("AUTH_005", msg, http.StatusForbidden)
	e.Kind = KindAuthentication
	return e
}

func ErrInvalidRefreshToken() *AppError {
	return New("AUTH_006", "Invalid refresh token", http.StatusUnauthorized)
}

func ErrAccountDisabled() *AppError {
	e := New("AUTH_007", "Account is disabled", http.StatusForbidden)
	e.Kind = KindAuthentication
	return e
}

// ---- Authorization (ACL) ----

func ErrAccessDenied() *AppError {
	return New("ACL_001", "Access denied", http.StatusForbidden)
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error carrying the violated constraint.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidScore() *AppError {
	return New("VAL_002", "Score must be an integer between 1 and 5", http.StatusBadRequest)
}

func ErrInvalidPromotionWindow() *AppError {
	return New("VAL_003", "Promotion end date must be after its start date", http.StatusBadRequest)
}

func ErrImageLimitExceeded(max int) *AppError {
	return New("VAL_004", fmt.Sprintf("Gallery is limited to %d images", max), http.StatusBadRequest)
}

func ErrCategoryCycle() *AppError {
	return New("VAL_005", "Category cannot be placed under itself or one of its descendants", http.StatusBadRequest)
}

// ---- Redemption (RED) ----

func ErrUnknownQrCode() *AppError {
	return New("RED_001", "Unknown QR code", http.StatusNotFound)
}

func ErrCustomerBlacklisted() *AppError {
	return New("RED_002", "Customer is blocked", http.StatusForbidden)
}

func ErrMerchantProfileMissing() *AppError {
	return New("RED_003", "Merchant profile not found", http.StatusNotFound)
}

func ErrPromotionNotFound() *AppError {
	return New("RED_004", "Promotion not found", http.StatusNotFound)
}

func ErrPromotionNotValid() *AppError {
	return New("RED_005", "Promotion expired or inactive", http.StatusBadRequest)
}

func ErrAlreadyRedeemed() *AppError {
	return New("RED_006", "Promotion already used by this customer", http.StatusConflict)
}

// ---- Rating (RAT) ----

func ErrRedemptionNotFound() *AppError {
	return New("RAT_001", "Redemption not found", http.StatusNotFound)
}

func ErrAlreadyRated() *AppError {
	return New("RAT_002", "Redemption already rated", http.StatusConflict)
}

func ErrDuplicateRatingForMerchant() *AppError {
	return New("RAT_003", "Merchant already rated by this customer", http.StatusConflict)
}

func ErrRatingNotFound() *AppError {
	return New("RAT_004", "Rating not found", http.StatusNotFound)
}

// ---- Generic resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAccountNotFound() *AppError {
	return New("RES_002", "Account not found", http.StatusNotFound)
}

func ErrConflict(message string) *AppError {
	return New("RES_003", message, http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
