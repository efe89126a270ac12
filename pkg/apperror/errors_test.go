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
			appErr:   New("RED_006", "Already used", http.StatusConflict),
			expected: "[RED_006] Already used",
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
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("VAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("redeem: %w", ErrAlreadyRedeemed())

	assert.True(t, errors.Is(err, ErrAlreadyRedeemed()))
	assert.False(t, errors.Is(err, ErrAlreadyRated()))
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"AccountLocked", ErrAccountLocked(), "AUTH_004", 423},
		{"Blacklisted", ErrBlacklisted("fraud"), "AUTH_005", 403},
		{"InvalidRefreshToken", ErrInvalidRefreshToken(), "AUTH_006", 401},
		{"AccountDisabled", ErrAccountDisabled(), "AUTH_007", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Equal(t, KindAuthentication, tt.err.Kind)
		})
	}
}

func TestEmailExists_IsConflict(t *testing.T) {
	err := ErrEmailExists()
	assert.Equal(t, "AUTH_002", err.Code)
	assert.Equal(t, 409, err.HTTPStatus)
	assert.Equal(t, KindConflict, err.Kind)
}

func TestBlacklisted_CarriesReason(t *testing.T) {
	assert.Contains(t, ErrBlacklisted("qr code sharing").Message, "qr code sharing")
	assert.Equal(t, "Account has been blocked", ErrBlacklisted("").Message)
}

func TestRedemptionAndRatingErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code string
		kind Kind
	}{
		{"UnknownQrCode", ErrUnknownQrCode(), "RED_001", KindNotFound},
		{"CustomerBlacklisted", ErrCustomerBlacklisted(), "RED_002", KindAuthorization},
		{"MerchantProfileMissing", ErrMerchantProfileMissing(), "RED_003", KindNotFound},
		{"PromotionNotFound", ErrPromotionNotFound(), "RED_004", KindNotFound},
		{"PromotionNotValid", ErrPromotionNotValid(), "RED_005", KindValidation},
		{"AlreadyRedeemed", ErrAlreadyRedeemed(), "RED_006", KindConflict},
		{"RedemptionNotFound", ErrRedemptionNotFound(), "RAT_001", KindNotFound},
		{"AlreadyRated", ErrAlreadyRated(), "RAT_002", KindConflict},
		{"DuplicateRatingForMerchant", ErrDuplicateRatingForMerchant(), "RAT_003", KindConflict},
		{"RatingNotFound", ErrRatingNotFound(), "RAT_004", KindNotFound},
		{"InvalidScore", ErrInvalidScore(), "VAL_002", KindValidation},
		{"ImageLimit", ErrImageLimitExceeded(5), "VAL_004", KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))
	assert.Equal(t, KindInternal, dbErr.Kind)

	lockErr := ErrLockTimeout(inner)
	assert.Equal(t, "SYS_002", lockErr.Code)
	assert.Equal(t, 503, lockErr.HTTPStatus)

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_003", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrap: %w", ErrAlreadyRated())))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindRateLimit, KindOf(ErrRateLimitExceeded()))
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Category")
	assert.Contains(t, err.Message, "Category")
	assert.Equal(t, "RES_001", err.Code)
}
