package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestInternalError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"plain failure", errors.New("connection reset"), "SYS_001", http.StatusInternalServerError},
		{"lock timeout", fmt.Errorf("lock account: %w", ports.ErrLockTimeout), "SYS_002", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := internalError(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestAuthService_Authenticate_LockTimeout(t *testing.T) {
	svc, accountRepo, _, _ := setupAuthService(t)

	accountRepo.EXPECT().GetByEmailForUpdate(gomock.Any(), gomock.Any(), "busy@example.com").
		Return(nil, fmt.Errorf("get account by email for update: %w", ports.ErrLockTimeout))

	_, err := svc.Authenticate(context.Background(), "busy@example.com", "x")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_002", appErr.Code)
	assert.ErrorIs(t, err, ports.ErrLockTimeout)
}
