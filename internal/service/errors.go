package service

import (
	"errors"

	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
)

// internalError maps an unexpected dependency failure to its API error.
// A row lock that could not be taken in time is retryable, so it surfaces
// as SYS_002 instead of a generic 500.
func internalError(err error) *apperror.AppError {
	if errors.Is(err, ports.ErrLockTimeout) {
		return apperror.ErrLockTimeout(err)
	}
	return apperror.InternalError(err)
}
