package memory

import "context"

// HealthCheck implements ports.HealthChecker for the in-process store.
type HealthCheck struct {
	store *Store
}

func NewHealthCheck(store *Store) *HealthCheck {
	return &HealthCheck{store: store}
}

// Ping fails only when ctx is already done; the store has no connection to lose.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (h *HealthCheck) Name() string {
	return "memory"
}

func (h *HealthCheck) Critical() bool {
	return true
}
