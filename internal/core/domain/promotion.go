package domain

import (
	"time"

	"github.com/google/uuid"
)

// Promotion is a time-bounded offer published by one merchant.
type Promotion struct {
	ID              uuid.UUID  `json:"id"`
	MerchantID      uuid.UUID  `json:"merchant_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Active          bool       `json:"active"`
	UsageCount      int64      `json:"usage_count"`
	UniqueCustomers int64      `json:"unique_customers"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`
}

// IsValidAt reports whether the promotion can be redeemed at t: the manual
// flag must be on and t must fall inside [StartsAt, EndsAt], both inclusive.
func (p *Promotion) IsValidAt(t time.Time) bool {
	return p.Active && !t.Before(p.StartsAt) && !t.After(p.EndsAt)
}

// ValidWindow reports whether the window end is strictly after its start.
func ValidWindow(start, end time.Time) bool {
	return end.After(start)
}
