package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxGalleryImages caps the merchant gallery. The cap is applied by the write
// itself, not only by request validation.
const MaxGalleryImages = 5

// OpeningHours describes one weekday.
type OpeningHours struct {
	Open  bool   `json:"open"`
	Start string `json:"start,omitempty"` // HH:MM
	End   string `json:"end,omitempty"`   // HH:MM
}

// WeeklyHours is keyed by lower-case English weekday name.
type WeeklyHours map[string]OpeningHours

// Weekdays lists the accepted WeeklyHours keys.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Merchant is the merchant profile owned by a merchant account.
type Merchant struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	BusinessName     string          `json:"business_name"`
	Description      *string         `json:"description,omitempty"`
	CategoryID       uuid.UUID       `json:"category_id"`
	Address          string          `json:"address"`
	City             string          `json:"city"`
	PostalCode       *string         `json:"postal_code,omitempty"`
	Phone            *string         `json:"phone,omitempty"`
	Website          *string         `json:"website,omitempty"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	PrimaryImage     *string         `json:"primary_image,omitempty"`
	Images           []string        `json:"images"`
	Hours            WeeklyHours     `json:"opening_hours,omitempty"`
	Active           bool            `json:"active"`
	Verified         bool            `json:"verified"`
	Blacklisted      bool            `json:"blacklisted"`
	BlacklistReason  *string         `json:"blacklist_reason,omitempty"`
	BlacklistedAt    *time.Time      `json:"blacklisted_at,omitempty"`
	TotalVisits      int64           `json:"total_visits"`
	TotalRedemptions int64           `json:"total_redemptions"`
	UniqueCustomers  int64           `json:"unique_customers"`
	RatingAverage    decimal.Decimal `json:"rating_average"`
	RatingCount      int64           `json:"rating_count"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"-"`
	DistanceKm       *float64        `json:"distance_km,omitempty"` // set by proximity search only
}

// IsOperating returns true if the merchant can be shown publicly.
func (m *Merchant) IsOperating() bool {
	return m.Active && !m.Blacklisted && m.DeletedAt == nil
}

// ValidCoordinates reports whether lat/lon are within the WGS84 ranges.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// MerchantStats is the merchant dashboard summary.
type MerchantStats struct {
	TotalVisits        int64           `json:"total_visits"`
	TotalRedemptions   int64           `json:"total_redemptions"`
	UniqueCustomers    int64           `json:"unique_customers"`
	RatingAverage      decimal.Decimal `json:"rating_average"`
	RatingCount        int64           `json:"rating_count"`
	ActivePromotions   int64           `json:"active_promotions"`
	RedemptionsLast30d int64           `json:"redemptions_last_30_days"`
}
