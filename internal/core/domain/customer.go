package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QRTokenPrefix marks every customer QR token.
const QRTokenPrefix = "QRC_"

// CustomerProfile is the customer side of an account. QRToken never changes
// once minted.
type CustomerProfile struct {
	ID                uuid.UUID   `json:"id"`
	AccountID         uuid.UUID   `json:"account_id"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	PhoneEncrypted    *string     `json:"-"`
	Phone             *string     `json:"phone,omitempty"`
	City              *string     `json:"city,omitempty"`
	QRToken           string      `json:"qr_token"`
	ScansCount        int64       `json:"scans_count"`
	RatingsGivenCount int64       `json:"ratings_given_count"`
	Favorites         []uuid.UUID `json:"favorites"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	DeletedAt         *time.Time  `json:"-"`
}

// NewQRToken mints an opaque QR token: the prefix followed by 32 hex chars.
func NewQRToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating qr token: %w", err)
	}
	return QRTokenPrefix + hex.EncodeToString(b), nil
}

// HasFavorite reports whether merchantID is in the favorites set.
func (c *CustomerProfile) HasFavorite(merchantID uuid.UUID) bool {
	for _, id := range c.Favorites {
		if id == merchantID {
			return true
		}
	}
	return false
}

// CustomerStats summarises a customer's activity.
type CustomerStats struct {
	ScansCount        int64 `json:"scans_count"`
	RatingsGivenCount int64 `json:"ratings_given_count"`
	FavoritesCount    int   `json:"favorites_count"`
}
