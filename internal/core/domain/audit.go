package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister        AuditAction = "REGISTER"
	AuditActionLogin           AuditAction = "LOGIN"
	AuditActionProviderLogin   AuditAction = "PROVIDER_LOGIN"
	AuditActionRedeem          AuditAction = "REDEEM"
	AuditActionRate            AuditAction = "RATE"
	AuditActionDeleteRating    AuditAction = "DELETE_RATING"
	AuditActionBlacklist       AuditAction = "BLACKLIST"
	AuditActionUnblacklist     AuditAction = "UNBLACKLIST"
	AuditActionPromotionWrite  AuditAction = "PROMOTION_WRITE"
	AuditActionMerchantProfile AuditAction = "MERCHANT_PROFILE"
	AuditActionDeleteAccount   AuditAction = "DELETE_ACCOUNT"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    *uuid.UUID  `json:"account_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
