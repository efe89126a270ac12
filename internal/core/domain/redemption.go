package domain

import (
	"time"

	"github.com/google/uuid"
)

// Redemption records one merchant applying one promotion to one customer.
// A (customer, promotion) pair can be redeemed once, ever.
type Redemption struct {
	ID                uuid.UUID `json:"id"`
	CustomerAccountID uuid.UUID `json:"customer_account_id"`
	MerchantID        uuid.UUID `json:"merchant_id"`
	PromotionID       uuid.UUID `json:"promotion_id"`
	RedeemedAt        time.Time `json:"redeemed_at"`
	Rated             bool      `json:"rated"`
}

// RedemptionReceipt is what the scanning merchant gets back.
type RedemptionReceipt struct {
	Redemption         Redemption `json:"redemption"`
	CustomerFirstName  string     `json:"customer_first_name"`
	CustomerLastName   string     `json:"customer_last_name"`
	PromotionTitle     string     `json:"promotion_title"`
	FirstVisitCustomer bool       `json:"first_visit_customer"`
}
