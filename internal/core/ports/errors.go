package ports

import (
	"errors"
	"fmt"
)

// ErrLockTimeout marks a storage error caused by giving up on a row lock.
var ErrLockTimeout = errors.New("row lock wait timed out")

// Unique constraints the services translate into domain conflicts.
const (
	ConstraintAccountEmail                = "accounts_email_key"
	ConstraintAccountGoogle               = "accounts_google_id_key"
	ConstraintAccountApple                = "accounts_apple_id_key"
	ConstraintCustomerQRToken             = "customer_profiles_qr_token_key"
	ConstraintCustomerAccount             = "customer_profiles_account_id_key"
	ConstraintMerchantAccount             = "merchants_account_id_key"
	ConstraintCategoryName                = "categories_name_key"
	ConstraintCategorySlug                = "categories_slug_key"
	ConstraintRedemptionCustomerPromotion = "redemptions_customer_promotion_key"
	ConstraintRatingMerchantCustomer      = "ratings_merchant_customer_key"
	ConstraintRatingRedemption            = "ratings_redemption_key"
)

// ConstraintError reports a write rejected by a unique constraint.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unique constraint %s violated: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("unique constraint %s violated", e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether err is a ConstraintError on one of names.
// With no names it matches any constraint.
func IsConstraint(err error, names ...string) bool {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if ce.Constraint == n {
			return true
		}
	}
	return false
}
