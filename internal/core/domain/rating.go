package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Score bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is a customer's single, immutable score for a merchant. It is tied
// one-to-one to the redemption that made it possible.
type Rating struct {
	ID                uuid.UUID  `json:"id"`
	MerchantID        uuid.UUID  `json:"merchant_id"`
	CustomerAccountID uuid.UUID  `json:"customer_account_id"`
	RedemptionID      uuid.UUID  `json:"redemption_id"`
	Score             int        `json:"score"`
	Comment           *string    `json:"comment,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	DeletedAt         *time.Time `json:"-"`
}

// ValidScore reports whether s is an accepted score.
func ValidScore(s int) bool {
	return s >= MinScore && s <= MaxScore
}

// RatingAggregate is a merchant's running average and count.
type RatingAggregate struct {
	Average decimal.Decimal `json:"average"`
	Count   int64           `json:"count"`
}

const averagePlaces = 2

// AddScore folds one score into the aggregate:
// round2((avg*count + score) / (count+1)).
func (a RatingAggregate) AddScore(score int) RatingAggregate {
	count := decimal.NewFromInt(a.Count)
	sum := a.Average.Mul(count).Add(decimal.NewFromInt(int64(score)))
	newCount := a.Count + 1
	return RatingAggregate{
		Average: sum.Div(decimal.NewFromInt(newCount)).Round(averagePlaces),
		Count:   newCount,
	}
}

// RemoveScore reverses AddScore. Removing the last score resets the average
// to zero.
func (a RatingAggregate) RemoveScore(score int) RatingAggregate {
	newCount := a.Count - 1
	if newCount <= 0 {
		return RatingAggregate{Average: decimal.Zero, Count: 0}
	}
	sum := a.Average.Mul(decimal.NewFromInt(a.Count)).Sub(decimal.NewFromInt(int64(score)))
	return RatingAggregate{
		Average: sum.Div(decimal.NewFromInt(newCount)).Round(averagePlaces),
		Count:   newCount,
	}
}
