package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qr-loyalty-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const redemptionColumns = `id, customer_account_id, merchant_id, promotion_id, redeemed_at, rated`

// RedemptionRepo implements ports.RedemptionRepository.
type RedemptionRepo struct {
	pool Pool
}

// NewRedemptionRepo creates a new RedemptionRepo.
func NewRedemptionRepo(pool Pool) *RedemptionRepo {
	return &RedemptionRepo{pool: pool}
}

func scanRedemption(row rowScanner) (*domain.Redemption, error) {
	red := &domain.Redemption{}
	if err := row.Scan(&red.ID, &red.CustomerAccountID, &red.MerchantID, &red.PromotionID, &red.RedeemedAt, &red.Rated); err != nil {
		return nil, err
	}
	return red, nil
}

// Create inserts a redemption. The (customer, promotion) unique constraint
// rejects a second redemption of the same promotion.
func (r *RedemptionRepo) Create(ctx context.Context, tx pgx.Tx, red *domain.Redemption) error {
	query := `INSERT INTO redemptions (id, customer_account_id, merchant_id, promotion_id, redeemed_at, rated)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := on(r.pool, tx).Exec(ctx, query,
		red.ID, red.CustomerAccountID, red.MerchantID, red.PromotionID, red.RedeemedAt, red.Rated,
	)
	if err != nil {
		return writeError("insert redemption", err)
	}
	return nil
}

// ExistsForCustomerAtMerchant reports whether the customer has redeemed
// anything at the merchant before.
func (r *RedemptionRepo) ExistsForCustomerAtMerchant(ctx context.Context, tx pgx.Tx, customerAccountID, merchantID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM redemptions WHERE customer_account_id = $1 AND merchant_id = $2)`
	var exists bool
	if err := on(r.pool, tx).QueryRow(ctx, query, customerAccountID, merchantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check prior redemption: %w", err)
	}
	return exists, nil
}

// GetForCustomerForUpdate fetches and row-locks a redemption owned by the customer.
func (r *RedemptionRepo) GetForCustomerForUpdate(ctx context.Context, tx pgx.Tx, id, customerAccountID uuid.UUID) (*domain.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1 AND customer_account_id = $2 FOR UPDATE`
	red, err := scanRedemption(on(r.pool, tx).QueryRow(ctx, query, id, customerAccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, readError("get redemption for update", err)
	}
	return red, nil
}

// MarkRated sets the rated flag.
func (r *RedemptionRepo) MarkRated(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := on(r.pool, tx).Exec(ctx, `UPDATE redemptions SET rated = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark redemption rated: %w", err)
	}
	return nil
}

func (r *RedemptionRepo) listBy(ctx context.Context, column string, id uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM redemptions WHERE `+column+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count redemptions: %w", err)
	}

	limit, offset := limitOffset(page, pageSize)
	query := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE ` + column + ` = $1
		ORDER BY redeemed_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []domain.Redemption{}
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *red)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate redemptions: %w", err)
	}
	return redemptions, total, nil
}

// ListByMerchant returns a merchant's redemptions, newest first.
func (r *RedemptionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error) {
	return r.listBy(ctx, "merchant_id", merchantID, page, pageSize)
}

// ListByCustomer returns a customer's redemptions, newest first.
func (r *RedemptionRepo) ListByCustomer(ctx context.Context, customerAccountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error) {
	return r.listBy(ctx, "customer_account_id", customerAccountID, page, pageSize)
}

// CountSince counts a merchant's redemptions at or after since.
func (r *RedemptionRepo) CountSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM redemptions WHERE merchant_id = $1 AND redeemed_at >= $2`
	if err := r.pool.QueryRow(ctx, query, merchantID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent redemptions: %w", err)
	}
	return n, nil
}
