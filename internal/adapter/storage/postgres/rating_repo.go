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

const ratingColumns = `id, merchant_id, customer_account_id, redemption_id, score, comment, created_at, deleted_at`

// RatingRepo implements ports.RatingRepository. Deleted rows stay in the
// table so the unique constraints keep holding their slots.
type RatingRepo struct {
	pool Pool
}

// NewRatingRepo creates a new RatingRepo.
func NewRatingRepo(pool Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

func scanRating(row rowScanner) (*domain.Rating, error) {
	rt := &domain.Rating{}
	err := row.Scan(
		&rt.ID, &rt.MerchantID, &rt.CustomerAccountID, &rt.RedemptionID,
		&rt.Score, &rt.Comment, &rt.CreatedAt, &rt.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// Create inserts a rating.
func (r *RatingRepo) Create(ctx context.Context, tx pgx.Tx, rt *domain.Rating) error {
	query := `INSERT INTO ratings (id, merchant_id, customer_account_id, redemption_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := on(r.pool, tx).Exec(ctx, query,
		rt.ID, rt.MerchantID, rt.CustomerAccountID, rt.RedemptionID, rt.Score, rt.Comment, rt.CreatedAt,
	)
	if err != nil {
		return writeError("insert rating", err)
	}
	return nil
}

// ExistsForMerchantCustomer reports whether the customer ever rated the
// merchant, deleted ratings included.
func (r *RatingRepo) ExistsForMerchantCustomer(ctx context.Context, tx pgx.Tx, merchantID, customerAccountID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ratings WHERE merchant_id = $1 AND customer_account_id = $2)`
	var exists bool
	if err := on(r.pool, tx).QueryRow(ctx, query, merchantID, customerAccountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check prior rating: %w", err)
	}
	return exists, nil
}

// GetByIDForUpdate fetches and row-locks a live rating.
func (r *RatingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	rt, err := scanRating(on(r.pool, tx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, readError("get rating for update", err)
	}
	return rt, nil
}

// SoftDelete marks the rating deleted.
func (r *RatingRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE ratings SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	if _, err := on(r.pool, tx).Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("soft delete rating: %w", err)
	}
	return nil
}

func (r *RatingRepo) scanAll(rows pgx.Rows) ([]domain.Rating, error) {
	defer rows.Close()
	ratings := []domain.Rating{}
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, *rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

// ListByMerchant returns a merchant's live ratings, newest first.
func (r *RatingRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Rating, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM ratings WHERE merchant_id = $1 AND deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, countQuery, merchantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ratings: %w", err)
	}

	limit, offset := limitOffset(page, pageSize)
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE merchant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, merchantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list merchant ratings: %w", err)
	}
	ratings, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return ratings, total, nil
}

// ListByCustomer returns a customer's live ratings, newest first.
func (r *RatingRepo) ListByCustomer(ctx context.Context, customerAccountID uuid.UUID) ([]domain.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE customer_account_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, query, customerAccountID)
	if err != nil {
		return nil, fmt.Errorf("list customer ratings: %w", err)
	}
	return r.scanAll(rows)
}
