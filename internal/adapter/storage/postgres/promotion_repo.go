package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const promotionColumns = `p.id, p.merchant_id, p.title, p.description, p.starts_at, p.ends_at, p.active,
	p.usage_count, p.unique_customers, p.created_at, p.updated_at, p.deleted_at`

// PromotionRepo implements ports.PromotionRepository.
type PromotionRepo struct {
	pool Pool
}

// NewPromotionRepo creates a new PromotionRepo.
func NewPromotionRepo(pool Pool) *PromotionRepo {
	return &PromotionRepo{pool: pool}
}

func scanPromotion(row rowScanner) (*domain.Promotion, error) {
	p := &domain.Promotion{}
	err := row.Scan(
		&p.ID, &p.MerchantID, &p.Title, &p.Description, &p.StartsAt, &p.EndsAt, &p.Active,
		&p.UsageCount, &p.UniqueCustomers, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PromotionRepo) getOne(ctx context.Context, op, where string, args ...any) (*domain.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions p WHERE ` + where + ` AND p.deleted_at IS NULL`
	p, err := scanPromotion(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, readError(op, err)
	}
	return p, nil
}

func (r *PromotionRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.Promotion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, readError(op, err)
	}
	defer rows.Close()

	promotions := []domain.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return promotions, nil
}

// Create inserts a promotion.
func (r *PromotionRepo) Create(ctx context.Context, p *domain.Promotion) error {
	query := `INSERT INTO promotions (id, merchant_id, title, description, starts_at, ends_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.Title, p.Description, p.StartsAt, p.EndsAt, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return writeError("insert promotion", err)
	}
	return nil
}

// GetByID fetches a live promotion by id.
func (r *PromotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Promotion, error) {
	return r.getOne(ctx, "get promotion by id", `p.id = $1`, id)
}

// GetForMerchant fetches a live promotion owned by merchantID.
func (r *PromotionRepo) GetForMerchant(ctx context.Context, id, merchantID uuid.UUID) (*domain.Promotion, error) {
	return r.getOne(ctx, "get promotion for merchant", `p.id = $1 AND p.merchant_id = $2`, id, merchantID)
}

// Update persists the editable promotion fields.
func (r *PromotionRepo) Update(ctx context.Context, p *domain.Promotion) error {
	query := `UPDATE promotions SET title=$1, description=$2, starts_at=$3, ends_at=$4, active=$5, updated_at=NOW()
		WHERE id=$6 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, p.Title, p.Description, p.StartsAt, p.EndsAt, p.Active, p.ID); err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	return nil
}

// SoftDelete marks the promotion deleted.
func (r *PromotionRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE promotions SET deleted_at = $1, active = FALSE, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("soft delete promotion: %w", err)
	}
	return nil
}

// ListByMerchant returns a merchant's live promotions, newest first.
func (r *PromotionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions p
		WHERE p.merchant_id = $1 AND p.deleted_at IS NULL ORDER BY p.created_at DESC, p.id`
	return r.list(ctx, "list merchant promotions", query, merchantID)
}

// ListValid returns promotions valid at params.At whose merchant is
// operating, ending soonest first.
func (r *PromotionRepo) ListValid(ctx context.Context, params ports.PromotionListParams) ([]domain.Promotion, error) {
	conditions := []string{
		"p.deleted_at IS NULL", "p.active = TRUE", "p.starts_at <= $1", "p.ends_at >= $1",
		"m.deleted_at IS NULL", "m.active = TRUE", "m.blacklisted = FALSE",
	}
	args := []any{params.At}
	argIdx := 2

	if params.MerchantID != nil {
		conditions = append(conditions, fmt.Sprintf("p.merchant_id = $%d", argIdx))
		args = append(args, *params.MerchantID)
		argIdx++
	}
	if params.City != nil {
		conditions = append(conditions, fmt.Sprintf("lower(m.city) = lower($%d)", argIdx))
		args = append(args, *params.City)
		argIdx++
	}
	if params.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("m.category_id = $%d", argIdx))
		args = append(args, *params.CategoryID)
	}

	query := `SELECT ` + promotionColumns + ` FROM promotions p JOIN merchants m ON m.id = p.merchant_id
		WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY p.ends_at, p.id`
	return r.list(ctx, "list valid promotions", query, args...)
}

// CountValid counts a merchant's promotions valid at t.
func (r *PromotionRepo) CountValid(ctx context.Context, merchantID uuid.UUID, at time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM promotions
		WHERE merchant_id = $1 AND deleted_at IS NULL AND active = TRUE AND starts_at <= $2 AND ends_at >= $2`
	var n int64
	if err := r.pool.QueryRow(ctx, query, merchantID, at).Scan(&n); err != nil {
		return 0, fmt.Errorf("count valid promotions: %w", err)
	}
	return n, nil
}

// ApplyRedemption bumps the usage counters.
func (r *PromotionRepo) ApplyRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID, newCustomer bool) error {
	query := `UPDATE promotions SET usage_count = usage_count + 1,
		unique_customers = unique_customers + CASE WHEN $1 THEN 1 ELSE 0 END, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`
	if _, err := on(r.pool, tx).Exec(ctx, query, newCustomer, id); err != nil {
		return fmt.Errorf("apply promotion redemption: %w", err)
	}
	return nil
}
