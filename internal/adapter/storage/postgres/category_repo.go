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

const categoryColumns = `id, name, slug, description, icon, parent_id, display_order, active,
	merchant_count, created_at, updated_at, deleted_at`

// CategoryRepo implements ports.CategoryRepository.
type CategoryRepo struct {
	pool Pool
}

// NewCategoryRepo creates a new CategoryRepo.
func NewCategoryRepo(pool Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.ParentID, &c.DisplayOrder,
		&c.Active, &c.MerchantCount, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a category.
func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (id, name, slug, description, icon, parent_id, display_order, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Slug, c.Description, c.Icon, c.ParentID, c.DisplayOrder,
		c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return writeError("insert category", err)
	}
	return nil
}

// GetByID fetches a live category by id.
func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND deleted_at IS NULL`
	c, err := scanCategory(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return c, nil
}

// List returns every live category by display order, then name.
func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE deleted_at IS NULL ORDER BY display_order, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// Update persists the editable category fields.
func (r *CategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	query := `UPDATE categories
		SET name=$1, slug=$2, description=$3, icon=$4, parent_id=$5, display_order=$6, active=$7, updated_at=NOW()
		WHERE id=$8 AND deleted_at IS NULL`
	_, err := r.pool.Exec(ctx, query,
		c.Name, c.Slug, c.Description, c.Icon, c.ParentID, c.DisplayOrder, c.Active, c.ID,
	)
	if err != nil {
		return writeError("update category", err)
	}
	return nil
}

// SoftDelete marks the category deleted, freeing its name and slug.
func (r *CategoryRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE categories SET deleted_at = $1, active = FALSE, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	return nil
}

// AdjustMerchantCount moves the merchant counter by delta, never below zero.
func (r *CategoryRepo) AdjustMerchantCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	query := `UPDATE categories SET merchant_count = GREATEST(merchant_count + $1, 0) WHERE id = $2`
	if _, err := on(r.pool, tx).Exec(ctx, query, delta, id); err != nil {
		return fmt.Errorf("adjust merchant count: %w", err)
	}
	return nil
}
