package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const merchantColumns = `id, account_id, business_name, description, category_id, address, city, postal_code,
	phone, website, latitude, longitude, primary_image, images, opening_hours, active, verified,
	blacklisted, blacklist_reason, blacklisted_at, total_visits, total_redemptions, unique_customers,
	rating_average::text, rating_count, created_at, updated_at, deleted_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

func scanMerchant(row rowScanner) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	var (
		hours   []byte
		average string
	)
	err := row.Scan(
		&m.ID, &m.AccountID, &m.BusinessName, &m.Description, &m.CategoryID, &m.Address,
		&m.City, &m.PostalCode, &m.Phone, &m.Website, &m.Latitude, &m.Longitude,
		&m.PrimaryImage, &m.Images, &hours, &m.Active, &m.Verified, &m.Blacklisted,
		&m.BlacklistReason, &m.BlacklistedAt, &m.TotalVisits, &m.TotalRedemptions,
		&m.UniqueCustomers, &average, &m.RatingCount, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if m.Images == nil {
		m.Images = []string{}
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &m.Hours); err != nil {
			return nil, fmt.Errorf("decode opening hours: %w", err)
		}
	}
	if m.RatingAverage, err = decimal.NewFromString(average); err != nil {
		return nil, fmt.Errorf("decode rating average: %w", err)
	}
	return m, nil
}

func encodeHours(h domain.WeeklyHours) ([]byte, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

func (r *MerchantRepo) getOne(ctx context.Context, q querier, op, where string, args ...any) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE ` + where
	m, err := scanMerchant(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, readError(op, err)
	}
	return m, nil
}

// Create inserts a new merchant profile.
func (r *MerchantRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Merchant) error {
	hours, err := encodeHours(m.Hours)
	if err != nil {
		return fmt.Errorf("encode opening hours: %w", err)
	}
	images := m.Images
	if images == nil {
		images = []string{}
	}

	query := `INSERT INTO merchants (id, account_id, business_name, description, category_id, address, city, postal_code,
		phone, website, latitude, longitude, primary_image, images, opening_hours, active, verified, rating_average,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18::numeric, $19, $20)`

	_, err = on(r.pool, tx).Exec(ctx, query,
		m.ID, m.AccountID, m.BusinessName, m.Description, m.CategoryID, m.Address, m.City, m.PostalCode,
		m.Phone, m.Website, m.Latitude, m.Longitude, m.PrimaryImage, images, hours, m.Active, m.Verified,
		m.RatingAverage.String(), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return writeError("insert merchant", err)
	}
	return nil
}

// GetByID fetches a live merchant by id.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	return r.getOne(ctx, r.pool, "get merchant by id", `id = $1 AND deleted_at IS NULL`, id)
}

// GetByAccountID fetches the live merchant profile owned by an account.
func (r *MerchantRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error) {
	return r.getOne(ctx, r.pool, "get merchant by account", `account_id = $1 AND deleted_at IS NULL`, accountID)
}

// GetByIDForUpdate fetches and row-locks a merchant inside a transaction.
func (r *MerchantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Merchant, error) {
	return r.getOne(ctx, on(r.pool, tx), "get merchant by id for update", `id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
}

// Update persists the editable profile fields. Counters and moderation flags
// are left untouched.
func (r *MerchantRepo) Update(ctx context.Context, tx pgx.Tx, m *domain.Merchant) error {
	hours, err := encodeHours(m.Hours)
	if err != nil {
		return fmt.Errorf("encode opening hours: %w", err)
	}

	query := `UPDATE merchants
		SET business_name=$1, description=$2, category_id=$3, address=$4, city=$5, postal_code=$6,
			phone=$7, website=$8, latitude=$9, longitude=$10, opening_hours=$11, updated_at=NOW()
		WHERE id=$12 AND deleted_at IS NULL`
	_, err = on(r.pool, tx).Exec(ctx, query,
		m.BusinessName, m.Description, m.CategoryID, m.Address, m.City, m.PostalCode,
		m.Phone, m.Website, m.Latitude, m.Longitude, hours, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update merchant: %w", err)
	}
	return nil
}

// AddImage appends url in a single statement guarded by the gallery cap.
func (r *MerchantRepo) AddImage(ctx context.Context, id uuid.UUID, url string, max int) (bool, error) {
	query := `UPDATE merchants SET images = array_append(images, $1), updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL AND cardinality(images) < $3`
	tag, err := r.pool.Exec(ctx, query, url, id, max)
	if err != nil {
		return false, fmt.Errorf("add merchant image: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetImages replaces the gallery and primary image.
func (r *MerchantRepo) SetImages(ctx context.Context, id uuid.UUID, images []string, primary *string) error {
	if images == nil {
		images = []string{}
	}
	query := `UPDATE merchants SET images = $1, primary_image = $2, updated_at = NOW() WHERE id = $3 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, images, primary, id); err != nil {
		return fmt.Errorf("set merchant images: %w", err)
	}
	return nil
}

// IncrementVisits adds one to the visit counter.
func (r *MerchantRepo) IncrementVisits(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE merchants SET total_visits = total_visits + 1 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("increment merchant visits: %w", err)
	}
	return nil
}

// ApplyRedemption bumps the redemption counters.
func (r *MerchantRepo) ApplyRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID, newCustomer bool) error {
	query := `UPDATE merchants SET total_redemptions = total_redemptions + 1,
		unique_customers = unique_customers + CASE WHEN $1 THEN 1 ELSE 0 END, updated_at = NOW()
		WHERE id = $2`
	if _, err := on(r.pool, tx).Exec(ctx, query, newCustomer, id); err != nil {
		return fmt.Errorf("apply merchant redemption: %w", err)
	}
	return nil
}

// UpdateRating stores a recomputed aggregate.
func (r *MerchantRepo) UpdateRating(ctx context.Context, tx pgx.Tx, id uuid.UUID, agg domain.RatingAggregate) error {
	query := `UPDATE merchants SET rating_average = $1::numeric, rating_count = $2, updated_at = NOW() WHERE id = $3`
	if _, err := on(r.pool, tx).Exec(ctx, query, agg.Average.StringFixed(2), agg.Count, id); err != nil {
		return fmt.Errorf("update merchant rating: %w", err)
	}
	return nil
}

// SetVerified toggles the verified flag.
func (r *MerchantRepo) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE merchants SET verified = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, verified, id); err != nil {
		return fmt.Errorf("set merchant verified: %w", err)
	}
	return nil
}

// SetBlacklist blacklists the merchant when reason is set and lifts the
// blacklist otherwise.
func (r *MerchantRepo) SetBlacklist(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason *string, at *time.Time) error {
	query := `UPDATE merchants SET blacklisted = $1, blacklist_reason = $2, blacklisted_at = $3, active = $4, updated_at = NOW()
		WHERE id = $5 AND deleted_at IS NULL`
	if _, err := on(r.pool, tx).Exec(ctx, query, reason != nil, reason, at, reason == nil, id); err != nil {
		return fmt.Errorf("set merchant blacklist: %w", err)
	}
	return nil
}

// SoftDelete marks the merchant deleted.
func (r *MerchantRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE merchants SET deleted_at = $1, active = FALSE, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	if _, err := on(r.pool, tx).Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("soft delete merchant: %w", err)
	}
	return nil
}

// List returns merchants ordered by rating, best first. A zero PageSize
// returns every matching row.
func (r *MerchantRepo) List(ctx context.Context, params ports.MerchantListParams) ([]domain.Merchant, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if params.OperatingOnly {
		conditions = append(conditions, "active = TRUE", "blacklisted = FALSE")
	}
	if params.City != nil {
		conditions = append(conditions, fmt.Sprintf("lower(city) = lower($%d)", argIdx))
		args = append(args, *params.City)
		argIdx++
	}
	if params.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIdx))
		args = append(args, *params.CategoryID)
		argIdx++
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM merchants"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count merchants: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM merchants%s ORDER BY rating_average DESC, rating_count DESC, created_at, id`,
		merchantColumns, where)
	if params.PageSize > 0 {
		limit, offset := limitOffset(params.Page, params.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	merchants := []domain.Merchant{}
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan merchant: %w", err)
		}
		merchants = append(merchants, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate merchants: %w", err)
	}
	return merchants, total, nil
}
