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

const customerColumns = `id, account_id, first_name, last_name, phone_encrypted, city, qr_token,
	scans_count, ratings_given_count, favorites::text[], created_at, updated_at, deleted_at`

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	pool Pool
}

// NewCustomerRepo creates a new CustomerRepo.
func NewCustomerRepo(pool Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

func scanCustomer(row rowScanner) (*domain.CustomerProfile, error) {
	p := &domain.CustomerProfile{}
	var favorites []string
	err := row.Scan(
		&p.ID, &p.AccountID, &p.FirstName, &p.LastName, &p.PhoneEncrypted, &p.City,
		&p.QRToken, &p.ScansCount, &p.RatingsGivenCount, &favorites,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Favorites = make([]uuid.UUID, 0, len(favorites))
	for _, raw := range favorites {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse favorite %q: %w", raw, err)
		}
		p.Favorites = append(p.Favorites, id)
	}
	return p, nil
}

func (r *CustomerRepo) getOne(ctx context.Context, op, where string, args ...any) (*domain.CustomerProfile, error) {
	query := `SELECT ` + customerColumns + ` FROM customer_profiles WHERE ` + where + ` AND deleted_at IS NULL`
	p, err := scanCustomer(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, readError(op, err)
	}
	return p, nil
}

// Create inserts a new customer profile.
func (r *CustomerRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.CustomerProfile) error {
	query := `INSERT INTO customer_profiles (id, account_id, first_name, last_name, phone_encrypted, city, qr_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := on(r.pool, tx).Exec(ctx, query,
		p.ID, p.AccountID, p.FirstName, p.LastName, p.PhoneEncrypted, p.City,
		p.QRToken, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return writeError("insert customer profile", err)
	}
	return nil
}

// GetByAccountID fetches the profile owned by an account.
func (r *CustomerRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.CustomerProfile, error) {
	return r.getOne(ctx, "get customer by account", `account_id = $1`, accountID)
}

// GetByQRToken resolves a scanned QR token.
func (r *CustomerRepo) GetByQRToken(ctx context.Context, qrToken string) (*domain.CustomerProfile, error) {
	return r.getOne(ctx, "get customer by qr token", `qr_token = $1`, qrToken)
}

// Update persists the editable profile fields.
func (r *CustomerRepo) Update(ctx context.Context, p *domain.CustomerProfile) error {
	query := `UPDATE customer_profiles SET first_name = $1, last_name = $2, phone_encrypted = $3, city = $4, updated_at = NOW()
		WHERE account_id = $5 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, p.FirstName, p.LastName, p.PhoneEncrypted, p.City, p.AccountID); err != nil {
		return fmt.Errorf("update customer profile: %w", err)
	}
	return nil
}

// IncrementScans adds one to the scans counter.
func (r *CustomerRepo) IncrementScans(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	query := `UPDATE customer_profiles SET scans_count = scans_count + 1, updated_at = NOW() WHERE account_id = $1`
	if _, err := on(r.pool, tx).Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("increment scans: %w", err)
	}
	return nil
}

// AdjustRatingsGiven moves the ratings-given counter by delta, never below zero.
func (r *CustomerRepo) AdjustRatingsGiven(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int) error {
	query := `UPDATE customer_profiles SET ratings_given_count = GREATEST(ratings_given_count + $1, 0), updated_at = NOW()
		WHERE account_id = $2`
	if _, err := on(r.pool, tx).Exec(ctx, query, delta, accountID); err != nil {
		return fmt.Errorf("adjust ratings given: %w", err)
	}
	return nil
}

// AddFavorite appends merchantID unless it is already a favorite.
func (r *CustomerRepo) AddFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error {
	query := `UPDATE customer_profiles SET favorites = array_append(favorites, $1), updated_at = NOW()
		WHERE account_id = $2 AND deleted_at IS NULL AND NOT ($1 = ANY(favorites))`
	if _, err := r.pool.Exec(ctx, query, merchantID, accountID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite drops merchantID from the favorites.
func (r *CustomerRepo) RemoveFavorite(ctx context.Context, accountID, merchantID uuid.UUID) error {
	query := `UPDATE customer_profiles SET favorites = array_remove(favorites, $1), updated_at = NOW()
		WHERE account_id = $2 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, merchantID, accountID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// SoftDeleteByAccount marks the account's profile deleted.
func (r *CustomerRepo) SoftDeleteByAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error {
	query := `UPDATE customer_profiles SET deleted_at = $1, updated_at = NOW() WHERE account_id = $2 AND deleted_at IS NULL`
	if _, err := on(r.pool, tx).Exec(ctx, query, at, accountID); err != nil {
		return fmt.Errorf("soft delete customer profile: %w", err)
	}
	return nil
}
