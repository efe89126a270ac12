package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
	"qr-loyalty-backend/pkg/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultSearchRadiusKm is used when a proximity search gives no radius.
const DefaultSearchRadiusKm = 10.0

type merchantService struct {
	merchantRepo ports.MerchantRepository
	categoryRepo ports.CategoryRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
	now          func() time.Time
}

// NewMerchantService creates a new merchant catalog service.
func NewMerchantService(
	merchantRepo ports.MerchantRepository,
	categoryRepo ports.CategoryRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) ports.MerchantService {
	return &merchantService{
		merchantRepo: merchantRepo,
		categoryRepo: categoryRepo,
		transactor:   transactor,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *merchantService) CreateProfile(ctx context.Context, accountID uuid.UUID, in ports.MerchantProfileInput) (*domain.Merchant, error) {
	if in.BusinessName == nil || in.CategoryID == nil || in.Address == nil || in.City == nil ||
		in.Latitude == nil || in.Longitude == nil {
		return nil, apperror.Validation("business_name, category_id, address, city, latitude and longitude are required")
	}

	existing, err := s.merchantRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if existing != nil {
		return nil, apperror.ErrConflict("merchant profile already exists")
	}

	now := s.now()
	m := &domain.Merchant{
		ID:            uuid.New(),
		AccountID:     accountID,
		Images:        []string{},
		Active:        true,
		RatingAverage: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	applyMerchantInput(m, in)
	if err := s.validateProfile(ctx, m); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.merchantRepo.Create(ctx, dbTx, m); err != nil {
		if ports.IsConstraint(err, ports.ConstraintMerchantAccount) {
			return nil, apperror.ErrConflict("merchant profile already exists")
		}
		return nil, internalError(fmt.Errorf("create merchant: %w", err))
	}
	if err := s.categoryRepo.AdjustMerchantCount(ctx, dbTx, m.CategoryID, 1); err != nil {
		return nil, internalError(fmt.Errorf("update category count: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("merchant_id", m.ID.String()).
		Str("account_id", accountID.String()).
		Msg("merchant profile created")
	return m, nil
}

func (s *merchantService) GetMine(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error) {
	return s.mine(ctx, accountID)
}

func (s *merchantService) UpdateMine(ctx context.Context, accountID uuid.UUID, in ports.MerchantProfileInput) (*domain.Merchant, error) {
	m, err := s.mine(ctx, accountID)
	if err != nil {
		return nil, err
	}

	oldCategory := m.CategoryID
	applyMerchantInput(m, in)
	if err := s.validateProfile(ctx, m); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.merchantRepo.Update(ctx, dbTx, m); err != nil {
		return nil, internalError(fmt.Errorf("update merchant: %w", err))
	}
	if m.CategoryID != oldCategory {
		if err := s.categoryRepo.AdjustMerchantCount(ctx, dbTx, oldCategory, -1); err != nil {
			return nil, internalError(fmt.Errorf("update category count: %w", err))
		}
		if err := s.categoryRepo.AdjustMerchantCount(ctx, dbTx, m.CategoryID, 1); err != nil {
			return nil, internalError(fmt.Errorf("update category count: %w", err))
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}
	return m, nil
}

func (s *merchantService) AddImage(ctx context.Context, accountID uuid.UUID, url string) (*domain.Merchant, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperror.Validation("image url is required")
	}
	m, err := s.mine(ctx, accountID)
	if err != nil {
		return nil, err
	}

	added, err := s.merchantRepo.AddImage(ctx, m.ID, url, domain.MaxGalleryImages)
	if err != nil {
		return nil, internalError(fmt.Errorf("add image: %w", err))
	}
	if !added {
		return nil, apperror.ErrImageLimitExceeded(domain.MaxGalleryImages)
	}
	return s.mine(ctx, accountID)
}

func (s *merchantService) RemoveImage(ctx context.Context, accountID uuid.UUID, index int) (*domain.Merchant, error) {
	m, err := s.mine(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(m.Images) {
		return nil, apperror.Validation(fmt.Sprintf("image index %d out of range", index))
	}

	removed := m.Images[index]
	images := slices.Delete(slices.Clone(m.Images), index, index+1)
	primary := m.PrimaryImage
	if primary != nil && *primary == removed {
		primary = nil
	}

	if err := s.merchantRepo.SetImages(ctx, m.ID, images, primary); err != nil {
		return nil, internalError(fmt.Errorf("remove image: %w", err))
	}
	m.Images = images
	m.PrimaryImage = primary
	return m, nil
}

func (s *merchantService) SetPrimaryImage(ctx context.Context, accountID uuid.UUID, url string) (*domain.Merchant, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperror.Validation("image url is required")
	}
	m, err := s.mine(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SetImages(ctx, m.ID, m.Images, &url); err != nil {
		return nil, internalError(fmt.Errorf("set primary image: %w", err))
	}
	m.PrimaryImage = &url
	return m, nil
}

func (s *merchantService) UpdateOpeningHours(ctx context.Context, accountID uuid.UUID, hours domain.WeeklyHours) (*domain.Merchant, error) {
	if err := validateHours(hours); err != nil {
		return nil, err
	}
	m, err := s.mine(ctx, accountID)
	if err != nil {
		return nil, err
	}

	m.Hours = hours
	m.UpdatedAt = s.now()
	if err := s.merchantRepo.Update(ctx, nil, m); err != nil {
		return nil, internalError(fmt.Errorf("update opening hours: %w", err))
	}
	return m, nil
}

func (s *merchantService) GetPublic(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	m, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if m == nil || !m.IsOperating() {
		return nil, apperror.ErrNotFound("merchant")
	}

	if err := s.merchantRepo.IncrementVisits(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("merchant_id", id.String()).Msg("failed to count merchant visit")
	} else {
		m.TotalVisits++
	}
	return m, nil
}

func (s *merchantService) List(ctx context.Context, params ports.MerchantListParams) ([]domain.Merchant, int64, error) {
	params.OperatingOnly = true
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	rows, total, err := s.merchantRepo.List(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// SearchNearby returns operating merchants within the radius, nearest first.
func (s *merchantService) SearchNearby(ctx context.Context, q ports.NearbyQuery) ([]domain.Merchant, error) {
	if !domain.ValidCoordinates(q.Latitude, q.Longitude) {
		return nil, apperror.Validation("latitude must be within [-90,90] and longitude within [-180,180]")
	}
	radius := q.RadiusKm
	if radius <= 0 {
		radius = DefaultSearchRadiusKm
	}

	candidates, _, err := s.merchantRepo.List(ctx, ports.MerchantListParams{
		CategoryID:    q.CategoryID,
		OperatingOnly: true,
	})
	if err != nil {
		return nil, internalError(err)
	}

	hits := geo.Within(candidates, q.Latitude, q.Longitude, radius, func(m domain.Merchant) (float64, float64) {
		return m.Latitude, m.Longitude
	})

	out := make([]domain.Merchant, 0, len(hits))
	for _, h := range hits {
		m := h.Item
		d := h.DistanceKm
		m.DistanceKm = &d
		out = append(out, m)
	}
	return out, nil
}

func (s *merchantService) Verify(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	if _, err := s.byID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.merchantRepo.SetVerified(ctx, id, true); err != nil {
		return nil, internalError(err)
	}
	return s.byID(ctx, id)
}

func (s *merchantService) Blacklist(ctx context.Context, id uuid.UUID, reason string) (*domain.Merchant, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("blacklist reason is required")
	}
	now := s.now()
	return s.setBlacklist(ctx, id, &reason, &now)
}

func (s *merchantService) Unblacklist(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	return s.setBlacklist(ctx, id, nil, nil)
}

func (s *merchantService) setBlacklist(ctx context.Context, id uuid.UUID, reason *string, at *time.Time) (*domain.Merchant, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	m, err := s.merchantRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, internalError(fmt.Errorf("lock merchant: %w", err))
	}
	if m == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	if err := s.merchantRepo.SetBlacklist(ctx, dbTx, id, reason, at); err != nil {
		return nil, internalError(fmt.Errorf("update blacklist: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, internalError(fmt.Errorf("commit tx: %w", err))
	}

	m.Blacklisted = reason != nil
	m.BlacklistReason = reason
	m.BlacklistedAt = at
	m.Active = reason == nil

	s.log.Info().
		Str("merchant_id", id.String()).
		Bool("blacklisted", m.Blacklisted).
		Msg("merchant blacklist updated")
	return m, nil
}

func (s *merchantService) Delete(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return internalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	m, err := s.merchantRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return internalError(fmt.Errorf("lock merchant: %w", err))
	}
	if m == nil {
		return apperror.ErrNotFound("merchant")
	}
	if err := s.merchantRepo.SoftDelete(ctx, dbTx, id, s.now()); err != nil {
		return internalError(fmt.Errorf("delete merchant: %w", err))
	}
	if err := s.categoryRepo.AdjustMerchantCount(ctx, dbTx, m.CategoryID, -1); err != nil {
		return internalError(fmt.Errorf("update category count: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return internalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("merchant_id", id.String()).Msg("merchant deleted")
	return nil
}

func (s *merchantService) mine(ctx context.Context, accountID uuid.UUID) (*domain.Merchant, error) {
	m, err := s.merchantRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if m == nil {
		return nil, apperror.ErrMerchantProfileMissing()
	}
	return m, nil
}

func (s *merchantService) byID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	m, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if m == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return m, nil
}

func (s *merchantService) validateProfile(ctx context.Context, m *domain.Merchant) error {
	if strings.TrimSpace(m.BusinessName) == "" {
		return apperror.Validation("business_name must not be empty")
	}
	if !domain.ValidCoordinates(m.Latitude, m.Longitude) {
		return apperror.Validation("latitude must be within [-90,90] and longitude within [-180,180]")
	}
	cat, err := s.categoryRepo.GetByID(ctx, m.CategoryID)
	if err != nil {
		return internalError(err)
	}
	if cat == nil {
		return apperror.ErrNotFound("category")
	}
	return nil
}

func applyMerchantInput(m *domain.Merchant, in ports.MerchantProfileInput) {
	if in.BusinessName != nil {
		m.BusinessName = *in.BusinessName
	}
	if in.Description != nil {
		m.Description = in.Description
	}
	if in.CategoryID != nil {
		m.CategoryID = *in.CategoryID
	}
	if in.Address != nil {
		m.Address = *in.Address
	}
	if in.City != nil {
		m.City = *in.City
	}
	if in.PostalCode != nil {
		m.PostalCode = in.PostalCode
	}
	if in.Phone != nil {
		m.Phone = in.Phone
	}
	if in.Website != nil {
		m.Website = in.Website
	}
	if in.Latitude != nil {
		m.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		m.Longitude = *in.Longitude
	}
}

// validateHours accepts lower-case weekday keys; open days need HH:MM bounds
// with start before end.
func validateHours(hours domain.WeeklyHours) error {
	for day, h := range hours {
		if !slices.Contains(domain.Weekdays, day) {
			return apperror.Validation(fmt.Sprintf("unknown weekday %q", day))
		}
		if !h.Open {
			continue
		}
		start, err := time.Parse("15:04", h.Start)
		if err != nil {
			return apperror.Validation(fmt.Sprintf("%s: start must be HH:MM", day))
		}
		end, err := time.Parse("15:04", h.End)
		if err != nil {
			return apperror.Validation(fmt.Sprintf("%s: end must be HH:MM", day))
		}
		if !end.After(start) {
			return apperror.Validation(fmt.Sprintf("%s: end must be after start", day))
		}
	}
	return nil
}
