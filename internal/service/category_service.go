package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultCategoryCacheTTL is how long the cached category list lives.
const DefaultCategoryCacheTTL = 10 * time.Minute

// CategoryServiceImpl implements ports.CategoryService.
type CategoryServiceImpl struct {
	repo  ports.CategoryRepository
	cache ports.CategoryCache
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

// NewCategoryService creates a new CategoryServiceImpl.
// If cache is nil, every read goes to the repository.
func NewCategoryService(repo ports.CategoryRepository, cache ports.CategoryCache, ttl time.Duration, log zerolog.Logger) *CategoryServiceImpl {
	if ttl <= 0 {
		ttl = DefaultCategoryCacheTTL
	}
	return &CategoryServiceImpl{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns active categories by display order.
func (s *CategoryServiceImpl) List(ctx context.Context) ([]domain.Category, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

// Tree returns active categories nested under their parents.
func (s *CategoryServiceImpl) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	active, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewCategoryArena(active).Tree(), nil
}

// Get returns a category with its breadcrumb.
func (s *CategoryServiceImpl) Get(ctx context.Context, id uuid.UUID) (*ports.CategoryDetail, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	arena := domain.NewCategoryArena(all)
	c, ok := arena.Get(id)
	if !ok {
		return nil, apperror.ErrNotFound("category")
	}
	return &ports.CategoryDetail{Category: c, Breadcrumb: arena.Breadcrumb(id)}, nil
}

// Create adds a category. The slug defaults to one derived from the name.
func (s *CategoryServiceImpl) Create(ctx context.Context, in ports.CategoryInput) (*domain.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperror.Validation("name is required")
	}

	now := s.now()
	c := &domain.Category{
		ID:        uuid.New(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyCategoryInput(c, in)
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	}

	if c.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *c.ParentID)
		if err != nil {
			return nil, internalError(err)
		}
		if parent == nil {
			return nil, apperror.ErrNotFound("parent category")
		}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.invalidate(ctx)
	return c, nil
}

// Update applies a partial update. A category cannot be moved under itself or
// any of its descendants.
func (s *CategoryServiceImpl) Update(ctx context.Context, id uuid.UUID, in ports.CategoryInput) (*domain.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if c == nil {
		return nil, apperror.ErrNotFound("category")
	}

	nameChanged := in.Name != nil && *in.Name != c.Name
	applyCategoryInput(c, in)
	if strings.TrimSpace(c.Name) == "" {
		return nil, apperror.Validation("name must not be empty")
	}
	if nameChanged && in.Slug == nil {
		c.Slug = domain.Slugify(c.Name)
	}

	if c.ParentID != nil {
		all, err := s.repo.List(ctx)
		if err != nil {
			return nil, internalError(err)
		}
		arena := domain.NewCategoryArena(all)
		if _, ok := arena.Get(*c.ParentID); !ok {
			return nil, apperror.ErrNotFound("parent category")
		}
		if arena.IsDescendant(*c.ParentID, c.ID) {
			return nil, apperror.ErrCategoryCycle()
		}
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.invalidate(ctx)
	return c, nil
}

// Delete soft-deletes a category.
func (s *CategoryServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return internalError(err)
	}
	if c == nil {
		return apperror.ErrNotFound("category")
	}
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return internalError(err)
	}
	s.invalidate(ctx)
	return nil
}

// all returns every live category, from the cache when possible.
func (s *CategoryServiceImpl) all(ctx context.Context) ([]domain.Category, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("category cache read failed, falling through to DB")
		}
		if cached != nil {
			return cached, nil
		}
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("list categories: %w", err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, categories, s.ttl); err != nil {
			s.log.Warn().Err(err).Msg("category cache write failed")
		}
	}
	return categories, nil
}

func (s *CategoryServiceImpl) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("category cache invalidation failed")
	}
}

func (s *CategoryServiceImpl) mapWriteError(err error) error {
	switch {
	case ports.IsConstraint(err, ports.ConstraintCategoryName):
		return apperror.ErrConflict("category name already exists")
	case ports.IsConstraint(err, ports.ConstraintCategorySlug):
		return apperror.ErrConflict("category slug already exists")
	}
	return internalError(err)
}

func applyCategoryInput(c *domain.Category, in ports.CategoryInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		c.Slug = domain.Slugify(*in.Slug)
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.Icon != nil {
		c.Icon = in.Icon
	}
	if in.ClearParent {
		c.ParentID = nil
	} else if in.ParentID != nil {
		c.ParentID = in.ParentID
	}
	if in.DisplayOrder != nil {
		c.DisplayOrder = *in.DisplayOrder
	}
	if in.Active != nil {
		c.Active = *in.Active
	}
}
