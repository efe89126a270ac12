package memory

import (
	"context"
	"sort"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CategoryRepo implements ports.CategoryRepository.
type CategoryRepo struct {
	s *Store
}

// NewCategoryRepo creates a new CategoryRepo.
func NewCategoryRepo(s *Store) *CategoryRepo {
	return &CategoryRepo{s: s}
}

func copyCategory(c *domain.Category) *domain.Category {
	out := *c
	return &out
}

// checkUnique must be called with the write lock held.
func (r *CategoryRepo) checkUnique(c *domain.Category) error {
	for _, existing := range r.s.categories {
		if existing.ID == c.ID || existing.DeletedAt != nil {
			continue
		}
		if existing.Name == c.Name {
			return &ports.ConstraintError{Constraint: ports.ConstraintCategoryName}
		}
		if existing.Slug == c.Slug {
			return &ports.ConstraintError{Constraint: ports.ConstraintCategorySlug}
		}
	}
	return nil
}

// Create inserts a category.
func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkUnique(c); err != nil {
		return err
	}
	r.s.categories[c.ID] = copyCategory(c)
	return nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok || c.DeletedAt != nil {
		return nil, nil
	}
	return copyCategory(c), nil
}

// List returns every live category by display order, then name.
func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	rows := []domain.Category{}
	for _, c := range r.s.categories {
		if c.DeletedAt == nil {
			rows = append(rows, *c)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DisplayOrder != rows[j].DisplayOrder {
			return rows[i].DisplayOrder < rows[j].DisplayOrder
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// Update persists the editable category fields.
func (r *CategoryRepo) Update(ctx context.Context, in *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[in.ID]
	if !ok || c.DeletedAt != nil {
		return nil
	}
	if err := r.checkUnique(in); err != nil {
		return err
	}
	c.Name = in.Name
	c.Slug = in.Slug
	c.Description = in.Description
	c.Icon = in.Icon
	c.ParentID = in.ParentID
	c.DisplayOrder = in.DisplayOrder
	c.Active = in.Active
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// SoftDelete marks the category deleted.
func (r *CategoryRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.categories[id]; ok && c.DeletedAt == nil {
		c.DeletedAt = &at
		c.Active = false
	}
	return nil
}

// AdjustMerchantCount moves the merchant counter by delta, never below zero.
func (r *CategoryRepo) AdjustMerchantCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil
	}
	track(tx, r.s.categories, id)
	c.MerchantCount = max(c.MerchantCount+int64(delta), 0)
	return nil
}
