package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleMerchant.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("owner").Valid())
	assert.False(t, Role("").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

func TestAccount_Lockout(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := &Account{}

	for i := 0; i < DefaultMaxLoginAttempts-1; i++ {
		a.RegisterFailure(now, DefaultMaxLoginAttempts, DefaultLockDuration)
	}
	assert.False(t, a.IsLocked(now))

	a.RegisterFailure(now, DefaultMaxLoginAttempts, DefaultLockDuration)
	assert.True(t, a.IsLocked(now))
	assert.True(t, a.IsLocked(now.Add(DefaultLockDuration-time.Second)))
	assert.False(t, a.IsLocked(now.Add(DefaultLockDuration)))

	// A failure after the lock ran out starts a fresh count.
	later := now.Add(DefaultLockDuration + time.Minute)
	a.RegisterFailure(later, DefaultMaxLoginAttempts, DefaultLockDuration)
	assert.Equal(t, 1, a.FailedAttempts)
	assert.Nil(t, a.LockUntil)

	a.RegisterSuccess(later)
	assert.Zero(t, a.FailedAttempts)
	require.NotNil(t, a.LastLoginAt)
	assert.Equal(t, later, *a.LastLoginAt)
}

func TestAccount_ProviderID(t *testing.T) {
	google := "g-123"
	a := &Account{GoogleID: &google}
	assert.Equal(t, &google, a.ProviderID(ProviderGoogle))
	assert.Nil(t, a.ProviderID(ProviderApple))
	assert.Nil(t, a.ProviderID(ProviderKind("github")))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Coffee Shops":        "coffee-shops",
		"  Bakery  ":          "bakery",
		"Fast\tFood   Places": "fast-food-places",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCategoryArena(t *testing.T) {
	root := Category{ID: uuid.New(), Name: "Food", DisplayOrder: 2}
	other := Category{ID: uuid.New(), Name: "Retail", DisplayOrder: 1}
	child := Category{ID: uuid.New(), Name: "Coffee", ParentID: &root.ID}
	grandchild := Category{ID: uuid.New(), Name: "Espresso", ParentID: &child.ID}

	arena := NewCategoryArena([]Category{grandchild, child, root, other})

	crumbs := arena.Breadcrumb(grandchild.ID)
	require.Len(t, crumbs, 3)
	assert.Equal(t, []string{"Food", "Coffee", "Espresso"}, []string{crumbs[0].Name, crumbs[1].Name, crumbs[2].Name})

	assert.True(t, arena.IsDescendant(grandchild.ID, root.ID))
	assert.False(t, arena.IsDescendant(root.ID, grandchild.ID))
	assert.Empty(t, arena.Breadcrumb(uuid.New()))

	tree := arena.Tree()
	require.Len(t, tree, 2)
	assert.Equal(t, "Retail", tree[0].Name)
	assert.Equal(t, "Food", tree[1].Name)
	require.Len(t, tree[1].Children, 1)
	require.Len(t, tree[1].Children[0].Children, 1)
	assert.Equal(t, "Espresso", tree[1].Children[0].Children[0].Name)
}

func TestCategoryArena_CycleTerminates(t *testing.T) {
	a := Category{ID: uuid.New(), Name: "A"}
	b := Category{ID: uuid.New(), Name: "B", ParentID: &a.ID}
	a.ParentID = &b.ID

	arena := NewCategoryArena([]Category{a, b})
	assert.Len(t, arena.Breadcrumb(a.ID), 2)
	assert.NotEmpty(t, arena.Tree())
}

func TestNewQRToken(t *testing.T) {
	first, err := NewQRToken()
	require.NoError(t, err)
	second, err := NewQRToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, QRTokenPrefix))
	assert.Len(t, first, len(QRTokenPrefix)+32)
	assert.NotEqual(t, first, second)
}

func TestCustomerProfile_HasFavorite(t *testing.T) {
	fav := uuid.New()
	c := &CustomerProfile{Favorites: []uuid.UUID{fav}}
	assert.True(t, c.HasFavorite(fav))
	assert.False(t, c.HasFavorite(uuid.New()))
}

func TestMerchant_IsOperating(t *testing.T) {
	deleted := time.Now()
	tests := []struct {
		name string
		m    Merchant
		want bool
	}{
		{"active", Merchant{Active: true}, true},
		{"inactive", Merchant{}, false},
		{"blacklisted", Merchant{Active: true, Blacklisted: true}, false},
		{"deleted", Merchant{Active: true, DeletedAt: &deleted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.IsOperating())
		})
	}
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(45.76, 4.84))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
}

func TestPromotion_IsValidAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	p := &Promotion{Active: true, StartsAt: start, EndsAt: end}

	assert.True(t, p.IsValidAt(start))
	assert.True(t, p.IsValidAt(end))
	assert.False(t, p.IsValidAt(start.Add(-time.Second)))
	assert.False(t, p.IsValidAt(end.Add(time.Second)))

	p.Active = false
	assert.False(t, p.IsValidAt(start.Add(time.Hour)))

	assert.True(t, ValidWindow(start, end))
	assert.False(t, ValidWindow(start, start))
}

func TestValidScore(t *testing.T) {
	for s := MinScore; s <= MaxScore; s++ {
		assert.True(t, ValidScore(s))
	}
	assert.False(t, ValidScore(0))
	assert.False(t, ValidScore(6))
}

func TestRatingAggregate(t *testing.T) {
	agg := RatingAggregate{Average: decimal.Zero}

	agg = agg.AddScore(5)
	agg = agg.AddScore(4)
	agg = agg.AddScore(4)
	assert.Equal(t, int64(3), agg.Count)
	assert.Equal(t, "4.33", agg.Average.String())

	agg = agg.RemoveScore(5)
	assert.Equal(t, int64(2), agg.Count)
	// (12.99 - 5) / 2 = 3.995, rounded half away from zero.
	assert.Equal(t, "4", agg.Average.String())

	agg = agg.RemoveScore(4).RemoveScore(4)
	assert.Zero(t, agg.Count)
	assert.True(t, agg.Average.IsZero())
}
