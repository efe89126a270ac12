package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups merchants. Categories form a tree through ParentID.
type Category struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Description   *string    `json:"description,omitempty"`
	Icon          *string    `json:"icon,omitempty"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	DisplayOrder  int        `json:"display_order"`
	Active        bool       `json:"active"`
	MerchantCount int64      `json:"merchant_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"-"`
}

var slugSeparators = regexp.MustCompile(`\s+`)

// Slugify derives a slug from a category name.
func Slugify(name string) string {
	return slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// CategoryNode is a category with its children, used for tree rendering.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// CategoryArena indexes categories by id. Parent links are plain ids, so a
// malformed tree cannot create an ownership cycle.
type CategoryArena struct {
	byID  map[uuid.UUID]Category
	order []uuid.UUID
}

// NewCategoryArena builds an arena preserving the given order.
func NewCategoryArena(categories []Category) *CategoryArena {
	a := &CategoryArena{byID: make(map[uuid.UUID]Category, len(categories))}
	for _, c := range categories {
		if _, dup := a.byID[c.ID]; !dup {
			a.order = append(a.order, c.ID)
		}
		a.byID[c.ID] = c
	}
	return a
}

// Get returns the category with id.
func (a *CategoryArena) Get(id uuid.UUID) (Category, bool) {
	c, ok := a.byID[id]
	return c, ok
}

// Breadcrumb walks parent links from id up to the root and returns the path
// root first. The walk stops at a missing parent or after visiting every node
// once, whichever comes first.
func (a *CategoryArena) Breadcrumb(id uuid.UUID) []Category {
	var path []Category
	seen := make(map[uuid.UUID]bool, len(a.byID))
	cur, ok := a.byID[id]
	for ok && !seen[cur.ID] {
		seen[cur.ID] = true
		path = append(path, cur)
		if cur.ParentID == nil {
			break
		}
		cur, ok = a.byID[*cur.ParentID]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// IsDescendant reports whether candidate is id itself or lies below id.
func (a *CategoryArena) IsDescendant(candidate, id uuid.UUID) bool {
	for _, c := range a.Breadcrumb(candidate) {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Tree returns root nodes with nested children. Nodes whose parent is unknown
// are treated as roots.
func (a *CategoryArena) Tree() []*CategoryNode {
	nodes := make(map[uuid.UUID]*CategoryNode, len(a.byID))
	for _, id := range a.order {
		nodes[id] = &CategoryNode{Category: a.byID[id], Children: []*CategoryNode{}}
	}

	roots := []*CategoryNode{}
	for _, id := range a.order {
		n := nodes[id]
		if n.ParentID != nil {
			if p, ok := nodes[*n.ParentID]; ok && !a.IsDescendant(p.ID, n.ID) {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].DisplayOrder < nodes[j].DisplayOrder
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
