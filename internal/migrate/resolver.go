package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bryan-buckman/nutrihub/internal/database"
	"github.com/bryan-buckman/nutrihub/internal/model"
)

var (
	// ErrCategoryMissing means a canonical category has not been seeded.
	ErrCategoryMissing = errors.New("category not found in store")
	// ErrEmptyTag is returned for a tag name that is blank after trimming.
	ErrEmptyTag = errors.New("empty tag name")
)

// legacyCategories maps lowercased legacy labels onto canonical names.
var legacyCategories = map[string]string{
	"diet":        model.CategoryDiet,
	"supplements": model.CategorySupplements,
	"research":    model.CategoryResearch,
	"trends":      model.CategoryTrends,
}

// CanonicalCategory maps a legacy label to a canonical category name.
// Unknown and empty labels map to diet.
func CanonicalCategory(label string) string {
	if c, ok := legacyCategories[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return model.CategoryDiet
}

// CategoryStore looks up categories by name.
type CategoryStore interface {
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
}

// CategoryResolver turns legacy labels into category ids.
// Lookups are memoized per canonical name; it is not safe for concurrent use.
type CategoryResolver struct {
	store CategoryStore
	ids   map[string]string
}

func NewCategoryResolver(store CategoryStore) *CategoryResolver {
	return &CategoryResolver{store: store, ids: make(map[string]string)}
}

// Resolve returns the id of the canonical category for label.
func (r *CategoryResolver) Resolve(ctx context.Context, label string) (string, error) {
	name := CanonicalCategory(label)
	if id, ok := r.ids[name]; ok {
		return id, nil
	}
	c, err := r.store.GetCategoryByName(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrCategoryMissing, name)
	}
	if err != nil {
		return "", fmt.Errorf("lookup category %s: %w", name, err)
	}
	r.ids[name] = c.ID
	return c.ID, nil
}

// TagStore finds or creates tags by exact name.
type TagStore interface {
	GetOrCreateTag(ctx context.Context, name string) (string, bool, error)
}

// TagResolver turns tag names into tag ids, creating tags on first use.
type TagResolver struct {
	store TagStore
}

func NewTagResolver(store TagStore) *TagResolver {
	return &TagResolver{store: store}
}

// Resolve trims name and returns its tag id and whether the tag was created.
// Names are matched case-sensitively.
func (r *TagResolver) Resolve(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, ErrEmptyTag
	}
	id, created, err := r.store.GetOrCreateTag(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("resolve tag %q: %w", name, err)
	}
	return id, created, nil
}
