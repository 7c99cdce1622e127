package migrate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/nutrihub/internal/database"
	"github.com/bryan-buckman/nutrihub/internal/model"
)

type countingCategories struct {
	ids   map[string]string
	calls int
	err   error
}

func (c *countingCategories) GetCategoryByName(_ context.Context, name string) (*model.Category, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	id, ok := c.ids[name]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", name, database.ErrNotFound)
	}
	return &model.Category{ID: id, Name: name}, nil
}

func TestCanonicalCategory(t *testing.T) {
	tests := map[string]string{
		"diet":         model.CategoryDiet,
		"Supplements":  model.CategorySupplements,
		" research ":   model.CategoryResearch,
		"TRENDS":       model.CategoryTrends,
		"":             model.CategoryDiet,
		"recipes":      model.CategoryDiet,
		"supplement":   model.CategoryDiet,
		"trends-2024!": model.CategoryDiet,
	}
	for label, want := range tests {
		assert.Equal(t, want, CanonicalCategory(label), "label %q", label)
	}
}

func TestCategoryResolver(t *testing.T) {
	store := &countingCategories{ids: map[string]string{
		model.CategoryDiet:     "id-diet",
		model.CategoryResearch: "id-research",
	}}
	r := NewCategoryResolver(store)
	ctx := context.Background()

	id, err := r.Resolve(ctx, "Research")
	require.NoError(t, err)
	assert.Equal(t, "id-research", id)

	id, err = r.Resolve(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "id-diet", id)

	_, err = r.Resolve(ctx, "")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "research")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls, "lookups are memoized per canonical name")

	_, err = r.Resolve(ctx, "trends")
	assert.ErrorIs(t, err, ErrCategoryMissing)
}

func TestCategoryResolverStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewCategoryResolver(&countingCategories{err: boom})

	_, err := r.Resolve(context.Background(), "diet")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCategoryMissing)
}

func TestTagResolver(t *testing.T) {
	store := newSQLiteStore(t)
	r := NewTagResolver(store)
	ctx := context.Background()

	id1, created, err := r.Resolve(ctx, " protein ")
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := r.Resolve(ctx, "protein")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	id3, created, err := r.Resolve(ctx, "Protein")
	require.NoError(t, err)
	assert.True(t, created, "names are case-sensitive")
	assert.NotEqual(t, id1, id3)

	_, _, err = r.Resolve(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyTag)

	tags, err := store.GetTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}
