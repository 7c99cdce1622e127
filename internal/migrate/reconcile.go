package migrate

import (
	"context"
	"fmt"
	"log/slog"
)

// CountStore recomputes denormalized post counts.
type CountStore interface {
	RecountCategoryPosts(ctx context.Context) (int64, error)
	RecountTagPosts(ctx context.Context) (int64, error)
}

// Reconciled reports how many rows each recount touched.
type Reconciled struct {
	Categories int64
	Tags       int64
}

// Reconcile sets post_count on every category and tag to the number of
// posts actually linked to it. Running it twice is harmless.
func Reconcile(ctx context.Context, store CountStore) (Reconciled, error) {
	var r Reconciled
	var err error
	if r.Categories, err = store.RecountCategoryPosts(ctx); err != nil {
		return r, fmt.Errorf("recount category posts: %w", err)
	}
	if r.Tags, err = store.RecountTagPosts(ctx); err != nil {
		return r, fmt.Errorf("recount tag posts: %w", err)
	}
	slog.Info("[Reconciler] Post counts updated",
		slog.Int64("categories", r.Categories),
		slog.Int64("tags", r.Tags))
	return r, nil
}
