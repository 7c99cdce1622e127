// Package provision prepares the destination schema, storage bucket and seed rows.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bryan-buckman/nutrihub/internal/database"
	"github.com/bryan-buckman/nutrihub/internal/model"
	"github.com/bryan-buckman/nutrihub/internal/storage"
)

// Outcome is the result of running one step.
type Outcome string

const (
	Applied        Outcome = "applied"
	AlreadyPresent Outcome = "already present"
	Unsupported    Outcome = "unsupported"
	Failed         Outcome = "failed"
)

const (
	ProductImagesBucket = "product-images"
	MaxImageSize        = 5 << 20
	LowStockThreshold   = 5

	stockQuantityCheck = "products_stock_quantity_check"
	stockStatusIndex   = "idx_products_stock_status"
)

// ImageMimeTypes may be uploaded to the product image bucket.
var ImageMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// DefaultProductCategories seeds the shop section.
var DefaultProductCategories = []model.ProductCategory{
	{Name: "Protein", Description: "Protein powders and bars", SortOrder: 1},
	{Name: "Vitamins", Description: "Multivitamins and single vitamins", SortOrder: 2},
	{Name: "Minerals", Description: "Mineral supplements", SortOrder: 3},
	{Name: "Omega-3", Description: "Fish and algae oils", SortOrder: 4},
	{Name: "Probiotics", Description: "Gut health supplements", SortOrder: 5},
}

var columnComments = []struct{ column, comment string }{
	{"stock_quantity", "Units currently in stock; never negative"},
	{"stock_status", "in_stock, low_stock or out_of_stock; maintained by " + database.StockTrigger},
}

// Store is the part of the destination store the provisioner touches.
type Store interface {
	database.Schema
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	UpsertCategory(ctx context.Context, c model.Category) (bool, error)
}

// Buckets manages storage buckets.
type Buckets interface {
	GetBucket(ctx context.Context, id string) (*model.Bucket, error)
	CreateBucket(ctx context.Context, b model.Bucket) error
}

// Step is one idempotent provisioning operation. Check, when set, reports
// whether the step is already satisfied without changing anything.
type Step struct {
	Name  string
	Apply func(ctx context.Context) (Outcome, error)
	Check func(ctx context.Context) (bool, error)
}

// Result records how a step went.
type Result struct {
	Step    string
	Outcome Outcome
	Err     error
}

// State is the status of a step as reported by Status.
type State struct {
	Step      string
	Checked   bool
	Satisfied bool
	Err       error
}

// Provisioner runs its steps in order. A failing step never stops the
// steps after it.
type Provisioner struct {
	steps []Step
}

// New builds the standard step list. buckets may be nil when no storage
// service is configured; the bucket step then reports unsupported.
func New(store Store, buckets Buckets) *Provisioner {
	return &Provisioner{steps: Steps(store, buckets)}
}

// NewWithSteps runs a custom step list.
func NewWithSteps(steps ...Step) *Provisioner {
	return &Provisioner{steps: steps}
}

func (p *Provisioner) Steps() []Step { return p.steps }

// Run applies every step and returns one result per step.
func (p *Provisioner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(p.steps))
	for i, s := range p.steps {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Step: s.Name, Outcome: Failed, Err: err})
			continue
		}
		outcome, err := s.Apply(ctx)
		if errors.Is(err, database.ErrUnsupported) {
			outcome, err = Unsupported, nil
		}
		if err != nil {
			outcome = Failed
		}
		results = append(results, Result{Step: s.Name, Outcome: outcome, Err: err})

		attrs := []any{
			slog.Int("step", i+1),
			slog.Int("steps", len(p.steps)),
			slog.String("name", s.Name),
			slog.String("outcome", string(outcome)),
		}
		switch outcome {
		case Failed:
			slog.Error("[Provisioner] Step failed", append(attrs, slog.String("error", err.Error()))...)
		case Unsupported:
			slog.Warn("[Provisioner] Step not supported by backend", attrs...)
		default:
			slog.Info("[Provisioner] Step done", attrs...)
		}
	}
	return results
}

// Status checks which steps are already satisfied.
func (p *Provisioner) Status(ctx context.Context) []State {
	states := make([]State, 0, len(p.steps))
	for _, s := range p.steps {
		st := State{Step: s.Name}
		if s.Check != nil {
			st.Checked = true
			st.Satisfied, st.Err = s.Check(ctx)
		}
		states = append(states, st)
	}
	return states
}

// Failures counts failed results.
func Failures(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Outcome == Failed {
			n++
		}
	}
	return n
}

// Steps returns the ordered provisioning steps.
func Steps(store Store, buckets Buckets) []Step {
	return []Step{
		addColumnStep(store, "products", "stock_quantity", "INTEGER NOT NULL DEFAULT 0"),
		addColumnStep(store, "products", "stock_status", fmt.Sprintf("TEXT NOT NULL DEFAULT '%s'", model.StockInStock)),
		{
			Name: "constraint " + stockQuantityCheck,
			Apply: func(ctx context.Context) (Outcome, error) {
				return Applied, store.ReplaceCheckConstraint(ctx, "products", stockQuantityCheck, "stock_quantity >= 0")
			},
		},
		{
			Name: "index " + stockStatusIndex,
			Apply: func(ctx context.Context) (Outcome, error) {
				return created(store.CreateIndex(ctx, "products", stockStatusIndex, "stock_status"))
			},
			Check: func(ctx context.Context) (bool, error) {
				return store.HasIndex(ctx, stockStatusIndex)
			},
		},
		{
			Name: "trigger " + database.StockTrigger,
			Apply: func(ctx context.Context) (Outcome, error) {
				return Applied, store.InstallStockTrigger(ctx, LowStockThreshold)
			},
			Check: func(ctx context.Context) (bool, error) {
				return store.HasTrigger(ctx, database.StockTrigger)
			},
		},
		{
			Name: "column comments",
			Apply: func(ctx context.Context) (Outcome, error) {
				for _, c := range columnComments {
					if err := store.CommentOnColumn(ctx, "products", c.column, c.comment); err != nil {
						return Failed, fmt.Errorf("comment on %s: %w", c.column, err)
					}
				}
				return Applied, nil
			},
		},
		bucketStep(buckets),
		{
			Name: "post categories",
			Apply: func(ctx context.Context) (Outcome, error) {
				return seed(model.DefaultCategories, func(c model.Category) (bool, error) {
					return store.UpsertCategory(ctx, c)
				})
			},
			Check: func(ctx context.Context) (bool, error) {
				for _, c := range model.DefaultCategories {
					_, err := store.GetCategoryByName(ctx, c.Name)
					if errors.Is(err, database.ErrNotFound) {
						return false, nil
					}
					if err != nil {
						return false, err
					}
				}
				return true, nil
			},
		},
		{
			Name: "product categories",
			Apply: func(ctx context.Context) (Outcome, error) {
				return seed(DefaultProductCategories, func(c model.ProductCategory) (bool, error) {
					return store.UpsertProductCategory(ctx, c)
				})
			},
		},
	}
}

func addColumnStep(store Store, table, column, definition string) Step {
	return Step{
		Name: fmt.Sprintf("column %s.%s", table, column),
		Apply: func(ctx context.Context) (Outcome, error) {
			return created(store.AddColumn(ctx, table, column, definition))
		},
		Check: func(ctx context.Context) (bool, error) {
			return store.HasColumn(ctx, table, column)
		},
	}
}

func bucketStep(buckets Buckets) Step {
	step := Step{Name: "bucket " + ProductImagesBucket}
	if buckets == nil {
		step.Apply = func(context.Context) (Outcome, error) { return Unsupported, nil }
		return step
	}
	step.Apply = func(ctx context.Context) (Outcome, error) {
		_, err := buckets.GetBucket(ctx, ProductImagesBucket)
		if err == nil {
			return AlreadyPresent, nil
		}
		if !errors.Is(err, storage.ErrBucketNotFound) {
			return Failed, err
		}
		err = buckets.CreateBucket(ctx, model.Bucket{
			ID:               ProductImagesBucket,
			Name:             ProductImagesBucket,
			Public:           true,
			FileSizeLimit:    MaxImageSize,
			AllowedMimeTypes: ImageMimeTypes,
		})
		if err != nil {
			return Failed, err
		}
		return Applied, nil
	}
	step.Check = func(ctx context.Context) (bool, error) {
		_, err := buckets.GetBucket(ctx, ProductImagesBucket)
		if errors.Is(err, storage.ErrBucketNotFound) {
			return false, nil
		}
		return err == nil, err
	}
	return step
}

func created(ok bool, err error) (Outcome, error) {
	switch {
	case err != nil:
		return Failed, err
	case ok:
		return Applied, nil
	default:
		return AlreadyPresent, nil
	}
}

// seed upserts every row, carrying on past failures.
func seed[T any](rows []T, upsert func(T) (bool, error)) (Outcome, error) {
	var errs []error
	inserted := 0
	for _, r := range rows {
		ok, err := upsert(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			inserted++
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Failed, err
	}
	if inserted == 0 {
		return AlreadyPresent, nil
	}
	return Applied, nil
}
