package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/nutrihub/internal/database"
	"github.com/bryan-buckman/nutrihub/internal/model"
	"github.com/bryan-buckman/nutrihub/internal/storage"
)

type memBuckets struct {
	buckets map[string]model.Bucket
	getErr  error
	creates int
}

func newMemBuckets() *memBuckets {
	return &memBuckets{buckets: make(map[string]model.Bucket)}
}

func (m *memBuckets) GetBucket(_ context.Context, id string) (*model.Bucket, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.buckets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrBucketNotFound, id)
	}
	return &b, nil
}

func (m *memBuckets) CreateBucket(_ context.Context, b model.Bucket) error {
	m.creates++
	m.buckets[b.ID] = b
	return nil
}

func newStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "provision.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func outcomes(results []Result) map[string]Outcome {
	out := make(map[string]Outcome, len(results))
	for _, r := range results {
		out[r.Step] = r.Outcome
	}
	return out
}

func TestRunTwice(t *testing.T) {
	store := newStore(t)
	buckets := newMemBuckets()
	p := New(store, buckets)
	ctx := context.Background()

	first := p.Run(ctx)
	require.Len(t, first, 9)
	assert.Equal(t, 0, Failures(first))
	assert.Equal(t, map[string]Outcome{
		"column products.stock_quantity":   Applied,
		"column products.stock_status":     Applied,
		"constraint " + stockQuantityCheck: Unsupported,
		"index " + stockStatusIndex:        Applied,
		"trigger " + database.StockTrigger: Applied,
		"column comments":                  Unsupported,
		"bucket " + ProductImagesBucket:    Applied,
		"post categories":                  Applied,
		"product categories":               Applied,
	}, outcomes(first))

	b := buckets.buckets[ProductImagesBucket]
	assert.True(t, b.Public)
	assert.Equal(t, int64(MaxImageSize), b.FileSizeLimit)
	assert.ElementsMatch(t, []string{"image/jpeg", "image/png", "image/webp", "image/gif"}, b.AllowedMimeTypes)

	second := p.Run(ctx)
	assert.Equal(t, 0, Failures(second))
	got := outcomes(second)
	assert.Equal(t, AlreadyPresent, got["column products.stock_quantity"])
	assert.Equal(t, AlreadyPresent, got["column products.stock_status"])
	assert.Equal(t, AlreadyPresent, got["index "+stockStatusIndex])
	assert.Equal(t, AlreadyPresent, got["bucket "+ProductImagesBucket])
	assert.Equal(t, AlreadyPresent, got["post categories"])
	assert.Equal(t, AlreadyPresent, got["product categories"])
	assert.Equal(t, 1, buckets.creates, "existing bucket is not recreated")

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(model.DefaultCategories))
}

func TestFailedStepDoesNotAbort(t *testing.T) {
	store := newStore(t)
	buckets := newMemBuckets()
	buckets.getErr = errors.New("storage unavailable")

	results := New(store, buckets).Run(context.Background())
	got := outcomes(results)
	assert.Equal(t, Failed, got["bucket "+ProductImagesBucket])
	assert.Equal(t, Applied, got["post categories"])
	assert.Equal(t, Applied, got["product categories"])
	assert.Equal(t, 1, Failures(results))

	for _, r := range results {
		if r.Outcome == Failed {
			assert.ErrorContains(t, r.Err, "storage unavailable")
		}
	}
}

func TestNoStorageConfigured(t *testing.T) {
	results := New(newStore(t), nil).Run(context.Background())
	assert.Equal(t, Unsupported, outcomes(results)["bucket "+ProductImagesBucket])
	assert.Equal(t, 0, Failures(results))
}

func TestCustomSteps(t *testing.T) {
	var order []string
	step := func(name string, outcome Outcome, err error) Step {
		return Step{Name: name, Apply: func(context.Context) (Outcome, error) {
			order = append(order, name)
			return outcome, err
		}}
	}
	p := NewWithSteps(
		step("a", Applied, errors.New("boom")),
		step("b", Applied, fmt.Errorf("wrapped: %w", database.ErrUnsupported)),
		step("c", AlreadyPresent, nil),
	)

	results := p.Run(context.Background())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, Failed, results[0].Outcome)
	assert.Equal(t, Unsupported, results[1].Outcome)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, AlreadyPresent, results[2].Outcome)
}

func TestStatus(t *testing.T) {
	store := newStore(t)
	p := New(store, newMemBuckets())
	ctx := context.Background()

	satisfied := func() map[string]bool {
		out := map[string]bool{}
		for _, s := range p.Status(ctx) {
			require.NoError(t, s.Err)
			if s.Checked {
				out[s.Step] = s.Satisfied
			}
		}
		return out
	}

	before := satisfied()
	assert.Len(t, before, 6)
	for step, ok := range before {
		assert.False(t, ok, step)
	}

	p.Run(ctx)
	for step, ok := range satisfied() {
		assert.True(t, ok, step)
	}
}
