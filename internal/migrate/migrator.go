package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchPause = time.Second
)

// ErrMissingTitle is reported for items whose title is empty or blank.
var ErrMissingTitle = errors.New("missing title")

// Store is the subset of the destination store the migrator writes to.
type Store interface {
	CategoryStore
	TagStore
	AddPost(ctx context.Context, p *model.Post) (bool, error)
	GetPostByExternalRef(ctx context.Context, ref string) (*model.Post, error)
	LinkPostTag(ctx context.Context, postID, tagID string) (bool, error)
}

// Failure describes one item that could not be migrated.
type Failure struct {
	Index    int
	LegacyID string
	Title    string
	Err      error
}

// Report summarizes a migration run.
type Report struct {
	Total     int
	Migrated  int
	Skipped   int
	Errors    int
	TagLinks  int
	TagErrors int
	Failures  []Failure
}

// Processed is the number of items that reached an outcome.
func (r Report) Processed() int {
	return r.Migrated + r.Skipped + r.Errors
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithBatchSize sets how many items are processed between pauses.
func WithBatchSize(n int) Option {
	return func(m *Migrator) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithBatchPause sets the pause between batches. Zero disables it.
func WithBatchPause(d time.Duration) Option {
	return func(m *Migrator) {
		if d >= 0 {
			m.batchPause = d
		}
	}
}

// WithClock overrides the time used for missing collection dates.
func WithClock(now func() time.Time) Option {
	return func(m *Migrator) {
		m.now = now
	}
}

// Migrator copies legacy items into the store in paced batches.
// A Migrator runs one migration at a time.
type Migrator struct {
	store      Store
	categories *CategoryResolver
	tags       *TagResolver
	batchSize  int
	batchPause time.Duration
	now        func() time.Time

	tracer  trace.Tracer
	metrics *Metrics
}

// New creates a migrator writing to store.
func New(store Store, opts ...Option) *Migrator {
	m := &Migrator{
		store:      store,
		categories: NewCategoryResolver(store),
		tags:       NewTagResolver(store),
		batchSize:  DefaultBatchSize,
		batchPause: DefaultBatchPause,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run migrates items in order. A failing item is recorded in the report and
// does not stop the run. When ctx is cancelled Run stops before the next item
// and returns the partial report with the context error.
func (m *Migrator) Run(ctx context.Context, items []model.LegacyItem) (Report, error) {
	report := Report{Total: len(items)}
	batches := (len(items) + m.batchSize - 1) / m.batchSize

	ctx, span := m.startSpan(ctx, "migrate.run",
		attribute.Int("items", len(items)),
		attribute.Int("batches", batches))
	defer span.End()

	slog.Info("[Migrator] Starting migration",
		slog.Int("items", len(items)),
		slog.Int("batch_size", m.batchSize),
		slog.Int("batches", batches))

	for b := 0; b < batches; b++ {
		if b > 0 && m.batchPause > 0 {
			if err := sleep(ctx, m.batchPause); err != nil {
				return m.stopped(report, span, err)
			}
		}

		start := b * m.batchSize
		end := min(start+m.batchSize, len(items))
		if err := m.runBatch(ctx, b+1, items, start, end, &report); err != nil {
			return m.stopped(report, span, err)
		}

		slog.Info("[Migrator] Batch complete",
			slog.Int("batch", b+1),
			slog.Int("batches", batches),
			slog.Int("processed", report.Processed()),
			slog.Int("total", report.Total))
	}

	span.SetAttributes(
		attribute.Int("migrated", report.Migrated),
		attribute.Int("skipped", report.Skipped),
		attribute.Int("errors", report.Errors))
	slog.Info("[Migrator] Migration finished",
		slog.Int("migrated", report.Migrated),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", report.Errors),
		slog.Int("tag_links", report.TagLinks),
		slog.Int("tag_errors", report.TagErrors))
	return report, nil
}

func (m *Migrator) stopped(report Report, span spanWrapper, err error) (Report, error) {
	span.RecordError(err)
	slog.Warn("[Migrator] Migration stopped",
		slog.Int("processed", report.Processed()),
		slog.Int("total", report.Total),
		slog.String("error", err.Error()))
	return report, err
}

func (m *Migrator) runBatch(ctx context.Context, n int, items []model.LegacyItem, start, end int, report *Report) error {
	ctx, span := m.startSpan(ctx, "migrate.batch",
		attribute.Int("batch", n),
		attribute.Int("size", end-start))
	defer span.End()

	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.migrateItem(ctx, i, items[i], report)
	}
	return nil
}

func (m *Migrator) migrateItem(ctx context.Context, index int, item model.LegacyItem, report *Report) {
	rec := Transform(item, m.now())

	fail := func(err error) {
		report.Errors++
		report.Failures = append(report.Failures, Failure{
			Index:    index,
			LegacyID: rec.LegacyID,
			Title:    item.Title,
			Err:      err,
		})
		m.recordItem(ctx, outcomeFailed)
		slog.Error("[Migrator] Failed to migrate item",
			slog.Int("index", index),
			slog.String("legacy_id", rec.LegacyID),
			slog.String("title", item.Title),
			slog.String("error", err.Error()))
	}

	if item.DecodeErr != nil {
		fail(item.DecodeErr)
		return
	}
	if strings.TrimSpace(rec.Post.Title) == "" {
		fail(ErrMissingTitle)
		return
	}

	categoryID, err := m.categories.Resolve(ctx, rec.CategoryLabel)
	if err != nil {
		fail(err)
		return
	}
	rec.Post.CategoryID = categoryID

	inserted, err := m.store.AddPost(ctx, &rec.Post)
	if err != nil {
		fail(fmt.Errorf("insert post: %w", err))
		return
	}
	postID := rec.Post.ID
	if inserted {
		report.Migrated++
		m.recordItem(ctx, outcomeMigrated)
	} else {
		report.Skipped++
		m.recordItem(ctx, outcomeSkipped)
		slog.Debug("[Migrator] Already migrated", slog.String("legacy_id", rec.LegacyID))
		if len(rec.Tags) == 0 {
			return
		}
		// Relink tags; links missing from an earlier run are added.
		existing, err := m.store.GetPostByExternalRef(ctx, rec.LegacyID)
		if err != nil {
			report.TagErrors++
			m.recordTag(ctx, false, err)
			slog.Warn("[Migrator] Failed to load migrated post",
				slog.String("legacy_id", rec.LegacyID),
				slog.String("error", err.Error()))
			return
		}
		postID = existing.ID
	}

	for _, name := range rec.Tags {
		linked, err := m.linkTag(ctx, postID, name)
		m.recordTag(ctx, linked, err)
		if err != nil {
			report.TagErrors++
			slog.Warn("[Migrator] Failed to tag post",
				slog.String("post_id", postID),
				slog.String("tag", name),
				slog.String("error", err.Error()))
			continue
		}
		if linked {
			report.TagLinks++
		}
	}
}

func (m *Migrator) linkTag(ctx context.Context, postID, name string) (bool, error) {
	tagID, _, err := m.tags.Resolve(ctx, name)
	if err != nil {
		return false, err
	}
	linked, err := m.store.LinkPostTag(ctx, postID, tagID)
	if err != nil {
		return false, fmt.Errorf("link tag %q: %w", name, err)
	}
	return linked, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FailureErrors joins the errors of every failed item.
func (r Report) FailureErrors() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("item %d (%s): %w", f.Index, f.LegacyID, f.Err))
	}
	return errors.Join(errs...)
}
