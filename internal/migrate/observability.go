package migrate

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/bryan-buckman/nutrihub/internal/migrate"

// Item outcomes recorded on the items counter.
const (
	outcomeMigrated = "migrated"
	outcomeSkipped  = "skipped"
	outcomeFailed   = "failed"
)

// Metrics holds the OpenTelemetry instruments for a migration run.
type Metrics struct {
	Items     metric.Int64Counter
	TagLinks  metric.Int64Counter
	TagErrors metric.Int64Counter
}

// WithTracer sets the OpenTelemetry tracer for the migrator.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Migrator) {
		m.tracer = tracer
	}
}

// WithDefaultTracer uses the global OpenTelemetry tracer.
func WithDefaultTracer() Option {
	return func(m *Migrator) {
		m.tracer = otel.Tracer(instrumentationName)
	}
}

// WithMeter records migration metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(m *Migrator) {
		m.metrics = initMetrics(meter)
	}
}

// WithDefaultMeter uses the global OpenTelemetry meter.
func WithDefaultMeter() Option {
	return func(m *Migrator) {
		m.metrics = initMetrics(otel.Meter(instrumentationName))
	}
}

func initMetrics(meter metric.Meter) *Metrics {
	items, _ := meter.Int64Counter("nutrihub.migrate.items",
		metric.WithDescription("Legacy items processed, by outcome"),
		metric.WithUnit("{item}"),
	)
	links, _ := meter.Int64Counter("nutrihub.migrate.tag_links",
		metric.WithDescription("Post-tag links created"),
		metric.WithUnit("{link}"),
	)
	tagErrors, _ := meter.Int64Counter("nutrihub.migrate.tag_errors",
		metric.WithDescription("Tags that could not be resolved or linked"),
		metric.WithUnit("{error}"),
	)
	return &Metrics{Items: items, TagLinks: links, TagErrors: tagErrors}
}

// spanWrapper tolerates a nil span so callers need not check for tracing.
type spanWrapper struct {
	span trace.Span
}

func (w spanWrapper) End() {
	if w.span != nil {
		w.span.End()
	}
}

func (w spanWrapper) RecordError(err error) {
	if w.span != nil {
		w.span.RecordError(err)
		w.span.SetStatus(codes.Error, err.Error())
	}
}

func (w spanWrapper) SetAttributes(kv ...attribute.KeyValue) {
	if w.span != nil {
		w.span.SetAttributes(kv...)
	}
}

func (m *Migrator) startSpan(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, spanWrapper) {
	if m.tracer == nil {
		return ctx, spanWrapper{nil}
	}
	ctx, span := m.tracer.Start(ctx, name, trace.WithAttributes(kv...))
	return ctx, spanWrapper{span}
}

func (m *Migrator) recordItem(ctx context.Context, outcome string) {
	if m.metrics == nil {
		return
	}
	m.metrics.Items.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Migrator) recordTag(ctx context.Context, linked bool, err error) {
	if m.metrics == nil {
		return
	}
	if err != nil {
		m.metrics.TagErrors.Add(ctx, 1)
		return
	}
	if linked {
		m.metrics.TagLinks.Add(ctx, 1)
	}
}
