// Package collect fetches feed sources and turns their entries into legacy items.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bryan-buckman/nutrihub/internal/loader"
	"github.com/bryan-buckman/nutrihub/internal/model"
	"github.com/bryan-buckman/nutrihub/internal/opml"
)

const (
	DefaultWorkers = 4
	// DefaultHostConns caps parallel requests to one host.
	DefaultHostConns = 2
	// DefaultHostGap is the minimum spacing between request starts on one host.
	DefaultHostGap = 500 * time.Millisecond
)

// hostLimiter bounds and spaces requests per feed host. Start times are
// reserved under the lock, so callers queued on the same host never start
// closer together than gap.
type hostLimiter struct {
	conns int
	gap   time.Duration

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

type hostSlot struct {
	sem  chan struct{}
	next time.Time
}

func newHostLimiter(conns int, gap time.Duration) *hostLimiter {
	return &hostLimiter{
		conns: max(conns, 1),
		gap:   max(gap, 0),
		hosts: make(map[string]*hostSlot),
	}
}

func (l *hostLimiter) slot(host string) *hostSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.hosts[host]
	if !ok {
		s = &hostSlot{sem: make(chan struct{}, l.conns)}
		l.hosts[host] = s
	}
	return s
}

// wait blocks until host has a free connection and its next start time has
// come. The returned func gives the connection back.
func (l *hostLimiter) wait(ctx context.Context, host string) (func(), error) {
	s := l.slot(host)
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-s.sem }

	l.mu.Lock()
	now := time.Now()
	start := now
	if s.next.After(now) {
		start = s.next
	}
	s.next = start.Add(l.gap)
	l.mu.Unlock()

	if d := start.Sub(now); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func hostOf(feedURL string) string {
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return feedURL
}

// Option configures a Collector.
type Option func(*Collector)

// WithWorkers sets how many feeds are fetched at once.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		c.workers = max(n, 1)
	}
}

// WithHostLimit sets the per-host connection cap and request spacing.
func WithHostLimit(conns int, gap time.Duration) Option {
	return func(c *Collector) {
		c.hosts = newHostLimiter(conns, gap)
	}
}

// Collector fetches feeds and converts their entries.
type Collector struct {
	parser  *gofeed.Parser
	workers int
	hosts   *hostLimiter
	now     func() time.Time
}

// NewCollector creates a collector with DefaultWorkers workers and the
// default per-host limits.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		parser:  gofeed.NewParser(),
		workers: DefaultWorkers,
		hosts:   newHostLimiter(DefaultHostConns, DefaultHostGap),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectFeed fetches one source and returns its entries as legacy items
// labelled with the source's category.
func (c *Collector) CollectFeed(ctx context.Context, src opml.Source) ([]model.LegacyItem, error) {
	release, err := c.hosts.wait(ctx, hostOf(src.URL))
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", src.URL, err)
	}
	defer release()

	parsed, err := c.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}
	if parsed.Title == "" {
		parsed.Title = src.Title
	}
	return loader.FromFeed(parsed, src.Category, c.now()), nil
}

// CollectAll fetches every source. A failing source is logged and skipped.
// Items keep the order of the source list.
func (c *Collector) CollectAll(ctx context.Context, sources []opml.Source) ([]model.LegacyItem, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	slog.Info("[Collector] Fetching feeds",
		slog.Int("feeds", len(sources)),
		slog.Int("workers", c.workers))

	perSource := make([][]model.LegacyItem, len(sources))
	var err error
	if c.workers <= 1 {
		err = c.collectSequential(ctx, sources, perSource)
	} else {
		err = c.collectParallel(ctx, sources, perSource)
	}

	var items []model.LegacyItem
	for _, batch := range perSource {
		items = append(items, batch...)
	}
	return items, err
}

func (c *Collector) collectSequential(ctx context.Context, sources []opml.Source, out [][]model.LegacyItem) error {
	for i, src := range sources {
		select {
		case <-ctx.Done():
			slog.Warn("[Collector] Cancelled", slog.Int("done", i), slog.Int("feeds", len(sources)))
			return ctx.Err()
		default:
		}

		items, err := c.CollectFeed(ctx, src)
		if err != nil {
			slog.Error("[Collector] Failed to fetch feed", slog.String("url", src.URL), slog.String("error", err.Error()))
			continue
		}
		out[i] = items
	}
	return nil
}

func (c *Collector) collectParallel(ctx context.Context, sources []opml.Source, out [][]model.LegacyItem) error {
	var wg sync.WaitGroup
	jobs := make(chan int)

	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items, err := c.CollectFeed(ctx, sources[i])
				if err != nil {
					slog.Error("[Collector] Failed to fetch feed", slog.String("url", sources[i].URL), slog.String("error", err.Error()))
					continue
				}
				// Each index is written by exactly one worker.
				out[i] = items
			}
		}()
	}

feed:
	for i := range sources {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}
