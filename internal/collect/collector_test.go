package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/nutrihub/internal/opml"
)

func rss(title string, guids ...string) string {
	items := ""
	for _, g := range guids {
		items += fmt.Sprintf("<item><title>%s</title><guid>%s</guid><link>https://example.com/%s</link></item>", g, g, g)
	}
	return fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><title>%s</title>%s</channel></rss>`, title, items)
}

func newFeedServer(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/diet.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rss("Diet Feed", "d1", "d2"))
	})
	r.Get("/trends.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rss("Trends Feed", "t1"))
	})
	r.Get("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectAll(t *testing.T) {
	srv := newFeedServer(t)
	sources := []opml.Source{
		{Category: "diet", URL: srv.URL + "/diet.xml"},
		{Category: "trends", URL: srv.URL + "/broken.xml"},
		{Category: "trends", URL: srv.URL + "/trends.xml"},
	}

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			c := NewCollector(WithWorkers(workers), WithHostLimit(DefaultHostConns, 0))
			items, err := c.CollectAll(context.Background(), sources)
			require.NoError(t, err)
			require.Len(t, items, 3)

			assert.Equal(t, "d1", items[0].ID)
			assert.Equal(t, "diet", items[0].Category)
			assert.Equal(t, "Diet Feed", items[0].SourceName)
			assert.Equal(t, "d2", items[1].ID)
			assert.Equal(t, "t1", items[2].ID)
			assert.Equal(t, "trends", items[2].Category)
		})
	}
}

func TestCollectAllCancelled(t *testing.T) {
	srv := newFeedServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(WithWorkers(1)).CollectAll(ctx, []opml.Source{{URL: srv.URL + "/diet.xml"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostLimiterSpacesStarts(t *testing.T) {
	l := newHostLimiter(3, 30*time.Millisecond)
	ctx := context.Background()
	begin := time.Now()

	var (
		mu   sync.Mutex
		last time.Time
		wg   sync.WaitGroup
	)
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.wait(ctx, "feeds.example.com")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			if now := time.Now(); now.After(last) {
				last = now
			}
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, last.Sub(begin), 60*time.Millisecond, "third start waits two gaps")
}

func TestHostLimiterCapsConnections(t *testing.T) {
	l := newHostLimiter(1, 0)
	release, err := l.wait(context.Background(), "a.example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.wait(ctx, "a.example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.wait(context.Background(), "b.example.com")
	require.NoError(t, err)
	other()

	release()
	again, err := l.wait(context.Background(), "a.example.com")
	require.NoError(t, err)
	again()
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "feeds.example.com:8080", hostOf("https://feeds.example.com:8080/rss"))
	assert.Equal(t, "not a url", hostOf("not a url"))
}
