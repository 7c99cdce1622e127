package widgets

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bryan-buckman/nutrihub/internal/webapi"
)

// DefaultPageSize is the number of bookmark cards per page.
const DefaultPageSize = 12

// BookmarkSource lists the user's bookmarks a page at a time.
type BookmarkSource interface {
	Bookmarks(ctx context.Context, page, limit int) (*webapi.BookmarkPage, error)
}

// BookmarkGrid shows the user's bookmarked posts with pagination.
type BookmarkGrid struct {
	controller
	api   BookmarkSource
	limit int

	// guarded by controller.mu
	page    int
	current *webapi.BookmarkPage
}

func NewBookmarkGrid(api BookmarkSource, limit int) *BookmarkGrid {
	if limit < 1 {
		limit = DefaultPageSize
	}
	return &BookmarkGrid{api: api, limit: limit, page: 1}
}

// Load fetches the given page.
func (g *BookmarkGrid) Load(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	if err := g.begin(); err != nil {
		return err
	}
	res, err := g.api.Bookmarks(ctx, page, g.limit)

	g.mu.Lock()
	g.page = page
	if err == nil {
		g.current = res
	}
	g.mu.Unlock()

	g.finish(err, err == nil && len(res.Data) == 0)
	return err
}

// Next loads the following page when there is one.
func (g *BookmarkGrid) Next(ctx context.Context) error {
	p, ok := g.pagination()
	if !ok || !p.HasNext {
		return nil
	}
	return g.Load(ctx, p.CurrentPage+1)
}

// Prev loads the previous page when there is one.
func (g *BookmarkGrid) Prev(ctx context.Context) error {
	p, ok := g.pagination()
	if !ok || !p.HasPrev {
		return nil
	}
	return g.Load(ctx, p.CurrentPage-1)
}

// Retry reloads the page that was last requested.
func (g *BookmarkGrid) Retry(ctx context.Context) error {
	g.mu.Lock()
	page := g.page
	g.mu.Unlock()
	return g.Load(ctx, page)
}

// Page returns the last successfully loaded page.
func (g *BookmarkGrid) Page() *webapi.BookmarkPage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *BookmarkGrid) pagination() (webapi.Pagination, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return webapi.Pagination{}, false
	}
	return g.current.Pagination, true
}

// Render writes the grid for the current state.
func (g *BookmarkGrid) Render(w io.Writer) error {
	s := g.State()
	var b strings.Builder
	switch s.Status {
	case StatusIdle, StatusLoading:
		b.WriteString("Loading bookmarks...\n")
	case StatusEmpty:
		b.WriteString("No bookmarks yet. Save posts to see them here.\n")
	case StatusError:
		fmt.Fprintf(&b, "Could not load bookmarks: %v\nRetry to try again.\n", s.Err)
	case StatusRedirect:
		b.WriteString(redirectLine(s) + "\n")
	case StatusSuccess:
		page := g.Page()
		for i, bm := range page.Data {
			fmt.Fprintf(&b, "%2d. %s", (page.Pagination.CurrentPage-1)*g.limit+i+1, bm.Title)
			if bm.Category != "" {
				fmt.Fprintf(&b, " [%s]", bm.Category)
			}
			if bm.SourceName != "" {
				fmt.Fprintf(&b, " - %s", bm.SourceName)
			}
			b.WriteString("\n")
			if bm.Summary != "" {
				fmt.Fprintf(&b, "    %s\n", bm.Summary)
			}
		}
		b.WriteString(pageFooter(page.Pagination) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func pageFooter(p webapi.Pagination) string {
	prev, next := "  ", "  "
	if p.HasPrev {
		prev = "<<"
	}
	if p.HasNext {
		next = ">>"
	}
	return fmt.Sprintf("%s page %d of %d (%d total) %s", prev, p.CurrentPage, p.TotalPages, p.TotalCount, next)
}
