package widgets

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bryan-buckman/nutrihub/internal/webapi"
)

// StatsSource fetches the user's usage counters.
type StatsSource interface {
	MyStats(ctx context.Context) (*webapi.UsageStats, error)
}

// StatsPanel shows how often the user ran each tool.
type StatsPanel struct {
	controller
	api StatsSource

	usage webapi.ServiceUsage
}

func NewStatsPanel(api StatsSource) *StatsPanel {
	return &StatsPanel{api: api}
}

// Load fetches the counters. A user who has never used a tool sees the
// empty state.
func (p *StatsPanel) Load(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}
	st, err := p.api.MyStats(ctx)
	empty := false
	if err == nil {
		p.mu.Lock()
		p.usage = st.ServiceUsage
		p.mu.Unlock()
		empty = st.ServiceUsage == webapi.ServiceUsage{}
	}
	p.finish(err, empty)
	return err
}

// Usage returns the last loaded counters.
func (p *StatsPanel) Usage() webapi.ServiceUsage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

// Render writes the panel for the current state.
func (p *StatsPanel) Render(w io.Writer) error {
	s := p.State()
	switch s.Status {
	case StatusIdle, StatusLoading:
		_, err := io.WriteString(w, "Loading your stats...\n")
		return err
	case StatusEmpty:
		_, err := io.WriteString(w, "You have not used any tools yet.\n")
		return err
	case StatusError:
		_, err := fmt.Fprintf(w, "Could not load your stats: %v\n", s.Err)
		return err
	case StatusRedirect:
		_, err := io.WriteString(w, redirectLine(s)+"\n")
		return err
	}

	u := p.Usage()
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ingredient analysis\t%d\n", u.IngredientAnalysis)
	fmt.Fprintf(tw, "Meal plans\t%d\n", u.MealPlan)
	fmt.Fprintf(tw, "Supplement recommendations\t%d\n", u.SupplementRecommendation)
	fmt.Fprintf(tw, "Mini-game\t%d\n", u.MiniGame)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}
