// Command migrate loads legacy nutrition items into the post store and
// reconciles the denormalized post counts.
//
//	migrate [-input file.json] [-opml sources.opml]
//	migrate status
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/bryan-buckman/nutrihub/internal/collect"
	"github.com/bryan-buckman/nutrihub/internal/config"
	"github.com/bryan-buckman/nutrihub/internal/database"
	"github.com/bryan-buckman/nutrihub/internal/loader"
	"github.com/bryan-buckman/nutrihub/internal/logging"
	"github.com/bryan-buckman/nutrihub/internal/migrate"
	"github.com/bryan-buckman/nutrihub/internal/model"
	"github.com/bryan-buckman/nutrihub/internal/opml"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	input := fs.String("input", "", "legacy JSON file (default $NUTRIHUB_INPUT or "+config.DefaultInputPath+")")
	sources := fs.String("opml", "", "OPML list of feeds to collect and migrate as well")
	skipFile := fs.Bool("feeds-only", false, "migrate only items collected from -opml")
	_ = fs.Parse(args)

	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("[Migrate] Invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	store, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("[Migrate] Failed to open database", slog.String("error", err.Error()))
		return 1
	}
	defer store.Close()
	slog.Info("[Migrate] Connected", slog.String("database", store.DatabaseType()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch fs.Arg(0) {
	case "":
	case "status":
		return printStatus(ctx, os.Stdout, store)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\nusage: migrate [flags] [status]\n", fs.Arg(0))
		return 1
	}

	var items []model.LegacyItem
	if !*skipFile {
		path := *input
		if path == "" {
			path = cfg.InputPath
		}
		items, err = loader.LoadFile(path)
		if err != nil {
			slog.Error("[Migrate] Failed to load legacy items", slog.String("error", err.Error()))
			return 1
		}
		slog.Info("[Migrate] Loaded legacy items", slog.String("file", path), slog.Int("items", len(items)))
	}

	if *sources != "" {
		list, err := opml.ParseFile(*sources)
		if err != nil {
			slog.Error("[Migrate] Failed to read feed list", slog.String("error", err.Error()))
			return 1
		}
		collected, err := collect.NewCollector().CollectAll(ctx, list)
		if err != nil {
			slog.Error("[Migrate] Feed collection stopped", slog.String("error", err.Error()))
			return 1
		}
		items = append(items, collected...)
	}

	m := migrate.New(store,
		migrate.WithBatchSize(cfg.BatchSize),
		migrate.WithBatchPause(cfg.BatchPause),
		migrate.WithDefaultTracer(),
		migrate.WithDefaultMeter(),
	)
	report, err := m.Run(ctx, items)
	if err != nil {
		slog.Error("[Migrate] Migration interrupted",
			slog.Int("processed", report.Processed()),
			slog.Int("total", report.Total),
			slog.String("error", err.Error()))
		return 1
	}

	if _, err := migrate.Reconcile(ctx, store); err != nil {
		slog.Error("[Migrate] Failed to reconcile post counts", slog.String("error", err.Error()))
		return 1
	}

	fmt.Printf("migrated %d, skipped %d, failed %d of %d items (%d tag links, %d tag errors)\n",
		report.Migrated, report.Skipped, report.Errors, report.Total, report.TagLinks, report.TagErrors)
	for _, f := range report.Failures {
		fmt.Printf("  #%d %s %q: %v\n", f.Index, f.LegacyID, f.Title, f.Err)
	}
	return printStatus(ctx, os.Stdout, store)
}

func printStatus(ctx context.Context, w io.Writer, store database.Store) int {
	st, err := store.Stats(ctx)
	if err != nil {
		slog.Error("[Migrate] Failed to read status", slog.String("error", err.Error()))
		return 1
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "posts\t%d\n", st.Posts)
	fmt.Fprintf(tw, "tags\t%d\n", st.Tags)
	fmt.Fprintf(tw, "post-tag links\t%d\n", st.Links)
	for _, c := range st.Categories {
		fmt.Fprintf(tw, "category %s\t%d\n", c.Name, c.PostCount)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
