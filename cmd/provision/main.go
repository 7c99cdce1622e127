// Command provision prepares the product schema, the image bucket and the
// seed categories. Every step is safe to rerun.
//
//	provision
//	provision status
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/bryan-buckman/nutrihub/internal/config"
	"github.com/bryan-buckman/nutrihub/internal/database"
	"github.com/bryan-buckman/nutrihub/internal/logging"
	"github.com/bryan-buckman/nutrihub/internal/provision"
	"github.com/bryan-buckman/nutrihub/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("[Provision] Invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	store, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("[Provision] Failed to open database", slog.String("error", err.Error()))
		return 1
	}
	defer store.Close()

	var buckets provision.Buckets
	if cfg.StorageURL != "" {
		buckets = storage.NewClient(cfg.StorageURL, cfg.ServiceKey)
	} else {
		slog.Warn("[Provision] NUTRIHUB_STORAGE_URL not set, bucket step will be skipped")
	}
	p := provision.New(store, buckets)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	switch fs.Arg(0) {
	case "":
		for _, r := range p.Run(ctx) {
			if r.Err != nil {
				fmt.Fprintf(tw, "%s\t%s\t%v\n", r.Step, r.Outcome, r.Err)
			} else {
				fmt.Fprintf(tw, "%s\t%s\n", r.Step, r.Outcome)
			}
		}
	case "status":
		for _, s := range p.Status(ctx) {
			switch {
			case !s.Checked:
				fmt.Fprintf(tw, "%s\tnot checked\n", s.Step)
			case s.Err != nil:
				fmt.Fprintf(tw, "%s\tcheck failed\t%v\n", s.Step, s.Err)
			case s.Satisfied:
				fmt.Fprintf(tw, "%s\tdone\n", s.Step)
			default:
				fmt.Fprintf(tw, "%s\tpending\n", s.Step)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\nusage: provision [status]\n", fs.Arg(0))
		return 1
	}
	return 0
}
