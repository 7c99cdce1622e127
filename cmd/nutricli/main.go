// Command nutricli drives the site's panels from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/bryan-buckman/nutrihub/internal/config"
	"github.com/bryan-buckman/nutrihub/internal/logging"
	"github.com/bryan-buckman/nutrihub/internal/webapi"
	"github.com/bryan-buckman/nutrihub/internal/widgets"
)

type renderer interface {
	Render(w io.Writer) error
}

func main() {
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	global := flag.NewFlagSet("nutricli", flag.ExitOnError)
	baseURL := global.String("api", cfg.APIURL, "API base URL")
	token := global.String("token", os.Getenv("NUTRIHUB_TOKEN"), "session token")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := webapi.NewClient(*baseURL, *token)

	var (
		view renderer
		err  error
	)
	switch args[0] {
	case "bookmarks":
		fs := flag.NewFlagSet("bookmarks", flag.ExitOnError)
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", widgets.DefaultPageSize, "cards per page")
		_ = fs.Parse(args[1:])
		g := widgets.NewBookmarkGrid(client, *limit)
		err = g.Load(ctx, *page)
		view = g
	case "me":
		h := widgets.NewHeaderAuth(client)
		err = h.Refresh(ctx)
		view = h
	case "logout":
		h := widgets.NewHeaderAuth(client)
		err = h.Logout(ctx)
		view = h
	case "contact":
		fs := flag.NewFlagSet("contact", flag.ExitOnError)
		category := fs.String("category", "general", "topic")
		subject := fs.String("subject", "", "subject line")
		message := fs.String("message", "", "message body")
		email := fs.String("email", "", "reply address")
		_ = fs.Parse(args[1:])
		f := widgets.NewContactForm(client)
		err = f.Submit(ctx, webapi.ContactRequest{
			Category: *category,
			Subject:  *subject,
			Message:  *message,
			Email:    *email,
		})
		view = f
	case "stats":
		p := widgets.NewStatsPanel(client)
		err = p.Load(ctx)
		view = p
	default:
		printUsage()
		os.Exit(1)
	}

	if rerr := view.Render(os.Stdout); rerr != nil {
		log.Fatalf("render: %v", rerr)
	}
	if err != nil {
		if errors.Is(err, webapi.ErrUnauthorized) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("nutricli [-api url] [-token t] <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  bookmarks [-page n] [-limit n]")
	fmt.Println("  me")
	fmt.Println("  logout")
	fmt.Println("  contact -category c -subject s -message m -email e")
	fmt.Println("  stats")
}
