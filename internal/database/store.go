// Package database provides storage backends for the nutrition content store.
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported is returned by schema operations a backend cannot express.
	ErrUnsupported = errors.New("not supported by this backend")
)

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	UpsertCategory(ctx context.Context, c model.Category) (bool, error)

	// Tag operations
	GetTags(ctx context.Context) ([]model.Tag, error)
	GetOrCreateTag(ctx context.Context, name string) (string, bool, error)

	// Post operations
	AddPost(ctx context.Context, p *model.Post) (bool, error)
	GetPostByExternalRef(ctx context.Context, ref string) (*model.Post, error)
	LinkPostTag(ctx context.Context, postID, tagID string) (bool, error)

	// Denormalized counts
	RecountCategoryPosts(ctx context.Context) (int64, error)
	RecountTagPosts(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (model.Stats, error)

	Schema
}

// StockTrigger is the name of the trigger installed by InstallStockTrigger.
const StockTrigger = "trg_products_stock_status"

// Schema holds the DDL and seed operations used by the provisioner.
// Each operation is safe to repeat.
type Schema interface {
	HasColumn(ctx context.Context, table, column string) (bool, error)
	HasIndex(ctx context.Context, name string) (bool, error)
	HasTrigger(ctx context.Context, name string) (bool, error)

	// AddColumn adds a column when missing and reports whether it was added.
	AddColumn(ctx context.Context, table, column, definition string) (bool, error)
	// ReplaceCheckConstraint drops and recreates a named CHECK constraint.
	ReplaceCheckConstraint(ctx context.Context, table, name, expr string) error
	// CreateIndex creates an index when missing and reports whether it was created.
	CreateIndex(ctx context.Context, table, name string, columns ...string) (bool, error)
	// InstallStockTrigger (re)creates the trigger keeping products.stock_status
	// in line with products.stock_quantity.
	InstallStockTrigger(ctx context.Context, lowStockThreshold int) error
	// CommentOnColumn sets a descriptive comment on a column.
	CommentOnColumn(ctx context.Context, table, column, comment string) error
	// UpsertProductCategory inserts or refreshes a product category by name.
	UpsertProductCategory(ctx context.Context, c model.ProductCategory) (bool, error)
}

// Open picks a backend from the URL scheme:
// "postgres://" or "postgresql://" for PostgreSQL, "sqlite:" for a SQLite file.
func Open(databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgres(databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")
		if path == "" {
			return nil, fmt.Errorf("sqlite url %q has no path", databaseURL)
		}
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// checkIdents rejects anything that is not a plain lowercase SQL identifier.
// DDL cannot take bind parameters, so names are validated before use.
func checkIdents(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}
