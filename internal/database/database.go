package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore wraps the SQLite connection. It backs local runs and tests.
type SQLiteStore struct {
	*sqlStore
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection; keep a single one.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &SQLiteStore{sqlStore: newSQLStore(sqlx.NewDb(conn, "sqlite"), sq.Question)}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// DatabaseType returns the database backend name.
func (db *SQLiteStore) DatabaseType() string {
	return "SQLite"
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		post_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		post_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		external_ref TEXT UNIQUE,
		title TEXT NOT NULL CHECK (trim(title) <> ''),
		summary TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		source_type TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		published_date DATETIME NOT NULL,
		collected_date DATETIME NOT NULL,
		trust_score INTEGER NOT NULL DEFAULT 50,
		category_id TEXT NOT NULL REFERENCES categories(id),
		image_url TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		view_count INTEGER NOT NULL DEFAULT 0,
		like_count INTEGER NOT NULL DEFAULT 0,
		bookmark_count INTEGER NOT NULL DEFAULT 0,
		is_manual_post BOOLEAN NOT NULL DEFAULT 0,
		admin_id TEXT,
		admin_note TEXT NOT NULL DEFAULT '',
		is_draft BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post_tags (
		post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (post_id, tag_id)
	);
	CREATE TABLE IF NOT EXISTS product_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		category_id TEXT REFERENCES product_categories(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS product_analytics (
		product_id TEXT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		view_count INTEGER NOT NULL DEFAULT 0,
		click_count INTEGER NOT NULL DEFAULT 0,
		purchase_count INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_posts_category_id ON posts(category_id);
	CREATE INDEX IF NOT EXISTS idx_posts_published_date ON posts(published_date DESC);
	CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);
	`
	_, err := db.db.Exec(schema)
	return err
}

// --- Schema Methods ---

// HasColumn reports whether table has the named column.
func (db *SQLiteStore) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var n int
	if err := db.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *SQLiteStore) AddColumn(ctx context.Context, table, column, definition string) (bool, error) {
	if err := checkIdents(table, column); err != nil {
		return false, err
	}
	exists, err := db.HasColumn(ctx, table, column)
	if err != nil || exists {
		return false, err
	}
	if _, err := db.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceCheckConstraint is not possible on an existing SQLite table.
func (db *SQLiteStore) ReplaceCheckConstraint(ctx context.Context, table, name, expr string) error {
	return ErrUnsupported
}

func (db *SQLiteStore) HasIndex(ctx context.Context, name string) (bool, error) {
	return db.hasObject(ctx, "index", name)
}

func (db *SQLiteStore) HasTrigger(ctx context.Context, name string) (bool, error) {
	return db.hasObject(ctx, "trigger", name)
}

func (db *SQLiteStore) hasObject(ctx context.Context, kind, name string) (bool, error) {
	var n int
	if err := db.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *SQLiteStore) CreateIndex(ctx context.Context, table, name string, columns ...string) (bool, error) {
	if err := checkIdents(append([]string{table, name}, columns...)...); err != nil {
		return false, err
	}
	exists, err := db.HasIndex(ctx, name)
	if err != nil || exists {
		return false, err
	}
	_, err = db.db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		name, table, strings.Join(columns, ", ")))
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *SQLiteStore) InstallStockTrigger(ctx context.Context, lowStockThreshold int) error {
	status := fmt.Sprintf(`CASE
			WHEN NEW.stock_quantity <= 0 THEN 'out_of_stock'
			WHEN NEW.stock_quantity <= %d THEN 'low_stock'
			ELSE 'in_stock' END`, lowStockThreshold)
	stmts := []string{
		"DROP TRIGGER IF EXISTS " + StockTrigger + "_insert",
		"DROP TRIGGER IF EXISTS " + StockTrigger,
		`CREATE TRIGGER ` + StockTrigger + `_insert AFTER INSERT ON products
		BEGIN
			UPDATE products SET stock_status = ` + status + ` WHERE id = NEW.id;
		END`,
		`CREATE TRIGGER ` + StockTrigger + ` AFTER UPDATE OF stock_quantity ON products
		BEGIN
			UPDATE products SET stock_status = ` + status + ` WHERE id = NEW.id;
		END`,
	}
	for _, stmt := range stmts {
		if _, err := db.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CommentOnColumn is not possible in SQLite.
func (db *SQLiteStore) CommentOnColumn(ctx context.Context, table, column, comment string) error {
	return ErrUnsupported
}
