package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

// sqlStore holds the queries shared by both backends. Only the
// placeholder format differs between them.
type sqlStore struct {
	db *sqlx.DB
	ph sq.PlaceholderFormat
}

func newSQLStore(db *sqlx.DB, ph sq.PlaceholderFormat) *sqlStore {
	return &sqlStore{db: db, ph: ph}
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlStore) get(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	err = s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *sqlStore) selectAll(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

// --- Category Methods ---

// GetCategories returns all categories ordered by name.
func (s *sqlStore) GetCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := s.selectAll(ctx, &cats, sq.Select("id", "name", "description", "post_count").
		From("categories").
		OrderBy("name").
		PlaceholderFormat(s.ph))
	return cats, err
}

// GetCategoryByName looks up a category by its unique name.
func (s *sqlStore) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := s.get(ctx, &c, sq.Select("id", "name", "description", "post_count").
		From("categories").
		Where(sq.Eq{"name": name}).
		PlaceholderFormat(s.ph))
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", name, err)
	}
	return &c, nil
}

// UpsertCategory inserts a category or refreshes its description.
// Returns true when a new row was created.
func (s *sqlStore) UpsertCategory(ctx context.Context, c model.Category) (bool, error) {
	_, err := s.GetCategoryByName(ctx, c.Name)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err = s.exec(ctx, sq.Insert("categories").
		Columns("id", "name", "description").
		Values(c.ID, c.Name, c.Description).
		Suffix("ON CONFLICT (name) DO UPDATE SET description = excluded.description").
		PlaceholderFormat(s.ph))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// --- Tag Methods ---

// GetTags returns all tags ordered by name.
func (s *sqlStore) GetTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	err := s.selectAll(ctx, &tags, sq.Select("id", "name", "post_count").
		From("tags").
		OrderBy("name").
		PlaceholderFormat(s.ph))
	return tags, err
}

// GetOrCreateTag finds a tag by exact name, or creates it.
// The insert is conditional on the unique name, so a concurrent creator
// cannot produce a duplicate row; both callers read back the same id.
func (s *sqlStore) GetOrCreateTag(ctx context.Context, name string) (string, bool, error) {
	res, err := s.exec(ctx, sq.Insert("tags").
		Columns("id", "name").
		Values(uuid.NewString(), name).
		Suffix("ON CONFLICT (name) DO NOTHING").
		PlaceholderFormat(s.ph))
	if err != nil {
		return "", false, err
	}
	affected, _ := res.RowsAffected()

	var id string
	err = s.get(ctx, &id, sq.Select("id").From("tags").Where(sq.Eq{"name": name}).PlaceholderFormat(s.ph))
	if err != nil {
		return "", false, fmt.Errorf("tag %q: %w", name, err)
	}
	return id, affected > 0, nil
}

// --- Post Methods ---

var postColumns = []string{
	"id", "external_ref", "title", "summary", "content",
	"source_type", "source_url", "source_name", "author",
	"published_date", "collected_date", "trust_score", "category_id",
	"image_url", "language", "is_active", "view_count", "like_count",
	"bookmark_count", "is_manual_post", "admin_id", "admin_note", "is_draft",
	"created_at", "updated_at",
}

// AddPost inserts a post unless one with the same external_ref exists.
// Returns whether it was new.
func (s *sqlStore) AddPost(ctx context.Context, p *model.Post) (bool, error) {
	res, err := s.exec(ctx, sq.Insert("posts").
		Columns(postColumns...).
		Values(
			p.ID, p.ExternalRef, p.Title, p.Summary, p.Content,
			p.SourceType, p.SourceURL, p.SourceName, p.Author,
			p.PublishedDate, p.CollectedDate, p.TrustScore, p.CategoryID,
			p.ImageURL, p.Language, p.IsActive, p.ViewCount, p.LikeCount,
			p.BookmarkCount, p.IsManualPost, p.AdminID, p.AdminNote, p.IsDraft,
			p.CreatedAt, p.UpdatedAt,
		).
		Suffix("ON CONFLICT (external_ref) DO NOTHING").
		PlaceholderFormat(s.ph))
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// GetPostByExternalRef returns the post migrated from the given legacy id.
func (s *sqlStore) GetPostByExternalRef(ctx context.Context, ref string) (*model.Post, error) {
	var p model.Post
	err := s.get(ctx, &p, sq.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"external_ref": ref}).
		PlaceholderFormat(s.ph))
	if err != nil {
		return nil, fmt.Errorf("post %q: %w", ref, err)
	}
	return &p, nil
}

// LinkPostTag associates a tag with a post. Returns false if already linked.
func (s *sqlStore) LinkPostTag(ctx context.Context, postID, tagID string) (bool, error) {
	res, err := s.exec(ctx, sq.Insert("post_tags").
		Columns("post_id", "tag_id").
		Values(postID, tagID).
		Suffix("ON CONFLICT (post_id, tag_id) DO NOTHING").
		PlaceholderFormat(s.ph))
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// --- Count Methods ---

// RecountCategoryPosts recomputes categories.post_count from posts.
func (s *sqlStore) RecountCategoryPosts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET post_count = (
			SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id
		)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecountTagPosts recomputes tags.post_count from post_tags.
func (s *sqlStore) RecountTagPosts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET post_count = (
			SELECT COUNT(*) FROM post_tags WHERE post_tags.tag_id = tags.id
		)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns row totals and the stored per-category counts.
func (s *sqlStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"posts", &st.Posts},
		{"tags", &st.Tags},
		{"post_tags", &st.Links},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, "SELECT COUNT(*) FROM "+c.table); err != nil {
			return st, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	cats, err := s.GetCategories(ctx)
	if err != nil {
		return st, err
	}
	st.Categories = cats
	return st, nil
}

// --- Seed Methods ---

// UpsertProductCategory inserts a product category or refreshes it by name.
// Returns true when a new row was created.
func (s *sqlStore) UpsertProductCategory(ctx context.Context, c model.ProductCategory) (bool, error) {
	var n int
	err := s.get(ctx, &n, sq.Select("COUNT(*)").
		From("product_categories").
		Where(sq.Eq{"name": c.Name}).
		PlaceholderFormat(s.ph))
	if err != nil {
		return false, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err = s.exec(ctx, sq.Insert("product_categories").
		Columns("id", "name", "description", "sort_order").
		Values(c.ID, c.Name, c.Description, c.SortOrder).
		Suffix("ON CONFLICT (name) DO UPDATE SET description = excluded.description, sort_order = excluded.sort_order").
		PlaceholderFormat(s.ph))
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
