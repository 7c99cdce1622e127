// Package model defines shared data structures.
package model

import (
	"encoding/json"
	"time"
)

// LegacyItem is one record of the pre-migration flat-file store.
// Counters and flags are kept as written since older exports stored some of
// them as strings or fractions; they are coerced when the item is transformed.
type LegacyItem struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Summary         string          `json:"summary"`
	Description     string          `json:"description"`
	OriginalContent string          `json:"originalContent"`
	SourceType      string          `json:"sourceType"`
	SourceURL       string          `json:"sourceUrl"`
	SourceName      string          `json:"sourceName"`
	ChannelTitle    string          `json:"channelTitle"`
	Author          string          `json:"author"`
	PublishedDate   string          `json:"publishedDate"`
	CollectedDate   string          `json:"collectedDate"`
	TrustScore      json.RawMessage `json:"trustScore"`
	Category        string          `json:"category"`
	Tags            []string        `json:"tags"`
	Keywords        []string        `json:"keywords"`
	ThumbnailURL    string          `json:"thumbnailUrl"`
	ImageURL        string          `json:"imageUrl"`
	ViewCount       json.RawMessage `json:"viewCount"`
	LikeCount       json.RawMessage `json:"likeCount"`
	IsActive        json.RawMessage `json:"isActive"`

	// DecodeErr is set when the record could not be read cleanly.
	// The remaining fields hold whatever was decoded.
	DecodeErr error `json:"-"`
}

// Post is a normalized content record in the destination store.
type Post struct {
	ID            string    `db:"id"`
	ExternalRef   *string   `db:"external_ref"` // legacy id, nil for native posts
	Title         string    `db:"title"`
	Summary       string    `db:"summary"`
	Content       string    `db:"content"`
	SourceType    string    `db:"source_type"`
	SourceURL     string    `db:"source_url"`
	SourceName    string    `db:"source_name"`
	Author        string    `db:"author"`
	PublishedDate time.Time `db:"published_date"`
	CollectedDate time.Time `db:"collected_date"`
	TrustScore    int       `db:"trust_score"`
	CategoryID    string    `db:"category_id"`
	ImageURL      string    `db:"image_url"`
	Language      string    `db:"language"`
	IsActive      bool      `db:"is_active"`
	ViewCount     int       `db:"view_count"`
	LikeCount     int       `db:"like_count"`
	BookmarkCount int       `db:"bookmark_count"`
	IsManualPost  bool      `db:"is_manual_post"`
	AdminID       *string   `db:"admin_id"`
	AdminNote     string    `db:"admin_note"`
	IsDraft       bool      `db:"is_draft"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Category is one of the canonical post categories.
type Category struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	PostCount   int    `db:"post_count"`
}

// Tag is a free-form post label, unique by trimmed name.
type Tag struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	PostCount int    `db:"post_count"`
}

// ProductCategory groups products in the shop section.
type ProductCategory struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	SortOrder   int    `db:"sort_order"`
}

// Bucket describes a file-storage bucket on the hosted service.
type Bucket struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Public           bool     `json:"public"`
	FileSizeLimit    int64    `json:"file_size_limit,omitempty"`
	AllowedMimeTypes []string `json:"allowed_mime_types,omitempty"`
}

// Stats summarizes the destination store for status reports.
type Stats struct {
	Posts      int
	Categories []Category
	Tags       int
	Links      int
}

// Canonical category names.
const (
	CategoryDiet        = "diet"
	CategorySupplements = "supplements"
	CategoryResearch    = "research"
	CategoryTrends      = "trends"
)

// DefaultCategories is the pre-seeded canonical category set.
var DefaultCategories = []Category{
	{Name: CategoryDiet, Description: "Diet and eating habits"},
	{Name: CategorySupplements, Description: "Supplements and vitamins"},
	{Name: CategoryResearch, Description: "Nutrition research"},
	{Name: CategoryTrends, Description: "Health and nutrition trends"},
}

// Stock status values maintained by the products trigger.
const (
	StockInStock    = "in_stock"
	StockLow        = "low_stock"
	StockOutOfStock = "out_of_stock"
)
