package migrate

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestTransformDefaults(t *testing.T) {
	rec := Transform(model.LegacyItem{
		ID:            "a",
		Title:         "T1",
		SourceType:    "youtube",
		Category:      "diet",
		Tags:          []string{"x", "y"},
		CollectedDate: "2024-01-01",
	}, testNow)

	p := rec.Post
	assert.NotEmpty(t, p.ID)
	require.NotNil(t, p.ExternalRef)
	assert.Equal(t, "a", *p.ExternalRef)
	assert.Equal(t, "a", rec.LegacyID)
	assert.Equal(t, "T1", p.Title)
	assert.Equal(t, "youtube", p.SourceType)
	assert.Equal(t, DefaultTrustScore, p.TrustScore)
	assert.Equal(t, 0, p.ViewCount)
	assert.Equal(t, 0, p.LikeCount)
	assert.Equal(t, 0, p.BookmarkCount)
	assert.True(t, p.IsActive)
	assert.False(t, p.IsManualPost)
	assert.False(t, p.IsDraft)
	assert.Nil(t, p.AdminID)
	assert.Equal(t, DefaultLanguage, p.Language)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, p.CollectedDate)
	assert.Equal(t, day, p.PublishedDate, "published falls back to collected")
	assert.Equal(t, day, p.CreatedAt)
	assert.Equal(t, day, p.UpdatedAt)

	assert.Equal(t, "diet", rec.CategoryLabel)
	assert.Equal(t, []string{"x", "y"}, rec.Tags)
}

func TestTransformFieldFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		item  model.LegacyItem
		check func(t *testing.T, r Record)
	}{
		{
			name: "summary from description",
			item: model.LegacyItem{Description: "desc"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "desc", r.Post.Summary)
				assert.Equal(t, "desc", r.Post.Content)
			},
		},
		{
			name: "long description truncated to runes",
			item: model.LegacyItem{Description: strings.Repeat("영", 600)},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, SummaryMaxRunes, len([]rune(r.Post.Summary)))
				assert.Equal(t, 600, len([]rune(r.Post.Content)))
			},
		},
		{
			name: "content prefers original content",
			item: model.LegacyItem{OriginalContent: "orig", Description: "desc", Summary: "sum"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "orig", r.Post.Content)
				assert.Equal(t, "sum", r.Post.Summary)
			},
		},
		{
			name: "content falls back to summary",
			item: model.LegacyItem{Summary: "sum"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "sum", r.Post.Content)
			},
		},
		{
			name: "source name from channel title",
			item: model.LegacyItem{ChannelTitle: "Channel"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "Channel", r.Post.SourceName)
			},
		},
		{
			name: "image prefers thumbnail",
			item: model.LegacyItem{ThumbnailURL: "thumb.jpg", ImageURL: "img.jpg"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "thumb.jpg", r.Post.ImageURL)
			},
		},
		{
			name: "image from image url",
			item: model.LegacyItem{ImageURL: "img.jpg"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, "img.jpg", r.Post.ImageURL)
			},
		},
		{
			name: "explicit zero values survive",
			item: model.LegacyItem{TrustScore: raw("0"), ViewCount: raw("7"), LikeCount: raw("3"), IsActive: raw("false")},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, 0, r.Post.TrustScore)
				assert.Equal(t, 7, r.Post.ViewCount)
				assert.Equal(t, 3, r.Post.LikeCount)
				assert.False(t, r.Post.IsActive)
			},
		},
		{
			name: "missing dates use now",
			item: model.LegacyItem{CollectedDate: "yesterday"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, testNow, r.Post.CollectedDate)
				assert.Equal(t, testNow, r.Post.PublishedDate)
			},
		},
		{
			name: "published date kept",
			item: model.LegacyItem{PublishedDate: "2023-06-01T08:30:00Z", CollectedDate: "2024-01-01T10:00:00"},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, time.Date(2023, 6, 1, 8, 30, 0, 0, time.UTC), r.Post.PublishedDate)
				assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), r.Post.CollectedDate)
			},
		},
		{
			name: "keywords used when tags absent",
			item: model.LegacyItem{Keywords: []string{" a ", "", "b"}},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, []string{"a", "b"}, r.Tags)
			},
		},
		{
			name: "tags win over keywords",
			item: model.LegacyItem{Tags: []string{"t"}, Keywords: []string{"k"}},
			check: func(t *testing.T, r Record) {
				assert.Equal(t, []string{"t"}, r.Tags)
			},
		},
		{
			name: "no legacy id",
			item: model.LegacyItem{Title: "x"},
			check: func(t *testing.T, r Record) {
				assert.Nil(t, r.Post.ExternalRef)
				assert.Empty(t, r.Tags)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Transform(tt.item, testNow))
		})
	}
}

func TestTransformFreshIDs(t *testing.T) {
	item := model.LegacyItem{ID: "same"}
	assert.NotEqual(t, Transform(item, testNow).Post.ID, Transform(item, testNow).Post.ID)
}

func TestTransformCoercesLegacyScalars(t *testing.T) {
	tests := []struct {
		name   string
		item   model.LegacyItem
		trust  int
		views  int
		active bool
	}{
		{"fraction rounds", model.LegacyItem{TrustScore: raw("85.5"), ViewCount: raw("2.4")}, 86, 2, true},
		{"numeric strings", model.LegacyItem{TrustScore: raw(`" 70 "`), ViewCount: raw(`"12"`)}, 70, 12, true},
		{"null is absent", model.LegacyItem{TrustScore: raw("null"), IsActive: raw("null")}, DefaultTrustScore, 0, true},
		{"empty string is absent", model.LegacyItem{TrustScore: raw(`""`), ViewCount: raw(`""`)}, DefaultTrustScore, 0, true},
		{"garbage uses default", model.LegacyItem{TrustScore: raw(`"high"`), ViewCount: raw(`[1]`)}, DefaultTrustScore, 0, true},
		{"flag as string", model.LegacyItem{IsActive: raw(`"false"`)}, DefaultTrustScore, 0, false},
		{"flag as number", model.LegacyItem{IsActive: raw("0")}, DefaultTrustScore, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Transform(tt.item, testNow).Post
			assert.Equal(t, tt.trust, p.TrustScore)
			assert.Equal(t, tt.views, p.ViewCount)
			assert.Equal(t, tt.active, p.IsActive)
		})
	}
}
