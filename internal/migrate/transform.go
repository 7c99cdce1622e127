// Package migrate moves legacy content items into the normalized post store.
package migrate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

const (
	DefaultTrustScore = 50
	DefaultLanguage   = "en"
	// SummaryMaxRunes bounds a summary derived from the description.
	SummaryMaxRunes = 500
)

// dateLayouts are tried in order when parsing legacy dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Record is one transformed legacy item, ready for insertion once its
// category has been resolved.
type Record struct {
	Post          model.Post
	CategoryLabel string
	Tags          []string
	LegacyID      string
}

// Transform maps a legacy item onto the post schema. It never fails:
// a missing title is left empty for the migrator to reject.
func Transform(item model.LegacyItem, now time.Time) Record {
	now = now.UTC()
	collected, hasCollected := parseDate(item.CollectedDate)
	if !hasCollected {
		collected = now
	}
	published, ok := parseDate(item.PublishedDate)
	if !ok {
		published = collected
	}

	p := model.Post{
		ID:            uuid.NewString(),
		Title:         item.Title,
		Summary:       summaryOf(item),
		Content:       firstNonEmpty(item.OriginalContent, item.Description, item.Summary),
		SourceType:    item.SourceType,
		SourceURL:     item.SourceURL,
		SourceName:    firstNonEmpty(item.SourceName, item.ChannelTitle),
		Author:        item.Author,
		PublishedDate: published,
		CollectedDate: collected,
		TrustScore:    intOr(item.TrustScore, DefaultTrustScore),
		ImageURL:      firstNonEmpty(item.ThumbnailURL, item.ImageURL),
		Language:      DefaultLanguage,
		IsActive:      boolOr(item.IsActive, true),
		ViewCount:     intOr(item.ViewCount, 0),
		LikeCount:     intOr(item.LikeCount, 0),
		CreatedAt:     collected,
		UpdatedAt:     collected,
	}
	if item.ID != "" {
		ref := item.ID
		p.ExternalRef = &ref
	}

	tags := item.Tags
	if len(tags) == 0 {
		tags = item.Keywords
	}

	return Record{
		Post:          p,
		CategoryLabel: item.Category,
		Tags:          cleanTags(tags),
		LegacyID:      item.ID,
	}
}

func summaryOf(item model.LegacyItem) string {
	if item.Summary != "" {
		return item.Summary
	}
	return truncateRunes(item.Description, SummaryMaxRunes)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// scalar decodes a legacy number or flag. Numeric strings are unquoted.
// It reports false for absent, null, empty or non-scalar values.
func scalar(raw json.RawMessage) (any, bool) {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil || v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b, true
		}
		return nil, false
	}
	return v, true
}

// intOr coerces a legacy counter, rounding fractions. Unusable values give def.
func intOr(raw json.RawMessage, def int) int {
	v, ok := scalar(raw)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return def
		}
		return int(math.Round(n))
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return def
}

func boolOr(raw json.RawMessage, def bool) bool {
	v, ok := scalar(raw)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	}
	return def
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// cleanTags trims names and drops empties, keeping order.
func cleanTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
