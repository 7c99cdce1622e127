package loader

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

// Source types recorded on items built from feeds.
const (
	SourceRSS     = "rss"
	SourceYouTube = "youtube"
)

// FromFeed converts a parsed feed into legacy items carrying the given
// category label. Items without a GUID or link are dropped.
func FromFeed(feed *gofeed.Feed, category string, collectedAt time.Time) []model.LegacyItem {
	if feed == nil {
		return nil
	}
	sourceType := SourceRSS
	if isYouTube(feed.Link) || isYouTube(feed.FeedLink) {
		sourceType = SourceYouTube
	}
	collected := collectedAt.UTC().Format(time.RFC3339)

	items := make([]model.LegacyItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}
		if guid == "" {
			continue
		}
		li := model.LegacyItem{
			ID:              guid,
			Title:           strings.TrimSpace(it.Title),
			Description:     it.Description,
			OriginalContent: it.Content,
			SourceType:      sourceType,
			SourceURL:       it.Link,
			SourceName:      feed.Title,
			CollectedDate:   collected,
			Category:        category,
			Tags:            it.Categories,
		}
		if it.PublishedParsed != nil {
			li.PublishedDate = it.PublishedParsed.UTC().Format(time.RFC3339)
		}
		if it.Author != nil {
			li.Author = it.Author.Name
		} else if len(it.Authors) > 0 && it.Authors[0] != nil {
			li.Author = it.Authors[0].Name
		}
		if it.Image != nil {
			li.ImageURL = it.Image.URL
		} else {
			li.ThumbnailURL = mediaThumbnail(it)
		}
		items = append(items, li)
	}
	return items
}

func isYouTube(link string) bool {
	return strings.Contains(link, "youtube.com/") || strings.Contains(link, "youtu.be/")
}

// mediaThumbnail reads a Media RSS thumbnail, either top level or nested
// in media:group as YouTube feeds do.
func mediaThumbnail(it *gofeed.Item) string {
	media, ok := it.Extensions["media"]
	if !ok {
		return ""
	}
	if th := media["thumbnail"]; len(th) > 0 {
		return th[0].Attrs["url"]
	}
	for _, g := range media["group"] {
		if th := g.Children["thumbnail"]; len(th) > 0 {
			return th[0].Attrs["url"]
		}
	}
	return ""
}
