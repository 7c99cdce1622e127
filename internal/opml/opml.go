// Package opml reads feed source lists from OPML files.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title string `xml:"title,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (folder or feed).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Source is a feed to collect from. Category is the name of the
// top-level folder the feed was filed under, empty for unfiled feeds.
type Source struct {
	Category string
	Title    string
	URL      string
}

// ParseFile reads the OPML document at path.
func ParseFile(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an OPML document and returns a flat list of sources.
func Parse(r io.Reader) ([]Source, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var sources []Source
	var walk func(outlines []Outline, category string)
	walk = func(outlines []Outline, category string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				sources = append(sources, Source{
					Category: category,
					Title:    title,
					URL:      strings.TrimSpace(o.XMLURL),
				})
			} else if len(o.Outlines) > 0 {
				// Nested folders keep the top-level name.
				name := category
				if name == "" {
					name = o.Text
					if name == "" {
						name = o.Title
					}
				}
				walk(o.Outlines, name)
			}
		}
	}
	walk(doc.Body.Outlines, "")
	return sources, nil
}
