package opml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Nutrition sources</title></head>
  <body>
    <outline text="research">
      <outline text="PubMed digest" type="rss" xmlUrl=" https://pubmed.example.com/rss "/>
      <outline text="Journals">
        <outline title="Nutrients" text="n" type="rss" xmlUrl="https://nutrients.example.com/feed"/>
      </outline>
    </outline>
    <outline text="Loose feed" type="rss" xmlUrl="https://loose.example.com/rss"/>
    <outline text="empty folder"/>
  </body>
</opml>`

func TestParse(t *testing.T) {
	sources, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, Source{Category: "research", Title: "PubMed digest", URL: "https://pubmed.example.com/rss"}, sources[0])
	assert.Equal(t, Source{Category: "research", Title: "Nutrients", URL: "https://nutrients.example.com/feed"}, sources[1])
	assert.Equal(t, Source{Category: "", Title: "Loose feed", URL: "https://loose.example.com/rss"}, sources[2])
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not xml"))
	assert.Error(t, err)
}
