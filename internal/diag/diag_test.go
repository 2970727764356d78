package diag

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/search-e2e/internal/session/sessiontest"
)

func TestPageText(t *testing.T) {
	c := NewCollector("", false)

	page := `<html><head><style>h4 { color: red }</style><script>alert('XSS')</script></head>
<body><h4 class="ant-typography">Live   Cartoon</h4>
<p>Tom &amp; Jerry</p></body></html>`
	assert.Equal(t, "Live Cartoon Tom & Jerry", c.PageText(page))

	c.SnippetLen = 4
	assert.Equal(t, "Live…", c.PageText(page))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sort-by-name-a-z", Slug("Sort by name (A–Z)"))
	assert.Equal(t, "5-results-per-page", Slug("5 results per page"))
	assert.Equal(t, "phänomene", Slug("  Phänomene!  "))
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	s := sessiontest.New()
	s.HTML = "<body><h4>No result</h4></body>"

	snap, err := NewCollector(dir, true).Capture(context.Background(), s, "run-1", "Invalid keyword")
	require.NoError(t, err)
	want := filepath.Join(dir, "run-1", "invalid-keyword.png")
	assert.Equal(t, want, snap.Screenshot)
	assert.Equal(t, []string{want}, s.Screenshots())
	assert.Equal(t, "No result", snap.PageText)

	s2 := sessiontest.New()
	snap, err = NewCollector(dir, false).Capture(context.Background(), s2, "run-1", "x")
	require.NoError(t, err)
	assert.Empty(t, snap.Screenshot)
	assert.Empty(t, s2.Screenshots())
	assert.True(t, strings.TrimSpace(snap.PageText) == "")
}
