// Package diag captures what the page looked like when a scenario failed.
package diag

import (
	"context"
	"errors"
	"html"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// DefaultSnippetLen bounds the page text kept with a failure.
const DefaultSnippetLen = 500

// Snapshot is the evidence gathered for one failure.
type Snapshot struct {
	Screenshot string `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	PageText   string `json:"page_text,omitempty" yaml:"page_text,omitempty"`
}

// Collector writes screenshots under Dir and extracts visible page text.
type Collector struct {
	Dir         string
	Screenshots bool
	SnippetLen  int

	policy *bluemonday.Policy
}

// NewCollector returns a collector writing screenshots to dir when
// screenshots is set.
func NewCollector(dir string, screenshots bool) *Collector {
	return &Collector{
		Dir:         dir,
		Screenshots: screenshots,
		SnippetLen:  DefaultSnippetLen,
		policy:      bluemonday.StrictPolicy(),
	}
}

// Capture records the current page of s. Partial evidence is returned
// together with the joined errors of the steps that failed.
func (c *Collector) Capture(ctx context.Context, s session.Session, runID, scenario string) (Snapshot, error) {
	var (
		snap Snapshot
		errs []error
	)
	if c.Screenshots && c.Dir != "" {
		path := filepath.Join(c.Dir, runID, Slug(scenario)+".png")
		if err := s.Screenshot(ctx, path); err != nil {
			errs = append(errs, err)
		} else {
			snap.Screenshot = path
		}
	}
	content, err := s.Content(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		snap.PageText = c.PageText(content)
	}
	return snap, errors.Join(errs...)
}

// PageText strips markup, scripts and styles from a page and collapses
// whitespace, keeping at most SnippetLen runes.
func (c *Collector) PageText(page string) string {
	policy := c.policy
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	txt := html.UnescapeString(policy.Sanitize(page))
	txt = strings.Join(strings.Fields(txt), " ")
	limit := c.SnippetLen
	if limit <= 0 {
		limit = DefaultSnippetLen
	}
	if r := []rune(txt); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return txt
}

// Slug turns a scenario name into a file name.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
