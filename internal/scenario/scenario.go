// Package scenario holds the named search scenarios and the runner that
// executes them, each in a browser session of its own.
package scenario

import (
	"context"
	"fmt"
	"log"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/searchpage"
)

// Env is what a scenario may touch while it runs.
type Env struct {
	Page     *searchpage.Page
	Fixtures config.Fixtures
	// Settle is the pause after an interaction that re-renders results.
	Settle time.Duration
	Logger *log.Logger
}

func (e *Env) settle(ctx context.Context) error {
	return e.Page.Session().Sleep(ctx, e.Settle)
}

// Scenario is one named action, wait, extract and verify sequence.
type Scenario struct {
	Name string
	// Tags group scenarios for selection, e.g. "sort" or "security".
	Tags []string
	Run  func(ctx context.Context, env *Env) error
}

// ID is the scenario name as a selector-friendly slug.
func (s Scenario) ID() string {
	return diag.Slug(s.Name)
}

// Select keeps the scenarios matching any comma separated pattern. A
// pattern is a path.Match glob over the scenario ID, or "tag:<name>".
// An empty pattern selects everything.
func Select(list []Scenario, patterns string) ([]Scenario, error) {
	patterns = strings.TrimSpace(patterns)
	if patterns == "" {
		return list, nil
	}
	var globs, tags []string
	for _, p := range strings.Split(patterns, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if tag, ok := strings.CutPrefix(p, "tag:"); ok {
			tags = append(tags, tag)
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("bad scenario pattern %q: %w", p, err)
		}
		globs = append(globs, p)
	}

	var out []Scenario
	for _, sc := range list {
		if matches(sc, globs, tags) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func matches(sc Scenario, globs, tags []string) bool {
	id := sc.ID()
	for _, g := range globs {
		if ok, _ := path.Match(g, id); ok {
			return true
		}
	}
	for _, t := range tags {
		if slices.Contains(sc.Tags, t) {
			return true
		}
	}
	return false
}
