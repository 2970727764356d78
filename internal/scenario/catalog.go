package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/poll"
	"github.com/gotrs-io/search-e2e/internal/verify"
)

type fixture func(config.Fixtures) string

// keywordCase searches for input and expects the first result (or the
// first headline) to contain expect.
type keywordCase struct {
	name     string
	input    fixture
	expect   fixture
	headline bool
}

var keywordCases = []keywordCase{
	{name: "Search with valid keyword", input: validApp, expect: validApp},
	{name: "Search with valid bot name", input: validBot, expect: validBot},
	{name: "Search with leading whitespace", input: func(f config.Fixtures) string { return f.Valid.LeadingSpace }, expect: validApp},
	{name: "Search with trailing whitespace", input: func(f config.Fixtures) string { return f.Valid.TrailingSpace }, expect: validApp},
	{name: "Search is case insensitive", input: func(f config.Fixtures) string { return f.Valid.CaseSensitivity }, expect: validApp},
	{name: "Search by headline", input: headline, expect: headline, headline: true},
	{name: "Search by longest headline", input: longHeadline, expect: longHeadline, headline: true},
}

func validApp(f config.Fixtures) string     { return f.Valid.App }
func validBot(f config.Fixtures) string     { return f.Valid.Bot }
func headline(f config.Fixtures) string     { return f.Valid.Headline }
func longHeadline(f config.Fixtures) string { return f.Valid.LongHeadline }

func (k keywordCase) run(ctx context.Context, env *Env) error {
	input, want := k.input(env.Fixtures), k.expect(env.Fixtures)
	if err := env.Page.Search(ctx, input); err != nil {
		return err
	}

	var (
		got string
		err error
	)
	if k.headline {
		if _, err = env.Page.WaitHeadlineResult(ctx, want); err != nil {
			return err
		}
		got, err = env.Page.HeadlineText(ctx)
	} else {
		if _, err = env.Page.WaitResult(ctx, want); err != nil {
			return err
		}
		got, err = env.Page.FirstResultText(ctx)
	}
	if err != nil {
		return err
	}
	if got == "" {
		return failf("no search results found")
	}
	if !strings.Contains(got, want) {
		return failf("expected result to include %q, got %q", want, got)
	}
	return nil
}

// noResultCase searches for input and expects the "No result" message.
type noResultCase struct {
	name  string
	tags  []string
	input fixture
}

var noResultCases = []noResultCase{
	{name: "No result for invalid keyword", tags: []string{"keyword"}, input: func(f config.Fixtures) string { return f.Invalid.App }},
	{name: "No result for misspelled bot name", tags: []string{"keyword"}, input: func(f config.Fixtures) string { return f.Invalid.Bot }},
	{name: "No result for script injection", tags: []string{"security"}, input: func(f config.Fixtures) string { return f.Invalid.Script }},
	{name: "No result for SQL injection", tags: []string{"security"}, input: func(f config.Fixtures) string { return f.Invalid.SQL }},
}

func (n noResultCase) run(ctx context.Context, env *Env) error {
	if err := env.Page.Search(ctx, n.input(env.Fixtures)); err != nil {
		return err
	}
	return expectNoResult(ctx, env)
}

func expectNoResult(ctx context.Context, env *Env) error {
	if err := env.Page.WaitNoResult(ctx); err != nil {
		return err
	}
	if !env.Page.HasNoResultMessage(ctx) {
		return failf("expected 'No result' message to appear")
	}
	return nil
}

var pageSizes = []struct {
	size fixture
	want int
}{
	{func(f config.Fixtures) string { return f.Pagination.Five }, 5},
	{func(f config.Fixtures) string { return f.Pagination.Ten }, 10},
	{func(f config.Fixtures) string { return f.Pagination.Fifteen }, 15},
}

var typeFilters = []struct {
	name  string
	label fixture
}{
	{"Filter by Bot type", func(f config.Fixtures) string { return f.Types.Bot }},
	{"Filter by App type", func(f config.Fixtures) string { return f.Types.App }},
}

var dateSorts = []struct {
	name   string
	option fixture
	dir    verify.Direction
}{
	{"Sort by date newest first", func(f config.Fixtures) string { return f.Sort.DateNewest }, verify.Descending},
	{"Sort by date oldest first", func(f config.Fixtures) string { return f.Sort.DateOldest }, verify.Ascending},
}

var nameSorts = []struct {
	name   string
	option fixture
	dir    verify.Direction
}{
	{"Sort by name A-Z", func(f config.Fixtures) string { return f.Sort.NameAZ }, verify.Ascending},
	{"Sort by name Z-A", func(f config.Fixtures) string { return f.Sort.NameZA }, verify.Descending},
}

// Catalog returns every scenario in execution order.
func Catalog() []Scenario {
	var out []Scenario
	for _, k := range keywordCases {
		tags := []string{"keyword"}
		if k.headline {
			tags = []string{"headline"}
		}
		out = append(out, Scenario{Name: k.name, Tags: tags, Run: k.run})
	}
	for _, n := range noResultCases {
		out = append(out, Scenario{Name: n.name, Tags: n.tags, Run: n.run})
	}
	out = append(out,
		Scenario{Name: "Partial keyword matches every result", Tags: []string{"keyword"}, Run: partialKeyword},
		Scenario{Name: "Empty keyword lists everything", Tags: []string{"keyword"}, Run: emptyKeyword},
		Scenario{Name: "Filter by single tag", Tags: []string{"tag"}, Run: singleTag},
		Scenario{Name: "Filter by multiple tags", Tags: []string{"tag"}, Run: multipleTags},
		Scenario{Name: "Clearing a tag widens results", Tags: []string{"tag"}, Run: clearTag},
		Scenario{Name: "Keyword and tag combined", Tags: []string{"tag", "keyword"}, Run: keywordAndTag},
		Scenario{Name: "Keyword with non-matching tag", Tags: []string{"tag", "keyword"}, Run: keywordAndForeignTag},
	)
	for _, tf := range typeFilters {
		out = append(out, Scenario{Name: tf.name, Tags: []string{"type"}, Run: func(ctx context.Context, env *Env) error {
			return typeFilter(ctx, env, tf.label(env.Fixtures))
		}})
	}
	for _, ps := range pageSizes {
		out = append(out, Scenario{Name: fmt.Sprintf("Show %d results per page", ps.want), Tags: []string{"pagination"}, Run: func(ctx context.Context, env *Env) error {
			return pageSize(ctx, env, ps.size(env.Fixtures), ps.want)
		}})
	}
	for _, ds := range dateSorts {
		out = append(out, Scenario{Name: ds.name, Tags: []string{"sort"}, Run: func(ctx context.Context, env *Env) error {
			return sortByDate(ctx, env, ds.option(env.Fixtures), ds.dir)
		}})
	}
	for _, ns := range nameSorts {
		out = append(out, Scenario{Name: ns.name, Tags: []string{"sort"}, Run: func(ctx context.Context, env *Env) error {
			return sortByName(ctx, env, ns.option(env.Fixtures), ns.dir)
		}})
	}
	return out
}

func nonEmpty(texts []string) bool { return len(texts) > 0 }

func partialKeyword(ctx context.Context, env *Env) error {
	partial := env.Fixtures.Partial
	if err := env.Page.Search(ctx, partial); err != nil {
		return err
	}
	texts, err := env.Page.WaitResultTexts(ctx, fmt.Sprintf("at least one result for partial %q", partial), nonEmpty)
	if err != nil {
		return err
	}
	snapshot := verify.Values(texts...)
	contains := func(s string) bool { return verify.ContainsFold(s, partial) }
	if !verify.AllMatch(snapshot, contains, verify.RejectEmpty) {
		i := verify.FirstMismatch(snapshot, contains, nil)
		return failf("result %q does not contain partial keyword %q", texts[i], partial)
	}
	return nil
}

func emptyKeyword(ctx context.Context, env *Env) error {
	if err := env.Page.Search(ctx, env.Fixtures.Empty); err != nil {
		return err
	}
	texts, err := env.Page.WaitResultTexts(ctx, "full result list for an empty search", nonEmpty)
	if err != nil {
		return err
	}
	env.Logger.Printf("[search-e2e] Total results returned: %d", len(texts))
	return nil
}

// expectTagged fails unless every result with tags satisfies pred. Results
// without tags are skipped and logged.
func expectTagged(env *Env, sets []verify.Value[[]string], pred func([]string) bool, what string) error {
	ok, skipped := verify.AllMatchSkipping(sets, pred, verify.SkipEmpty[string], verify.AcceptEmpty)
	for _, i := range skipped {
		env.Logger.Printf("[search-e2e] Skipping result #%d as it has no tags", i+1)
	}
	if ok {
		return nil
	}
	i := verify.FirstMismatch(sets, pred, verify.SkipEmpty[string])
	return failf("result #%d does not include %s, got %v", i+1, what, sets[i])
}

func hasTag(tag string) func([]string) bool {
	return func(tags []string) bool { return verify.Contains(tags, tag) }
}

func clickAndReload(ctx context.Context, env *Env, tags ...string) error {
	for _, tag := range tags {
		if err := env.Page.ClickTag(ctx, tag); err != nil {
			return err
		}
		if err := env.settle(ctx); err != nil {
			return err
		}
	}
	return env.Page.WaitForResultsToLoad(ctx, "")
}

func singleTag(ctx context.Context, env *Env) error {
	tag := env.Fixtures.Valid.Tag2
	if err := env.Page.EnterKeyword(ctx, ""); err != nil {
		return err
	}
	if err := clickAndReload(ctx, env, tag); err != nil {
		return err
	}
	sets, err := env.Page.ResultTags(ctx)
	if err != nil {
		return err
	}
	return expectTagged(env, sets, hasTag(tag), fmt.Sprintf("tag %q", tag))
}

func multipleTags(ctx context.Context, env *Env) error {
	selected := []string{env.Fixtures.Valid.Tag1, env.Fixtures.Valid.Tag2}
	if err := clickAndReload(ctx, env, selected...); err != nil {
		return err
	}
	sets, err := env.Page.ResultTags(ctx)
	if err != nil {
		return err
	}
	anyOf := func(tags []string) bool { return verify.AnyMatch(selected, tags) }
	return expectTagged(env, sets, anyOf, fmt.Sprintf("any of the selected tags %v", selected))
}

func clearTag(ctx context.Context, env *Env) error {
	tag := env.Fixtures.Valid.Tag1
	if err := clickAndReload(ctx, env, tag); err != nil {
		return err
	}
	filtered, err := env.Page.ResultTags(ctx)
	if err != nil {
		return err
	}
	if err := expectTagged(env, filtered, hasTag(tag), fmt.Sprintf("tag %q", tag)); err != nil {
		return err
	}

	// Clicking the selected chip again deselects it.
	if err := clickAndReload(ctx, env, tag); err != nil {
		return err
	}
	widened, err := env.Page.ResultTags(ctx)
	if err != nil {
		return err
	}
	if verify.AllMatch(verify.PresentOnly(widened), hasTag(tag), verify.AcceptEmpty) {
		return failf("expected at least some results without the cleared tag %q", tag)
	}
	return nil
}

func keywordAndTag(ctx context.Context, env *Env) error {
	keyword, tag := env.Fixtures.Valid.Bot2, env.Fixtures.Valid.Tag2
	if err := env.Page.EnterKeyword(ctx, keyword); err != nil {
		return err
	}
	if err := clickAndReload(ctx, env, tag); err != nil {
		return err
	}

	texts, err := env.Page.ResultTexts(ctx)
	if err != nil {
		return err
	}
	snapshot := verify.Values(texts...)
	contains := func(s string) bool { return strings.Contains(s, keyword) }
	if !verify.AllMatch(snapshot, contains, verify.AcceptEmpty) {
		i := verify.FirstMismatch(snapshot, contains, nil)
		return failf("result #%d does not include keyword %q, got %q", i+1, keyword, texts[i])
	}

	sets, err := env.Page.ResultTags(ctx)
	if err != nil {
		return err
	}
	return expectTagged(env, sets, hasTag(tag), fmt.Sprintf("tag %q", tag))
}

func keywordAndForeignTag(ctx context.Context, env *Env) error {
	if err := env.Page.EnterKeyword(ctx, env.Fixtures.Valid.Bot2); err != nil {
		return err
	}
	if err := env.Page.ClickTag(ctx, env.Fixtures.Valid.Tag3); err != nil {
		return err
	}
	if err := env.settle(ctx); err != nil {
		return err
	}
	return expectNoResult(ctx, env)
}

func typeFilter(ctx context.Context, env *Env, label string) error {
	if err := env.Page.SelectType(ctx, label); err != nil {
		return err
	}
	if err := env.Page.WaitForResultsToLoad(ctx, ""); err != nil {
		return err
	}
	types, err := env.Page.ResultTypes(ctx)
	if err != nil {
		return err
	}
	want := strings.ToLower(label)
	is := func(t string) bool { return t == want }
	if !verify.AllMatch(types, is, verify.RejectEmpty) {
		if len(types) == 0 {
			return failf("no results after filtering by type %q", label)
		}
		i := verify.FirstMismatch(types, is, nil)
		return failf("result #%d is not of type %q, got %v", i+1, label, types[i])
	}
	return nil
}

func pageSize(ctx context.Context, env *Env, size string, want int) error {
	if err := env.Page.SelectPaginationSize(ctx, size); err != nil {
		return err
	}
	if _, err := env.Page.WaitResultCount(ctx, want); err != nil {
		if !errors.Is(err, poll.ErrTimeout) {
			return err
		}
		got, cerr := env.Page.ResultCount(ctx)
		if cerr != nil {
			return errors.Join(err, cerr)
		}
		return failf("expected %d results, but got %d", want, got)
	}
	return nil
}

func sortByDate(ctx context.Context, env *Env, option string, dir verify.Direction) error {
	if err := env.Page.SelectSortOption(ctx, option); err != nil {
		return err
	}
	dates, err := env.Page.CreationDates(ctx)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return failf("no results to check the date order of")
	}
	if i := verify.FirstDisorder(dates, verify.Identity[time.Time], verify.CompareTime, dir); i >= 0 {
		return failf("creation dates are not %s at result #%d: %v", dir, i+1, dates)
	}
	return nil
}

func sortByName(ctx context.Context, env *Env, option string, dir verify.Direction) error {
	if err := env.Page.SelectSortOption(ctx, option); err != nil {
		return err
	}
	names, err := env.Page.ResultTexts(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return failf("no results to check the name order of")
	}
	if i := verify.FirstDisorder(verify.Values(names...), verify.Identity[string], verify.CompareFold, dir); i >= 0 {
		return failf("names are not %s at result #%d: %q before %q", dir, i+1, names[i], names[i+1])
	}
	return nil
}
