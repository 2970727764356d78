// Package searchpage drives the application's search page through an
// injected session.Session. Every wait goes through poll.WaitUntil and
// every list is re-read on each tick.
package searchpage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/poll"
	"github.com/gotrs-io/search-e2e/internal/session"
	"github.com/gotrs-io/search-e2e/internal/verify"
)

// optionDelay lets a dropdown finish its open/close animation.
const optionDelay = 300 * time.Millisecond

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Page is the search page object. It is bound to one session and not safe
// for concurrent use.
type Page struct {
	s        session.Session
	cfg      *config.Config
	logger   *log.Logger
	metrics  *poll.Metrics
	pollOpts []poll.Option
}

// New binds a page object to s. Timeouts and the base URL come from cfg.
func New(s session.Session, cfg *config.Config, opts ...Option) *Page {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Page{
		s:        s,
		cfg:      cfg,
		logger:   o.Logger,
		metrics:  o.Metrics,
		pollOpts: o.PollOpts,
	}
}

// Session returns the underlying browser session.
func (p *Page) Session() session.Session { return p.s }

func (p *Page) waitOpts(desc string, timeout time.Duration) []poll.Option {
	opts := []poll.Option{
		poll.WithTimeout(timeout),
		poll.WithInterval(p.cfg.PollInterval),
		poll.WithDescription(desc),
		poll.WithLogger(p.logger, false),
		poll.WithMetrics(p.metrics),
	}
	return append(opts, p.pollOpts...)
}

// element waits until loc matches something, and when visible is set,
// until the first match is displayed.
func (p *Page) element(ctx context.Context, loc session.Locator, visible bool, timeout time.Duration) (session.Element, error) {
	desc := "element " + loc.String()
	if visible {
		desc = "visible " + desc
	}
	return poll.WaitUntil(ctx, func(ctx context.Context) (session.Element, error) {
		el, err := session.First(ctx, p.s, loc)
		if err != nil {
			return nil, err
		}
		if !visible {
			return el, nil
		}
		shown, err := el.Visible(ctx)
		if err != nil {
			return nil, err
		}
		if !shown {
			return nil, fmt.Errorf("%s is not visible", loc)
		}
		return el, nil
	}, func(el session.Element) bool { return el != nil }, p.waitOpts(desc, timeout)...)
}

func (p *Page) click(ctx context.Context, loc session.Locator) error {
	el, err := p.element(ctx, loc, true, p.cfg.ImplicitWait)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// Open navigates to the configured base URL.
func (p *Page) Open(ctx context.Context) error {
	return p.s.Navigate(ctx, p.cfg.BaseURL)
}

// EnterKeyword replaces the search box content with keyword.
func (p *Page) EnterKeyword(ctx context.Context, keyword string) error {
	el, err := p.element(ctx, SearchInput, false, p.cfg.ImplicitWait)
	if err != nil {
		return fmt.Errorf("enter keyword: %w", err)
	}
	return el.Fill(ctx, keyword)
}

// ClickSearch submits the search form.
func (p *Page) ClickSearch(ctx context.Context) error {
	el, err := p.element(ctx, SearchButton, false, p.cfg.ImplicitWait)
	if err != nil {
		return fmt.Errorf("click search: %w", err)
	}
	return el.Click(ctx)
}

// Search enters keyword and submits.
func (p *Page) Search(ctx context.Context, keyword string) error {
	if err := p.EnterKeyword(ctx, keyword); err != nil {
		return err
	}
	return p.ClickSearch(ctx)
}

func (p *Page) waitFirstText(ctx context.Context, loc session.Locator, expected string) (string, error) {
	return poll.WaitUntil(ctx, func(ctx context.Context) (string, error) {
		el, err := session.First(ctx, p.s, loc)
		if err != nil {
			return "", err
		}
		txt, err := el.Text(ctx)
		return strings.TrimSpace(txt), err
	}, func(txt string) bool {
		return strings.Contains(txt, expected)
	}, p.waitOpts(fmt.Sprintf("first %s to contain %q", loc, expected), p.cfg.ExplicitWait)...)
}

// WaitResult waits until the first result title contains expected and
// returns that title.
func (p *Page) WaitResult(ctx context.Context, expected string) (string, error) {
	return p.waitFirstText(ctx, ResultTitle, expected)
}

// WaitHeadlineResult waits until the first headline contains expected.
func (p *Page) WaitHeadlineResult(ctx context.Context, expected string) (string, error) {
	return p.waitFirstText(ctx, Headline, expected)
}

// WaitNoResult waits for the "No result" message to be attached.
func (p *Page) WaitNoResult(ctx context.Context) error {
	_, err := p.element(ctx, NoResult, false, p.cfg.ImplicitWait)
	return err
}

// HasNoResultMessage reports whether the "No result" message is displayed
// right now. Lookup failures count as not displayed.
func (p *Page) HasNoResultMessage(ctx context.Context) bool {
	el, err := session.First(ctx, p.s, NoResult)
	if err != nil {
		return false
	}
	shown, err := el.Visible(ctx)
	return err == nil && shown
}

// FirstResultText waits for a result title and returns its text.
func (p *Page) FirstResultText(ctx context.Context) (string, error) {
	el, err := p.element(ctx, ResultTitle, false, p.cfg.ImplicitWait)
	if err != nil {
		return "", err
	}
	txt, err := el.Text(ctx)
	return strings.TrimSpace(txt), err
}

// ResultTexts reads every result title currently rendered.
func (p *Page) ResultTexts(ctx context.Context) ([]string, error) {
	return session.Texts(ctx, p.s, ResultTitle)
}

// WaitResultTexts re-reads the result titles until accept holds.
func (p *Page) WaitResultTexts(ctx context.Context, desc string, accept func([]string) bool) ([]string, error) {
	return poll.WaitUntil(ctx, p.ResultTexts, accept, p.waitOpts(desc, p.cfg.ExplicitWait)...)
}

// HeadlineText waits for a headline and returns its text.
func (p *Page) HeadlineText(ctx context.Context) (string, error) {
	el, err := p.element(ctx, Headline, false, p.cfg.ImplicitWait)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// ClickTag toggles the tag chip labelled name.
func (p *Page) ClickTag(ctx context.Context, name string) error {
	if err := p.click(ctx, TagChipByText(name)); err != nil {
		return fmt.Errorf("click tag %q: %w", name, err)
	}
	return nil
}

// SelectTag is ClickTag on an unselected chip.
func (p *Page) SelectTag(ctx context.Context, name string) error {
	return p.ClickTag(ctx, name)
}

// ClearSelectedTags deselects every named tag. A tag that cannot be cleared
// is logged and skipped; the joined failures are returned.
func (p *Page) ClearSelectedTags(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := p.clearTag(ctx, name); err != nil {
			p.logger.Printf("[search-e2e] Could not clear tag %q: %v", name, err)
			errs = append(errs, fmt.Errorf("clear tag %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Page) clearTag(ctx context.Context, name string) error {
	loc := TagChipByText(name)
	el, err := p.element(ctx, loc, false, p.cfg.ImplicitWait)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(ctx); err != nil {
		return err
	}
	if el, err = p.element(ctx, loc, true, p.cfg.ImplicitWait); err != nil {
		return err
	}
	if err := p.s.Sleep(ctx, optionDelay); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return p.s.Sleep(ctx, optionDelay)
}

func (p *Page) waitContainers(ctx context.Context) ([]session.Element, error) {
	return poll.WaitUntil(ctx, func(ctx context.Context) ([]session.Element, error) {
		return p.s.Find(ctx, ResultContainer)
	}, func(els []session.Element) bool {
		return len(els) > 0
	}, p.waitOpts("result containers", p.cfg.ExplicitWait)...)
}

// WaitForResultsToLoad waits for result containers and, when tag is not
// empty, for a visible chip with that tag.
func (p *Page) WaitForResultsToLoad(ctx context.Context, tag string) error {
	if _, err := p.waitContainers(ctx); err != nil {
		return err
	}
	if tag == "" {
		return nil
	}
	_, err := p.element(ctx, TagChipByText(tag), true, p.cfg.ExplicitWait)
	return err
}

// ResultTags returns the tag set of every result. A result without a tag
// block yields an empty set; a result whose tags cannot be read yields an
// absent marker.
func (p *Page) ResultTags(ctx context.Context) ([]verify.Value[[]string], error) {
	containers, err := p.waitContainers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]verify.Value[[]string], 0, len(containers))
	for i := range containers {
		out = append(out, p.tagsOf(ctx, i))
	}
	return out, nil
}

// tagsOf re-locates container i so a re-render between results does not
// leave a stale reference.
func (p *Page) tagsOf(ctx context.Context, i int) verify.Value[[]string] {
	fresh, err := p.s.Find(ctx, ResultContainer)
	if err == nil && i >= len(fresh) {
		err = session.ErrNoElement
	}
	if err != nil {
		p.logger.Printf("[search-e2e] Skipped result #%d: %v", i+1, err)
		return verify.Absent[[]string]()
	}
	wrappers, err := fresh[i].Find(ctx, TagWrapper)
	if err != nil {
		p.logger.Printf("[search-e2e] Skipped result #%d: %v", i+1, err)
		return verify.Absent[[]string]()
	}
	if len(wrappers) == 0 {
		p.logger.Printf("[search-e2e] No tag block found in result #%d", i+1)
		return verify.Present([]string{})
	}
	tags, err := session.Texts(ctx, wrappers[0], TagChip)
	if err != nil {
		p.logger.Printf("[search-e2e] Skipped result #%d: %v", i+1, err)
		return verify.Absent[[]string]()
	}
	for j := range tags {
		tags[j] = strings.TrimSpace(tags[j])
	}
	return verify.Present(tags)
}

func (p *Page) selectFrom(ctx context.Context, dropdown, option session.Locator, pause time.Duration) error {
	if err := p.click(ctx, dropdown); err != nil {
		return err
	}
	if pause > 0 {
		if err := p.s.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return p.click(ctx, option)
}

// SelectType picks name from the type dropdown.
func (p *Page) SelectType(ctx context.Context, name string) error {
	if err := p.selectFrom(ctx, TypeSelect, TypeOption(name), 0); err != nil {
		return fmt.Errorf("select type %q: %w", name, err)
	}
	return nil
}

// ResultTypes returns the lower-cased type badge of every result card, or
// an absent marker for a card without one.
func (p *Page) ResultTypes(ctx context.Context) ([]verify.Value[string], error) {
	cards, err := p.s.Find(ctx, ResultCard)
	if err != nil {
		return nil, err
	}
	out := make([]verify.Value[string], 0, len(cards))
	for _, card := range cards {
		badge, err := session.First(ctx, card, TypeBadge)
		if err != nil {
			out = append(out, verify.Absent[string]())
			continue
		}
		txt, err := badge.Text(ctx)
		if err != nil {
			out = append(out, verify.Absent[string]())
			continue
		}
		out = append(out, verify.Present(strings.ToLower(strings.TrimSpace(txt))))
	}
	return out, nil
}

// SelectPaginationSize picks a page size such as "10 / page" and waits for
// the results to reload.
func (p *Page) SelectPaginationSize(ctx context.Context, size string) error {
	if err := p.selectFrom(ctx, PageSizeSelect, PageSizeOption(size), optionDelay); err != nil {
		return fmt.Errorf("select page size %q: %w", size, err)
	}
	if err := p.s.Sleep(ctx, p.cfg.SettleDelay); err != nil {
		return err
	}
	return p.WaitForResultsToLoad(ctx, "")
}

// SelectSortOption picks a sort order by its visible label and waits for
// the results to reload.
func (p *Page) SelectSortOption(ctx context.Context, label string) error {
	if err := p.selectFrom(ctx, SortSelect, SortOption(label), 0); err != nil {
		return fmt.Errorf("select sort %q: %w", label, err)
	}
	if err := p.s.Sleep(ctx, p.cfg.SettleDelay); err != nil {
		return err
	}
	return p.WaitForResultsToLoad(ctx, "")
}

// CreationDates returns the YYYY-MM-DD creation date of every result card.
// Cards without a parsable date yield an absent marker in their position.
func (p *Page) CreationDates(ctx context.Context) ([]verify.Value[time.Time], error) {
	cards, err := p.s.Find(ctx, ResultCard)
	if err != nil {
		return nil, err
	}
	out := make([]verify.Value[time.Time], 0, len(cards))
	for _, card := range cards {
		out = append(out, dateOf(ctx, card))
	}
	return out, nil
}

func dateOf(ctx context.Context, card session.Element) verify.Value[time.Time] {
	el, err := session.First(ctx, card, CardDate)
	if err != nil {
		return verify.Absent[time.Time]()
	}
	txt, err := el.Text(ctx)
	if err != nil {
		return verify.Absent[time.Time]()
	}
	m := datePattern.FindString(txt)
	if m == "" {
		return verify.Absent[time.Time]()
	}
	d, err := time.Parse(time.DateOnly, m)
	if err != nil {
		return verify.Absent[time.Time]()
	}
	return verify.Present(d)
}

// ResultCount is the number of result cards currently rendered.
func (p *Page) ResultCount(ctx context.Context) (int, error) {
	cards, err := p.s.Find(ctx, ResultCard)
	return len(cards), err
}

// WaitResultCount waits until exactly want result cards are rendered.
func (p *Page) WaitResultCount(ctx context.Context, want int) (int, error) {
	return poll.WaitUntil(ctx, p.ResultCount, func(n int) bool {
		return n == want
	}, p.waitOpts(fmt.Sprintf("%d result cards", want), p.cfg.ExplicitWait)...)
}
