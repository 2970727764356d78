// Package pwdriver adapts playwright-go to session.Session.
package pwdriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// Options control browser launch.
type Options struct {
	// Browser is chromium, firefox or webkit.
	Browser         string
	Headless        bool
	SlowMo          time.Duration
	PageLoadTimeout time.Duration
	ActionTimeout   time.Duration
	Width, Height   int
	// RecordVideoDir enables video capture when non-empty.
	RecordVideoDir string
}

// Session is a single playwright page with the browser that owns it.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

var (
	installBrowsers = func(browser string) error {
		return playwright.Install(&playwright.RunOptions{Browsers: []string{browser}})
	}
	runDriver  = playwright.Run
	stopDriver = (*playwright.Playwright).Stop
)

// The playwright driver process is shared by every session and browsers are
// installed at most once per process.
var (
	driverMu  sync.Mutex
	shared    *playwright.Playwright
	installed = map[string]bool{}
)

// start returns the shared driver, installing browser and starting the
// driver on first use.
func start(browser string) (*playwright.Playwright, error) {
	driverMu.Lock()
	defer driverMu.Unlock()

	if !installed[browser] && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err := installBrowsers(browser); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
		installed[browser] = true
	}
	if shared != nil {
		return shared, nil
	}
	pw, err := runDriver()
	if err != nil {
		// Fallback: attempt install driver explicitly then retry
		_ = playwright.Install()
		pw, err = runDriver()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}
	shared = pw
	return pw, nil
}

// Shutdown stops the shared playwright driver. Sessions launched afterwards
// start a new one.
func Shutdown() error {
	driverMu.Lock()
	defer driverMu.Unlock()
	if shared == nil {
		return nil
	}
	err := stopDriver(shared)
	shared = nil
	return err
}

// Launch launches the browser on the shared playwright driver and opens a
// page. Browsers are installed on demand unless PLAYWRIGHT_PREINSTALLED=1.
func Launch(opts Options) (*Session, error) {
	pw, err := start(browserName(opts.Browser))
	if err != nil {
		return nil, err
	}
	s := &Session{}

	browserType := pw.Chromium
	switch browserName(opts.Browser) {
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	}
	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	s.browser = browser

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.Width > 0 && opts.Height > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.Width, Height: opts.Height}
	}
	if opts.RecordVideoDir != "" {
		ctxOpts.RecordVideo = &playwright.RecordVideo{Dir: opts.RecordVideoDir}
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	s.context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	s.page = page

	if opts.ActionTimeout > 0 {
		page.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))
	}
	if opts.PageLoadTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(opts.PageLoadTimeout.Milliseconds()))
	}
	return s, nil
}

func browserName(b string) string {
	switch strings.ToLower(b) {
	case "firefox":
		return "firefox"
	case "webkit", "safari":
		return "webkit"
	default:
		return "chromium"
	}
}

// Page exposes the underlying page for callers that need playwright directly.
func (s *Session) Page() playwright.Page { return s.page }

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil && strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
	}
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *Session) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	return findAll(ctx, s.page.Locator(selector(loc)))
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return session.SleepContext(ctx, d)
}

func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

// Close releases the page, context and browser. The driver stays up until
// Shutdown.
func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

func selector(loc session.Locator) string {
	if loc.Kind == session.KindXPath {
		return "xpath=" + loc.Value
	}
	return "css=" + loc.Value
}

func findAll(ctx context.Context, l playwright.Locator) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := l.All()
	if err != nil {
		return nil, err
	}
	out := make([]session.Element, len(items))
	for i, it := range items {
		out[i] = &element{loc: it}
	}
	return out, nil
}

type element struct {
	loc playwright.Locator
}

func (e *element) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	return findAll(ctx, e.loc.Locator(selector(loc)))
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.InnerText()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.loc.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", false, err
	}
	str, ok := v.(string)
	return str, ok, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsVisible()
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click()
}

func (e *element) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(text)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.ScrollIntoViewIfNeeded()
}

var (
	_ session.Session = (*Session)(nil)
	_ session.Element = (*element)(nil)
)
