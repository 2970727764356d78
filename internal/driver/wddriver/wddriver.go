// Package wddriver adapts a W3C WebDriver endpoint (Selenium Grid,
// chromedriver, geckodriver) to session.Session via tebeka/selenium.
package wddriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// DefaultRemoteURL is where a local Selenium server listens.
const DefaultRemoteURL = "http://localhost:4444/wd/hub"

// Options control the remote session.
type Options struct {
	RemoteURL       string
	Browser         string
	Headless        bool
	PageLoadTimeout time.Duration
	Width, Height   int
}

// Session wraps one WebDriver session.
type Session struct {
	wd selenium.WebDriver
}

// Launch opens a WebDriver session on opts.RemoteURL.
func Launch(opts Options) (*Session, error) {
	remote := opts.RemoteURL
	if remote == "" {
		remote = DefaultRemoteURL
	}
	browser := strings.ToLower(opts.Browser)
	if browser == "" || browser == "chromium" {
		browser = "chrome"
	}
	caps := selenium.Capabilities{"browserName": browser}
	if browser == "chrome" {
		args := []string{"--disable-blink-features=AutomationControlled"}
		if opts.Headless {
			args = append(args, "--headless=new")
		}
		if opts.Width > 0 && opts.Height > 0 {
			args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.Width, opts.Height))
		}
		caps.AddChrome(chrome.Capabilities{Args: args})
	}

	wd, err := selenium.NewRemote(caps, remote)
	if err != nil {
		return nil, fmt.Errorf("webdriver: new session at %s: %w", remote, err)
	}
	if opts.PageLoadTimeout > 0 {
		if err := wd.SetPageLoadTimeout(opts.PageLoadTimeout); err != nil {
			_ = wd.Quit()
			return nil, fmt.Errorf("webdriver: page load timeout: %w", err)
		}
	}
	return &Session{wd: wd}, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.wd.Get(url); err != nil {
		return fmt.Errorf("webdriver: navigate %s: %w", url, err)
	}
	return nil
}

func by(loc session.Locator) string {
	if loc.Kind == session.KindXPath {
		return selenium.ByXPATH
	}
	return selenium.ByCSSSelector
}

// noSuchElement reports WebDriver's "no such element" error, which some
// servers return for an empty FindElements.
func noSuchElement(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such element")
}

func wrap(wd selenium.WebDriver, els []selenium.WebElement, err error) ([]session.Element, error) {
	if noSuchElement(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]session.Element, len(els))
	for i, el := range els {
		out[i] = &element{wd: wd, el: el}
	}
	return out, nil
}

func (s *Session) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := s.wd.FindElements(by(loc), loc.Value)
	return wrap(s.wd, els, err)
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return session.SleepContext(ctx, d)
}

func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.wd.PageSource()
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := s.wd.Screenshot()
	if err != nil {
		return fmt.Errorf("webdriver: screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, img, 0o644)
}

func (s *Session) Close() error {
	return s.wd.Quit()
}

type element struct {
	wd selenium.WebDriver
	el selenium.WebElement
}

func (e *element) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := e.el.FindElements(by(loc), loc.Value)
	return wrap(e.wd, els, err)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.el.Text()
}

// Attribute maps the client's "nil return value" error for a missing
// attribute to ok=false.
func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.el.GetAttribute(name)
	if err != nil {
		if strings.Contains(err.Error(), "nil return value") {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.el.IsDisplayed()
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Click()
}

// Fill selects everything, deletes it, then types text. Clear alone does
// not fire the input events controlled inputs listen for.
func (e *element) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.el.SendKeys(selenium.ControlKey + "a"); err != nil {
		return err
	}
	if err := e.el.SendKeys(selenium.BackspaceKey); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return e.el.SendKeys(text)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.wd.ExecuteScript("arguments[0].scrollIntoView({block: 'center'});", []interface{}{e.el})
	return err
}

var (
	_ session.Session = (*Session)(nil)
	_ session.Element = (*element)(nil)
)
