// Package roddriver adapts go-rod to session.Session.
package roddriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// Options control how Chrome is reached.
type Options struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome via launcher.
	RemoteURL       string
	Headless        bool
	Stealth         bool
	SlowMo          time.Duration
	PageLoadTimeout time.Duration
	Width, Height   int
}

// Session is one rod page.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	opts    Options
}

// Launch connects to (or starts) Chrome and opens a blank page.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{opts: opts}

	wsURL := opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("rod: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if opts.SlowMo > 0 {
		b = b.SlowMotion(opts.SlowMo)
	}
	if err := b.Connect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("rod: connect: %w", err)
	}
	s.browser = b

	var (
		page *rod.Page
		err  error
	)
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("rod: create page: %w", err)
	}
	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  opts.Width,
			Height: opts.Height,
		}); err != nil {
			s.Close()
			return nil, fmt.Errorf("rod: set viewport: %w", err)
		}
	}
	s.page = page
	return s, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.opts.PageLoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.PageLoadTimeout)
		defer cancel()
	}
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("rod: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("rod: wait load %s: %w", url, err)
	}
	return nil
}

func (s *Session) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	p := s.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if loc.Kind == session.KindXPath {
		els, err = p.ElementsX(loc.Value)
	} else {
		els, err = p.Elements(loc.Value)
	}
	return wrap(els, err)
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return session.SleepContext(ctx, d)
}

func (s *Session) Content(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	img, err := s.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("rod: screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, img, 0o644)
}

// Close closes the page and browser and cleans up a locally launched Chrome.
func (s *Session) Close() error {
	var err error
	if s.page != nil {
		err = s.page.Close()
	}
	if s.browser != nil {
		if cerr := s.browser.Close(); err == nil {
			err = cerr
		}
	}
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch.Cleanup()
	}
	return err
}

func wrap(els rod.Elements, err error) ([]session.Element, error) {
	if err != nil {
		return nil, err
	}
	out := make([]session.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

type element struct {
	el *rod.Element
}

func (e *element) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	el := e.el.Context(ctx)
	if loc.Kind == session.KindXPath {
		return wrap(el.ElementsX(loc.Value))
	}
	return wrap(el.Elements(loc.Value))
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

var (
	_ session.Session = (*Session)(nil)
	_ session.Element = (*element)(nil)
)
