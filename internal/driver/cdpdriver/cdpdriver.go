// Package cdpdriver adapts chromedp to session.Session.
package cdpdriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// Options control the Chrome allocator.
type Options struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	RemoteURL       string
	Headless        bool
	PageLoadTimeout time.Duration
	Width, Height   int
}

// Session is one chromedp tab. Actions run in the tab context; the caller's
// context only cancels the action in flight.
type Session struct {
	tab     context.Context
	cancels []context.CancelFunc
	opts    Options
}

// Launch allocates a browser and opens a tab.
func Launch(opts Options) (*Session, error) {
	s := &Session{opts: opts}

	var alloc context.Context
	if opts.RemoteURL != "" {
		var cancel context.CancelFunc
		alloc, cancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
		s.cancels = append(s.cancels, cancel)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)
		if opts.Width > 0 && opts.Height > 0 {
			allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
		}
		var cancel context.CancelFunc
		alloc, cancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
		s.cancels = append(s.cancels, cancel)
	}

	tab, cancel := chromedp.NewContext(alloc)
	s.cancels = append(s.cancels, cancel)
	s.tab = tab

	// An empty Run starts the browser.
	if err := chromedp.Run(tab); err != nil {
		s.Close()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}
	return s, nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.opts.PageLoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.PageLoadTimeout)
		defer cancel()
	}
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chromedp: navigate %s: %w", url, err)
	}
	return nil
}

func (s *Session) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	return s.find(ctx, loc, nil)
}

func (s *Session) find(ctx context.Context, loc session.Locator, parent *cdp.Node) ([]session.Element, error) {
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch {
	case loc.Kind == session.KindXPath && parent != nil:
		// BySearch ignores FromNode, so scoped XPath cannot be honoured.
		return nil, fmt.Errorf("%w: scoped xpath %s", session.ErrUnsupported, loc.Value)
	case loc.Kind == session.KindXPath:
		opts = append(opts, chromedp.BySearch)
	default:
		opts = append(opts, chromedp.ByQueryAll)
	}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(loc.Value, &nodes, opts...)); err != nil {
		return nil, err
	}
	out := make([]session.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{s: s, node: n}
	}
	return out, nil
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return session.SleepContext(ctx, d)
}

func (s *Session) Content(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("chromedp: screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Close cancels the tab and allocator contexts, which shuts Chrome down.
func (s *Session) Close() error {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
	return nil
}

type element struct {
	s    *Session
	node *cdp.Node
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	return e.s.find(ctx, loc, e.node)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var txt string
	err := e.s.run(ctx, chromedp.Text(e.ids(), &txt, chromedp.ByNodeID))
	return txt, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := e.s.run(ctx, chromedp.AttributeValue(e.ids(), name, &val, &ok, chromedp.ByNodeID))
	return val, ok, err
}

// Visible reports whether the node has a layout box.
func (e *element) Visible(ctx context.Context) (bool, error) {
	visible := false
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		model, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			// No box model means the node is not rendered.
			return nil
		}
		visible = model.Width > 0 && model.Height > 0
		return nil
	}))
	return visible, err
}

func (e *element) Click(ctx context.Context) error {
	return e.s.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *element) Fill(ctx context.Context, text string) error {
	return e.s.run(ctx,
		chromedp.SetValue(e.ids(), "", chromedp.ByNodeID),
		chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID),
	)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.s.run(ctx, chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID))
}

var (
	_ session.Session = (*Session)(nil)
	_ session.Element = (*element)(nil)
)
