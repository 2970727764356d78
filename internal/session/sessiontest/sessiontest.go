// Package sessiontest provides a scripted in-memory session.Session for
// exercising page objects and scenarios without a browser.
package sessiontest

import (
	"context"
	"sync"
	"time"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// Provider returns the elements currently matching a locator. It is invoked
// on every Find so scripts can model re-rendering pages.
type Provider func() []*Element

// Session is a fake browser page. Locators without a provider match nothing.
type Session struct {
	mu          sync.Mutex
	providers   map[string]Provider
	visited     []string
	slept       time.Duration
	screenshots []string
	closed      bool

	HTML        string
	NavigateErr error
	OnNavigate  func(url string)
}

// New returns an empty fake session.
func New() *Session {
	return &Session{providers: make(map[string]Provider)}
}

// On registers a dynamic provider for loc.
func (s *Session) On(loc session.Locator, p Provider) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[loc.String()] = p
	return s
}

// Set makes loc always match els.
func (s *Session) Set(loc session.Locator, els ...*Element) *Session {
	return s.On(loc, func() []*Element { return els })
}

func (s *Session) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	p := s.providers[loc.String()]
	s.mu.Unlock()
	return wrap(p), nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.mu.Lock()
	s.visited = append(s.visited, url)
	s.mu.Unlock()
	if s.OnNavigate != nil {
		s.OnNavigate(url)
	}
	return ctx.Err()
}

// Sleep records the requested pause without blocking.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept += d
	s.mu.Unlock()
	return ctx.Err()
}

func (s *Session) Content(context.Context) (string, error) {
	return s.HTML, nil
}

func (s *Session) Screenshot(_ context.Context, path string) error {
	s.mu.Lock()
	s.screenshots = append(s.screenshots, path)
	s.mu.Unlock()
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Visited lists navigated URLs in order.
func (s *Session) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// Slept is the total pause requested through Sleep.
func (s *Session) Slept() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slept
}

// Screenshots lists requested screenshot paths.
func (s *Session) Screenshots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.screenshots...)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Element is a fake DOM node.
type Element struct {
	mu       sync.Mutex
	text     string
	attrs    map[string]string
	hidden   bool
	children map[string]Provider
	value    string
	clicks   int

	TextErr  error
	ClickErr error
	OnClick  func()
	OnFill   func(text string)
}

// NewElement returns a visible element with the given text.
func NewElement(text string) *Element {
	return &Element{text: text, attrs: map[string]string{}, children: map[string]Provider{}}
}

// Hidden marks the element invisible.
func (e *Element) Hidden() *Element {
	e.hidden = true
	return e
}

// Attr sets an attribute.
func (e *Element) Attr(name, value string) *Element {
	e.attrs[name] = value
	return e
}

// Child makes loc, scoped to e, match els.
func (e *Element) Child(loc session.Locator, els ...*Element) *Element {
	return e.ChildFunc(loc, func() []*Element { return els })
}

// ChildFunc registers a dynamic provider scoped to e.
func (e *Element) ChildFunc(loc session.Locator, p Provider) *Element {
	e.mu.Lock()
	e.children[loc.String()] = p
	e.mu.Unlock()
	return e
}

// SetText changes the rendered text.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

// Value is the last text filled into the element.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Clicks counts Click calls.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *Element) Find(ctx context.Context, loc session.Locator) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	p := e.children[loc.String()]
	e.mu.Unlock()
	return wrap(p), nil
}

func (e *Element) Text(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.text, nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *Element) Visible(context.Context) (bool, error) {
	return !e.hidden, nil
}

func (e *Element) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Fill(_ context.Context, text string) error {
	e.mu.Lock()
	e.value = text
	e.mu.Unlock()
	if e.OnFill != nil {
		e.OnFill(text)
	}
	return nil
}

func (e *Element) ScrollIntoView(context.Context) error { return nil }

func wrap(p Provider) []session.Element {
	if p == nil {
		return nil
	}
	els := p()
	out := make([]session.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}

var (
	_ session.Session = (*Session)(nil)
	_ session.Element = (*Element)(nil)
)
