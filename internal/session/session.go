// Package session defines the browser capabilities the search suite needs.
// Driver packages adapt concrete automation libraries to these interfaces
// and page objects receive them by injection.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoElement is returned when a single element was required but none matched.
	ErrNoElement = errors.New("session: no element matches locator")
	// ErrUnsupported is returned by drivers that cannot perform an operation.
	ErrUnsupported = errors.New("session: operation not supported by driver")
)

// Kind selects the locator syntax.
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
)

// Locator is a declarative element query.
type Locator struct {
	Kind  Kind
	Value string
}

// CSS builds a CSS selector locator.
func CSS(sel string) Locator { return Locator{Kind: KindCSS, Value: sel} }

// XPath builds an XPath locator.
func XPath(expr string) Locator { return Locator{Kind: KindXPath, Value: expr} }

func (l Locator) String() string {
	if l.Kind == KindXPath {
		return "xpath=" + l.Value
	}
	return "css=" + l.Value
}

// Finder locates zero or more elements. Zero matches is not an error.
type Finder interface {
	Find(ctx context.Context, loc Locator) ([]Element, error)
}

// Session is one browser page exclusively owned by a running scenario.
type Session interface {
	Finder
	Navigate(ctx context.Context, url string) error
	Sleep(ctx context.Context, d time.Duration) error
	Content(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Element is a located DOM node. References may go stale when the page
// re-renders; callers re-find instead of caching them.
type Element interface {
	Finder
	Text(ctx context.Context) (string, error)
	// Attribute returns the value and whether the attribute exists.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// Fill replaces the current value of an input with text.
	Fill(ctx context.Context, text string) error
	ScrollIntoView(ctx context.Context) error
}

// First returns the first element matching loc or ErrNoElement.
func First(ctx context.Context, f Finder, loc Locator) (Element, error) {
	els, err := f.Find(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElement, loc)
	}
	return els[0], nil
}

// Texts reads the text of every element matching loc.
func Texts(ctx context.Context, f Finder, loc Locator) ([]string, error) {
	els, err := f.Find(ctx, loc)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		txt, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, txt)
	}
	return out, nil
}

// SleepContext pauses for d unless ctx ends first. Drivers without a native
// wait use it to implement Session.Sleep.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
