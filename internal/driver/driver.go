// Package driver opens a browser session for the backend named in the config.
package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/driver/cdpdriver"
	"github.com/gotrs-io/search-e2e/internal/driver/pwdriver"
	"github.com/gotrs-io/search-e2e/internal/driver/roddriver"
	"github.com/gotrs-io/search-e2e/internal/driver/wddriver"
	"github.com/gotrs-io/search-e2e/internal/session"
)

// Open starts a session on the backend cfg.Driver names.
func Open(ctx context.Context, cfg *config.Config) (session.Session, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "playwright":
		s, err := pwdriver.Launch(playwrightOptions(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "chromedp":
		s, err := cdpdriver.Launch(chromedpOptions(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "rod":
		s, err := roddriver.Launch(ctx, rodOptions(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "selenium", "webdriver":
		s, err := wddriver.Launch(webdriverOptions(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// Shutdown releases backend resources shared across sessions.
func Shutdown() error {
	return pwdriver.Shutdown()
}

// OpenerFor binds cfg so runners can open one session per scenario.
func OpenerFor(cfg *config.Config) func(context.Context) (session.Session, error) {
	return func(ctx context.Context) (session.Session, error) {
		return Open(ctx, cfg)
	}
}

func playwrightOptions(cfg *config.Config) pwdriver.Options {
	return pwdriver.Options{
		Browser:         cfg.Browser,
		Headless:        cfg.Headless,
		SlowMo:          cfg.SlowMo,
		PageLoadTimeout: cfg.PageLoadTimeout,
		ActionTimeout:   cfg.ImplicitWait,
		Width:           cfg.Viewport.Width,
		Height:          cfg.Viewport.Height,
		RecordVideoDir:  cfg.VideoDir,
	}
}

func chromedpOptions(cfg *config.Config) cdpdriver.Options {
	return cdpdriver.Options{
		RemoteURL:       cfg.RemoteURL,
		Headless:        cfg.Headless,
		PageLoadTimeout: cfg.PageLoadTimeout,
		Width:           cfg.Viewport.Width,
		Height:          cfg.Viewport.Height,
	}
}

func rodOptions(cfg *config.Config) roddriver.Options {
	return roddriver.Options{
		RemoteURL:       cfg.RemoteURL,
		Headless:        cfg.Headless,
		Stealth:         true,
		SlowMo:          cfg.SlowMo,
		PageLoadTimeout: cfg.PageLoadTimeout,
		Width:           cfg.Viewport.Width,
		Height:          cfg.Viewport.Height,
	}
}

func webdriverOptions(cfg *config.Config) wddriver.Options {
	return wddriver.Options{
		RemoteURL:       cfg.RemoteURL,
		Browser:         cfg.Browser,
		Headless:        cfg.Headless,
		PageLoadTimeout: cfg.PageLoadTimeout,
		Width:           cfg.Viewport.Width,
		Height:          cfg.Viewport.Height,
	}
}
