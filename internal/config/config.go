package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

//go:embed default.yaml
var defaultYAML []byte

// Drivers lists the browser backends a Config may select.
var Drivers = []string{"playwright", "chromedp", "rod", "selenium"}

// Config is the explicit configuration handed to every scenario run.
type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	Driver          string        `mapstructure:"driver"`
	Browser         string        `mapstructure:"browser"`
	Headless        bool          `mapstructure:"headless"`
	SlowMo          time.Duration `mapstructure:"slow_mo"`
	RemoteURL       string        `mapstructure:"remote_url"`
	ImplicitWait    time.Duration `mapstructure:"implicit_wait"`
	ExplicitWait    time.Duration `mapstructure:"explicit_wait"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	Screenshots     bool          `mapstructure:"screenshots"`
	ScreenshotDir   string        `mapstructure:"screenshot_dir"`
	VideoDir        string        `mapstructure:"video_dir"`
	Viewport        Viewport      `mapstructure:"viewport"`
	Fixtures        Fixtures      `mapstructure:"fixtures"`
}

type Viewport struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Fixtures are the literal inputs the search scenarios type and select.
type Fixtures struct {
	Valid struct {
		App             string `mapstructure:"app"`
		Bot             string `mapstructure:"bot"`
		Bot2            string `mapstructure:"bot2"`
		CaseSensitivity string `mapstructure:"case_sensitivity"`
		Headline        string `mapstructure:"headline"`
		LeadingSpace    string `mapstructure:"leading_space"`
		TrailingSpace   string `mapstructure:"trailing_space"`
		LongHeadline    string `mapstructure:"long_headline"`
		Tag1            string `mapstructure:"tag1"`
		Tag2            string `mapstructure:"tag2"`
		Tag3            string `mapstructure:"tag3"`
	} `mapstructure:"valid"`
	Invalid struct {
		Bot    string `mapstructure:"bot"`
		App    string `mapstructure:"app"`
		SQL    string `mapstructure:"sql"`
		Script string `mapstructure:"script"`
	} `mapstructure:"invalid"`
	Partial string `mapstructure:"partial"`
	Empty   string `mapstructure:"empty"`
	Types   struct {
		Bot string `mapstructure:"bot"`
		App string `mapstructure:"app"`
	} `mapstructure:"types"`
	Pagination struct {
		Five    string `mapstructure:"five"`
		Ten     string `mapstructure:"ten"`
		Fifteen string `mapstructure:"fifteen"`
	} `mapstructure:"pagination"`
	Sort struct {
		DateNewest string `mapstructure:"date_newest"`
		DateOldest string `mapstructure:"date_oldest"`
		NameAZ     string `mapstructure:"name_az"`
		NameZA     string `mapstructure:"name_za"`
	} `mapstructure:"sort"`
}

// Load reads the embedded defaults, merges the optional file at path and
// applies SEARCH_E2E_* environment overrides.
func Load(path string) (*Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Config(), nil
}

// Default returns the embedded defaults without file or environment overrides.
func Default() *Config {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// Loader owns a viper instance and the last successfully decoded Config.
type Loader struct {
	v      *viper.Viper
	path   string
	mu     sync.RWMutex
	cfg    *Config
	Logger *log.Logger
}

// NewLoader builds and validates the configuration.
func NewLoader(path string) (*Loader, error) {
	v, cfg, err := build(path)
	if err != nil {
		return nil, err
	}
	return &Loader{v: v, path: path, cfg: cfg, Logger: log.Default()}, nil
}

// build layers the embedded defaults, the override file at path and the
// environment into a fresh viper instance.
func build(path string) (*viper.Viper, *Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, nil, fmt.Errorf("failed to read default config: %w", err)
	}

	if path != "" {
		if err := ValidateFile(path); err != nil {
			return nil, nil, err
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to merge config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SEARCH_E2E")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The older e2e variables keep working.
	_ = v.BindEnv("base_url", "SEARCH_E2E_BASE_URL", "BASE_URL")
	_ = v.BindEnv("headless", "SEARCH_E2E_HEADLESS", "HEADLESS")

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return v, cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns the current configuration (thread-safe).
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Watch reloads the override file on change and calls onChange with the new
// Config. Invalid edits are logged and the previous Config is kept.
func (l *Loader) Watch(onChange func(*Config)) error {
	if l.path == "" {
		return errors.New("config: nothing to watch without a config file")
	}
	// viper re-reads only the file on change, so every reload starts again
	// from the embedded defaults.
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.Logger.Printf("[e2e-config] Config file changed: %s", e.Name)
		newCfg, err := l.reload()
		if err != nil {
			l.Logger.Printf("[e2e-config] Failed to reload config: %v", err)
			return
		}
		if onChange != nil {
			onChange(newCfg)
		}
	})
	l.v.WatchConfig()
	return nil
}

// reload rebuilds the configuration and keeps it when it is valid.
func (l *Loader) reload() (*Config, error) {
	_, cfg, err := build(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Validate rejects configurations no scenario can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL))
	}
	if !slices.Contains(Drivers, strings.ToLower(c.Driver)) {
		errs = append(errs, fmt.Errorf("driver %q is not one of %s", c.Driver, strings.Join(Drivers, ", ")))
	}
	for name, d := range map[string]time.Duration{
		"implicit_wait":     c.ImplicitWait,
		"explicit_wait":     c.ExplicitWait,
		"page_load_timeout": c.PageLoadTimeout,
		"poll_interval":     c.PollInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// URL joins path onto the base URL.
func (c *Config) URL(path string) string {
	if path == "" {
		return c.BaseURL
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
