package main

import (
	"github.com/spf13/cobra"

	"github.com/gotrs-io/search-e2e/internal/config"
)

// newLoader reads the env file and the config, ready for flag overrides.
func newLoader() (*config.Loader, error) {
	config.LoadDotEnv(envFileFlag)
	return config.NewLoader(configFlag)
}

// applyFlags returns a copy of base with the explicitly set flags applied.
func applyFlags(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg := *base
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = driverFlag
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURLFlag
	}
	if flags.Changed("headless") {
		cfg.Headless = headlessFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	l, err := newLoader()
	if err != nil {
		return nil, err
	}
	return applyFlags(cmd, l.Config())
}
