package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/history"
	"github.com/gotrs-io/search-e2e/internal/monitor"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeat the scenarios on a cron schedule",
	Long: `Watch runs the selected scenarios whenever the schedule fires, for example
--schedule "@every 15m" or --schedule "0 */2 * * *". A run that is still going
when the next one is due makes the next one skip.

With --history-db every run is recorded and scenarios that changed status
since the previous run are logged. With --watch-config, edits to the --config
file apply from the next run on.`,
	RunE: runWatch,
}

var (
	scheduleFlag    string
	retentionFlag   int
	watchConfigFlag bool
)

func init() {
	f := watchCmd.Flags()
	f.StringVar(&runFlag, "run", "", "Scenario IDs (globs) or tag:NAME entries, comma separated")
	f.StringVar(&scheduleFlag, "schedule", "@every 15m", "Cron expression or descriptor")
	addHistoryFlag(watchCmd, "SQLite database to record runs into")
	f.IntVar(&retentionFlag, "retention", 0, "Keep only this many runs in history, 0 keeps all")
	f.BoolVar(&watchConfigFlag, "watch-config", false, "Reload the --config file when it changes")
	f.StringVar(&reportFlag, "report", "", "Rewrite this report after every run")
	f.StringVar(&reportFormatFlag, "report-format", "", "Report format: json, yaml, markdown, html or xlsx")
	f.StringVar(&metricsFileFlag, "metrics-file", "", "Rewrite Prometheus metrics to this file after every run")
	f.DurationVar(&timeoutFlag, "scenario-timeout", scenario.DefaultScenarioTimeout, "Upper bound for a single scenario")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	loader, err := newLoader()
	if err != nil {
		return err
	}
	loader.Logger = logger
	cfg, err := applyFlags(cmd, loader.Config())
	if err != nil {
		return err
	}
	if watchConfigFlag {
		if err := loader.Watch(nil); err != nil {
			return err
		}
	}

	s, err := newSuite(logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	opts := []monitor.Option{
		monitor.WithLogger(logger),
		monitor.WithRunOnStart(true),
		monitor.WithRetention(retentionFlag),
		monitor.WithOnRun(func(run *scenario.Run, _ []string) {
			if err := s.publish(cmd, run); err != nil {
				logger.Printf("[monitor] Failed to publish run %s: %v", run.ID, err)
			}
		}),
	}
	if historyDBFlag != "" {
		store, err := history.Open(ctx, historyDBFlag)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		opts = append(opts, monitor.WithHistory(store))
	}

	svc := monitor.NewService(scheduleFlag, func(ctx context.Context) *scenario.Run {
		return s.run(ctx, currentConfig(cmd, loader, cfg, logger))
	}, opts...)
	return svc.Run(ctx)
}

// currentConfig returns the reloaded config with flags applied, or fallback
// when the reloaded one is unusable.
func currentConfig(cmd *cobra.Command, loader *config.Loader, fallback *config.Config, logger *log.Logger) *config.Config {
	cfg, err := applyFlags(cmd, loader.Config())
	if err != nil {
		logger.Printf("[monitor] Keeping previous config: %v", err)
		return fallback
	}
	return cfg
}
