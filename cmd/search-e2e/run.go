package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/driver"
	"github.com/gotrs-io/search-e2e/internal/history"
	"github.com/gotrs-io/search-e2e/internal/poll"
	"github.com/gotrs-io/search-e2e/internal/report"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the search scenarios once",
	Long: `Run executes the selected scenarios in order, each in a fresh browser
session, and exits non-zero when any of them fails.

Scenarios are selected with --run, a comma separated list of ID globs or
tag:NAME entries, for example --run 'tag:sort,search-with-*'.`,
	RunE: runRun,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios --run would select",
	RunE:  runList,
}

var (
	runFlag          string
	reportFlag       string
	reportFormatFlag string
	historyDBFlag    string
	metricsFileFlag  string
	timeoutFlag      = scenario.DefaultScenarioTimeout
)

func init() {
	for _, c := range []*cobra.Command{runCmd, listCmd} {
		c.Flags().StringVar(&runFlag, "run", "", "Scenario IDs (globs) or tag:NAME entries, comma separated")
	}
	runCmd.Flags().StringVar(&reportFlag, "report", "", "Write a report to this file, format taken from the extension")
	runCmd.Flags().StringVar(&reportFormatFlag, "report-format", "", "Report format: json, yaml, markdown, html or xlsx")
	addHistoryFlag(runCmd, "SQLite database to record the run into")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	runCmd.Flags().DurationVar(&timeoutFlag, "scenario-timeout", scenario.DefaultScenarioTimeout, "Upper bound for a single scenario")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}

// addHistoryFlag registers --history-db on c. Every command shares the flag
// and its default: recording stays off until a database is named.
func addHistoryFlag(c *cobra.Command, usage string) {
	c.Flags().StringVar(&historyDBFlag, "history-db", "", usage)
}

// suite holds what consecutive runs share: the selection and the metrics.
type suite struct {
	list        []scenario.Scenario
	registry    *prometheus.Registry
	metrics     *scenario.Metrics
	pollMetrics *poll.Metrics
	logger      *log.Logger
}

func newSuite(logger *log.Logger) (*suite, error) {
	list, err := scenario.Select(scenario.Catalog(), runFlag)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no scenario matches %q", runFlag)
	}
	reg := prometheus.NewRegistry()
	return &suite{
		list:        list,
		registry:    reg,
		metrics:     scenario.NewMetrics(reg),
		pollMetrics: poll.NewMetrics(reg),
		logger:      logger,
	}, nil
}

// run executes the selection once against cfg. Sessions of one run share
// the browser driver.
func (s *suite) run(ctx context.Context, cfg *config.Config) *scenario.Run {
	defer func() {
		if err := driver.Shutdown(); err != nil {
			s.logger.Printf("[search-e2e] Failed to stop browser driver: %v", err)
		}
	}()
	runner := scenario.NewRunner(cfg, driver.OpenerFor(cfg),
		scenario.WithLogger(s.logger),
		scenario.WithMetrics(s.metrics),
		scenario.WithPollMetrics(s.pollMetrics),
		scenario.WithDiagnostics(diag.NewCollector(cfg.ScreenshotDir, cfg.Screenshots)),
		scenario.WithScenarioTimeout(timeoutFlag),
	)
	return runner.Run(ctx, s.list)
}

// publish writes the configured report and metrics for run.
func (s *suite) publish(cmd *cobra.Command, run *scenario.Run) error {
	var format report.Format
	if reportFormatFlag != "" {
		f, err := report.ParseFormat(reportFormatFlag)
		if err != nil {
			return err
		}
		format = f
	}
	switch {
	case reportFlag != "":
		if err := report.WriteFile(reportFlag, format, run); err != nil {
			return err
		}
	case format != "":
		if err := report.Write(cmd.OutOrStdout(), format, run); err != nil {
			return err
		}
	}
	if metricsFileFlag != "" {
		if err := prometheus.WriteToTextfile(metricsFileFlag, s.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	s, err := newSuite(logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	run := s.run(ctx, cfg)

	if err := s.publish(cmd, run); err != nil {
		return err
	}
	if historyDBFlag != "" {
		hctx := context.WithoutCancel(ctx)
		store, err := history.Open(hctx, historyDBFlag)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if _, err := history.NewRecorder(store, logger).Record(hctx, run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	if !run.Passed() {
		return errFailures
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	list, err := scenario.Select(scenario.Catalog(), runFlag)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS")
	for _, sc := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sc.ID(), sc.Name, strings.Join(sc.Tags, ","))
	}
	return w.Flush()
}
