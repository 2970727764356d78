package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/search-e2e/internal/version"
)

// errFailures makes the process exit non-zero when scenarios did not pass.
var errFailures = errors.New("some scenarios did not pass")

var rootCmd = &cobra.Command{
	Use:   "search-e2e",
	Short: "End-to-end checks for the search page",
	Long: `search-e2e drives a real browser against the search page and verifies
keyword search, tag and type filters, pagination and sorting.

Results can be written as JSON, YAML, Markdown, HTML or XLSX reports, kept in a
SQLite history and repeated on a cron schedule.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configFlag   string
	envFileFlag  string
	driverFlag   string
	baseURLFlag  string
	headlessFlag bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "YAML file overriding the built-in defaults")
	pf.StringVar(&envFileFlag, "env-file", ".env", "KEY=VALUE file loaded before the config")
	pf.StringVar(&driverFlag, "driver", "", "Browser backend: playwright, chromedp, rod or selenium")
	pf.StringVar(&baseURLFlag, "base-url", "", "Address of the application under test")
	pf.BoolVar(&headlessFlag, "headless", true, "Run the browser without a window")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "search-e2e %s\n", rootCmd.Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
