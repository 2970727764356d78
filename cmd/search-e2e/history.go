package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/search-e2e/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs and flaky scenarios",
	Long: `History lists the newest runs recorded with --history-db. With --flaky N
it instead lists the scenarios that both passed and failed within the newest
N runs.`,
	RunE: runHistory,
}

var (
	historyLimitFlag  int
	historyFlakyFlag  int
	historyOutputFlag string
)

func init() {
	f := historyCmd.Flags()
	addHistoryFlag(historyCmd, "SQLite database the runs were recorded into")
	f.IntVar(&historyLimitFlag, "limit", 20, "Number of runs to list")
	f.IntVar(&historyFlakyFlag, "flaky", 0, "List flaky scenarios within this many runs instead")
	f.StringVarP(&historyOutputFlag, "output", "o", "table", "Output: table, json or yaml")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyDBFlag == "" {
		return errors.New("history: --history-db is required")
	}
	// Opening would create an empty database.
	if _, err := os.Stat(historyDBFlag); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("history database %s does not exist", historyDBFlag)
		}
		return fmt.Errorf("open history: %w", err)
	}
	store, err := history.Open(cmd.Context(), historyDBFlag)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if historyFlakyFlag > 0 {
		flaky, err := store.FlakyScenarios(cmd.Context(), historyFlakyFlag)
		if err != nil {
			return err
		}
		return printHistory(out, flaky, func(w io.Writer) {
			fmt.Fprintln(w, "SCENARIO\tRUNS\tPASSED\tFAILED")
			for _, f := range flaky {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", f.Name, f.Runs, f.Passed, f.Failed)
			}
		})
	}

	runs, err := store.Recent(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}
	return printHistory(out, runs, func(w io.Writer) {
		fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tDRIVER\tPASSED\tFAILED\tERRORS\tSKIPPED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\n",
				r.ID, timeago.English.Format(r.StartedAt), r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				r.Driver, r.Passed, r.Total, r.Failed, r.Errored, r.Skipped)
		}
	})
}

func printHistory(out io.Writer, v any, table func(io.Writer)) error {
	switch historyOutputFlag {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(out).Encode(v)
	case "table", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		table(w)
		return w.Flush()
	}
	return fmt.Errorf("unknown output %q", historyOutputFlag)
}
