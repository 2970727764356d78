//go:build e2e

package scenario_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/driver"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

// TestSearchPageLive runs the whole catalog against the configured site:
//
//	go test -tags e2e ./internal/scenario -run Live
func TestSearchPageLive(t *testing.T) {
	if os.Getenv("SKIP_BROWSER") == "true" {
		t.Skip("SKIP_BROWSER is set")
	}
	config.LoadDotEnv()
	cfg, err := config.Load(os.Getenv("SEARCH_E2E_CONFIG"))
	require.NoError(t, err)

	probe, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	reachable := config.Reachable(probe, cfg.BaseURL)
	cancel()
	if !reachable {
		t.Skipf("%s is not reachable", cfg.BaseURL)
	}

	runner := scenario.NewRunner(cfg, driver.OpenerFor(cfg),
		scenario.WithDiagnostics(diag.NewCollector(cfg.ScreenshotDir, cfg.Screenshots)),
	)
	for _, sc := range scenario.Catalog() {
		t.Run(sc.ID(), func(t *testing.T) {
			run := runner.Run(context.Background(), []scenario.Scenario{sc})
			require.Len(t, run.Results, 1)
			res := run.Results[0]
			if res.Diagnostics != nil && res.Diagnostics.Screenshot != "" {
				t.Logf("Screenshot saved to %s", res.Diagnostics.Screenshot)
			}
			assert.Equal(t, scenario.StatusPassed, res.Status, res.Error)
		})
	}
}
