package pwdriver

import (
	"errors"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// fakeDriver swaps the playwright entry points for counters.
type fakeDriver struct {
	installs map[string]int
	runs     int
	stops    int
	runErr   error
}

func useFakeDriver(t *testing.T) *fakeDriver {
	t.Helper()
	t.Setenv("PLAYWRIGHT_PREINSTALLED", "")
	f := &fakeDriver{installs: map[string]int{}}

	origInstall, origRun, origStop := installBrowsers, runDriver, stopDriver
	installBrowsers = func(browser string) error {
		f.installs[browser]++
		return nil
	}
	runDriver = func(...*playwright.RunOptions) (*playwright.Playwright, error) {
		f.runs++
		if f.runErr != nil {
			return nil, f.runErr
		}
		return &playwright.Playwright{}, nil
	}
	stopDriver = func(*playwright.Playwright) error {
		f.stops++
		return nil
	}

	driverMu.Lock()
	shared, installed = nil, map[string]bool{}
	driverMu.Unlock()
	t.Cleanup(func() {
		installBrowsers, runDriver, stopDriver = origInstall, origRun, origStop
		driverMu.Lock()
		shared, installed = nil, map[string]bool{}
		driverMu.Unlock()
	})
	return f
}

func TestStartSharesDriverAndInstallsOnce(t *testing.T) {
	f := useFakeDriver(t)

	first, err := start("chromium")
	require.NoError(t, err)
	for range 3 {
		pw, err := start("chromium")
		require.NoError(t, err)
		assert.Same(t, first, pw)
	}
	_, err = start("firefox")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"chromium": 1, "firefox": 1}, f.installs)
	assert.Equal(t, 1, f.runs)

	require.NoError(t, Shutdown())
	require.NoError(t, Shutdown())
	assert.Equal(t, 1, f.stops)

	again, err := start("chromium")
	require.NoError(t, err)
	assert.NotSame(t, first, again)
	assert.Equal(t, 2, f.runs)
	assert.Equal(t, 1, f.installs["chromium"])
}

func TestStartSkipsInstallWhenPreinstalled(t *testing.T) {
	f := useFakeDriver(t)
	t.Setenv("PLAYWRIGHT_PREINSTALLED", "1")

	_, err := start("webkit")
	require.NoError(t, err)
	assert.Empty(t, f.installs)
}

func TestStartRetriesInstallFailure(t *testing.T) {
	f := useFakeDriver(t)
	installBrowsers = func(string) error { return errors.New("offline") }

	_, err := start("chromium")
	assert.ErrorContains(t, err, "could not install playwright browsers: offline")
	assert.Zero(t, f.runs)

	installBrowsers = func(browser string) error {
		f.installs[browser]++
		return nil
	}
	_, err = start("chromium")
	require.NoError(t, err)
	assert.Equal(t, 1, f.installs["chromium"])
}

func TestBrowserNameAndSelector(t *testing.T) {
	assert.Equal(t, "webkit", browserName("Safari"))
	assert.Equal(t, "firefox", browserName("firefox"))
	assert.Equal(t, "chromium", browserName("chrome"))

	assert.Equal(t, "xpath=//h4", selector(session.XPath("//h4")))
	assert.Equal(t, "css=.card", selector(session.CSS(".card")))
}
