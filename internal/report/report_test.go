package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

var started = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleRun() *scenario.Run {
	return &scenario.Run{
		ID:         "run-1",
		BaseURL:    "https://top.nccsoft.vn/",
		Driver:     "playwright",
		StartedAt:  started,
		FinishedAt: started.Add(12500 * time.Millisecond),
		Results: []scenario.Result{
			{
				ID: "search-with-valid-keyword", Name: "Search with valid keyword", Tags: []string{"keyword"},
				Status: scenario.StatusPassed, Duration: 1200 * time.Millisecond,
			},
			{
				ID: "sort-by-name-a-z", Name: "Sort by name A-Z", Tags: []string{"sort"},
				Status: scenario.StatusFailed, Duration: 3400 * time.Millisecond,
				Error: `assertion failed: "Zeta" before "Alpha"`,
				Diagnostics: &diag.Snapshot{
					Screenshot: "shots/run-1/sort-by-name-a-z.png",
					PageText:   "Zeta Alpha",
				},
			},
			{
				ID: "show-5-results-per-page", Name: "Show 5 results per page", Tags: []string{"pagination"},
				Status: scenario.StatusError, Duration: 500 * time.Millisecond,
				Error: "open session: chrome not found",
			},
			{
				ID: "filter-by-type-bot", Name: "Filter by type Bot", Tags: []string{"type"},
				Status: scenario.StatusSkipped, Error: "context canceled",
			},
		},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func render(t *testing.T, format Format, run *scenario.Run) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, format, run))
	return buf.Bytes()
}

func TestWriteJSON(t *testing.T) {
	newGoldie(t).Assert(t, "run.json", render(t, FormatJSON, sampleRun()))
}

func TestWriteMarkdown(t *testing.T) {
	g := newGoldie(t)
	g.Assert(t, "run.markdown", render(t, FormatMarkdown, sampleRun()))

	passing := &scenario.Run{
		ID:         "run-2",
		BaseURL:    "https://top.nccsoft.vn/",
		Driver:     "rod",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Results: []scenario.Result{{
			ID: "filter-by-tag", Name: "Filter by tag | pipes",
			Status: scenario.StatusPassed, Duration: 1500 * time.Millisecond,
		}},
	}
	g.Assert(t, "passing.markdown", render(t, FormatMarkdown, passing))
}

func TestWriteYAML(t *testing.T) {
	out := render(t, FormatYAML, sampleRun())

	var doc struct {
		ID      string           `yaml:"id"`
		Driver  string           `yaml:"driver"`
		Summary scenario.Summary `yaml:"summary"`
		Results []struct {
			ID          string         `yaml:"id"`
			Status      string         `yaml:"status"`
			Diagnostics *diag.Snapshot `yaml:"diagnostics"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "run-1", doc.ID)
	assert.Equal(t, "playwright", doc.Driver)
	assert.Equal(t, scenario.Summary{Total: 4, Passed: 1, Failed: 1, Errored: 1, Skipped: 1}, doc.Summary)
	require.Len(t, doc.Results, 4)
	assert.Equal(t, "failed", doc.Results[1].Status)
	require.NotNil(t, doc.Results[1].Diagnostics)
	assert.Equal(t, "Zeta Alpha", doc.Results[1].Diagnostics.PageText)
	assert.Nil(t, doc.Results[0].Diagnostics)
}

func TestWriteHTML(t *testing.T) {
	run := sampleRun()
	run.Results[2].Error = "open session: <script>alert(1)</script>"
	out := string(render(t, FormatHTML, run))

	assert.Contains(t, out, "<title>Search e2e run run-1</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>Search with valid keyword</td>")
	assert.Contains(t, out, "<h2>Failures</h2>")
	assert.Contains(t, out, "<h3>Sort by name A-Z</h3>")
	assert.Contains(t, out, "<blockquote>")
	assert.NotContains(t, out, "<script>")
}

func TestWriteXLSX(t *testing.T) {
	out := render(t, FormatXLSX, sampleRun())

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Results"}, f.GetSheetList())

	runID, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, []string{"search-with-valid-keyword", "Search with valid keyword", "keyword", "passed"}, rows[1][:4])
	assert.Equal(t, "shots/run-1/sort-by-name-a-z.png", rows[2][6])
	assert.Equal(t, "open session: chrome not found", rows[3][5])
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("pdf"), sampleRun())
	assert.EqualError(t, err, `unknown report format "pdf"`)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"YML", FormatYAML},
		{" md ", FormatMarkdown},
		{"htm", FormatHTML},
		{"excel", FormatXLSX},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("csv")
	assert.Error(t, err)

	assert.Equal(t, FormatMarkdown, FormatFor("out/report.md"))
	assert.Equal(t, FormatXLSX, FormatFor("report.xlsx"))
	assert.Equal(t, FormatJSON, FormatFor("report"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.md")
	require.NoError(t, WriteFile(path, "", sampleRun()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Search e2e run run-1")
}
