package history

import (
	"bytes"
	"context"
	"database/sql"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// makeRun builds a run started n hours after base with one result per status.
func makeRun(id string, n int, statuses ...scenario.Status) *scenario.Run {
	start := base.Add(time.Duration(n) * time.Hour)
	run := &scenario.Run{ID: id, BaseURL: "https://top.nccsoft.vn/", Driver: "playwright", StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	names := []string{"Search with valid keyword", "Sort by name A-Z", "Show 5 results per page"}
	for i, st := range statuses {
		res := scenario.Result{ID: diag.Slug(names[i]), Name: names[i], Status: st, Duration: 1500 * time.Millisecond}
		if st != scenario.StatusPassed {
			res.Error = "assertion failed: boom"
		}
		run.Results = append(run.Results, res)
	}
	return run
}

func TestRecordAndRead(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run := makeRun("run-1", 0, scenario.StatusPassed, scenario.StatusFailed)
	run.Results[1].Diagnostics = &diag.Snapshot{Screenshot: "shots/run-1/sort-by-name-a-z.png"}
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "playwright", got.Driver)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Passed)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.StartedAt.Equal(base), "started_at %s", got.StartedAt)
	assert.True(t, got.FinishedAt.Equal(base.Add(90*time.Second)))

	results, err := s.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "search-with-valid-keyword", results[0].ScenarioID)
	assert.Equal(t, int64(1500), results[0].DurationMS)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "failed", results[1].Status)
	assert.Equal(t, "shots/run-1/sort-by-name-a-z.png", results[1].Screenshot)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRecordDuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Record(ctx, makeRun("run-1", 0, scenario.StatusPassed)))
	err := s.Record(ctx, makeRun("run-1", 1, scenario.StatusPassed, scenario.StatusPassed))
	assert.Error(t, err)

	results, err := s.Results(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRecentAndPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Record(ctx, makeRun(id, i, scenario.StatusPassed)))
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].ID)
	assert.Equal(t, "c", recent[1].ID)

	removed, err := s.Prune(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	orphans, err := s.Results(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, orphans, "results cascade with their run")
}

func TestFlakyScenarios(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	pass, fail, errd := scenario.StatusPassed, scenario.StatusFailed, scenario.StatusError
	require.NoError(t, s.Record(ctx, makeRun("r1", 0, fail, pass, pass)))
	require.NoError(t, s.Record(ctx, makeRun("r2", 1, pass, fail, pass)))
	require.NoError(t, s.Record(ctx, makeRun("r3", 2, pass, errd, pass)))
	require.NoError(t, s.Record(ctx, makeRun("r4", 3, pass, pass, pass)))

	flaky, err := s.FlakyScenarios(ctx, 10)
	require.NoError(t, err)
	require.Len(t, flaky, 2)
	assert.Equal(t, Flaky{ScenarioID: "sort-by-name-a-z", Name: "Sort by name A-Z", Runs: 4, Passed: 2, Failed: 2}, flaky[0])
	assert.Equal(t, "search-with-valid-keyword", flaky[1].ScenarioID)

	recentOnly, err := s.FlakyScenarios(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recentOnly, 1)
	assert.Equal(t, "sort-by-name-a-z", recentOnly[0].ScenarioID)
}

func TestRecorderReportsStatusChanges(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	rec := NewRecorder(openStore(t), log.New(&logs, "", 0))

	pass, fail, skip := scenario.StatusPassed, scenario.StatusFailed, scenario.StatusSkipped
	changes, err := rec.Record(ctx, makeRun("r1", 0, pass, pass, pass))
	require.NoError(t, err)
	assert.Empty(t, changes, "nothing to compare the first run with")

	changes, err = rec.Record(ctx, makeRun("r2", 1, pass, fail, skip))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sort by name A-Z changed from passed to failed"}, changes)
	assert.Contains(t, logs.String(), "[history] Sort by name A-Z changed from passed to failed")
}

func TestNilRecorder(t *testing.T) {
	assert.Nil(t, NewRecorder(nil, nil))

	var rec *Recorder
	changes, err := rec.Record(context.Background(), makeRun("r1", 0, scenario.StatusPassed))
	assert.NoError(t, err)
	assert.Nil(t, changes)
}

func TestRecordTruncatesErrors(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run := makeRun("r1", 0, scenario.StatusFailed)
	run.Results[0].Error = strings.Repeat("x", MaxErrorLen*2)
	require.NoError(t, s.Record(ctx, run))

	results, err := s.Results(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, results[0].Error, MaxErrorLen)
	assert.True(t, strings.HasSuffix(results[0].Error, "..."))
}

func TestExcerptAndChangeMessage(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.Equal(t, "abcdefg...", Excerpt("abcdefghijklmnop", 10))
	assert.Len(t, Excerpt(strings.Repeat("y", 80), 0), 50)
	assert.Equal(t, "Löw...", Excerpt("Löwenzahn", 6))
	assert.Equal(t, "ab", Excerpt("abcdef", 2))
	assert.Equal(t, "Lö", Excerpt("Löwenzahn", 2))
	assert.Equal(t, "abc", Excerpt("abcdef", 3))
	assert.Equal(t, "a", Excerpt("a", 1))

	assert.Equal(t, "Sort is passed", ChangeMessage("Sort", "", "passed"))
	assert.Equal(t, "Sort changed from error to passed", ChangeMessage("Sort", "error", "passed"))
}
