package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(list []Scenario) []string {
	out := make([]string, len(list))
	for i, sc := range list {
		out[i] = sc.ID()
	}
	return out
}

func TestCatalog(t *testing.T) {
	list := Catalog()
	require.Len(t, list, 27)

	seen := map[string]bool{}
	for _, sc := range list {
		assert.NotEmpty(t, sc.Tags, sc.Name)
		assert.NotNil(t, sc.Run, sc.Name)
		assert.False(t, seen[sc.ID()], "duplicate id %s", sc.ID())
		seen[sc.ID()] = true
	}
	assert.True(t, seen["search-with-valid-keyword"])
	assert.True(t, seen["show-15-results-per-page"])
	assert.True(t, seen["sort-by-name-z-a"])
}

func TestSelect(t *testing.T) {
	list := Catalog()

	all, err := Select(list, "  ")
	require.NoError(t, err)
	assert.Len(t, all, len(list))

	sorts, err := Select(list, "tag:sort")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sort-by-date-newest-first",
		"sort-by-date-oldest-first",
		"sort-by-name-a-z",
		"sort-by-name-z-a",
	}, ids(sorts))

	mixed, err := Select(list, "show-*-results-per-page, no-result-for-sql-injection")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"no-result-for-sql-injection",
		"show-5-results-per-page",
		"show-10-results-per-page",
		"show-15-results-per-page",
	}, ids(mixed), "catalog order is kept")

	none, err := Select(list, "tag:nothing")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = Select(list, "[")
	assert.Error(t, err)
}

func TestAssertionError(t *testing.T) {
	err := failf("expected %d results, but got %d", 5, 3)
	assert.ErrorIs(t, err, ErrAssertion)
	assert.EqualError(t, err, "assertion failed: expected 5 results, but got 3")

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "expected 5 results, but got 3", ae.Message)
}
