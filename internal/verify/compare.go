package verify

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Und, collate.IgnoreCase)
)

// CompareFold orders names the way a user reads them: locale aware and
// ignoring case.
func CompareFold(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CompareTime orders timestamps chronologically.
func CompareTime(a, b time.Time) int {
	return a.Compare(b)
}

// ContainsFold reports whether s contains sub under Unicode case folding.
func ContainsFold(s, sub string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(sub))
}

// Identity is a key function returning its argument.
func Identity[T any](v T) T { return v }
