package history

import (
	"context"
	"log"

	"github.com/gotrs-io/search-e2e/internal/scenario"
)

// MaxErrorLen bounds the error text stored per result.
const MaxErrorLen = 500

// Recorder stores runs and reports scenarios whose status changed since the
// previous run.
type Recorder struct {
	store  *Store
	logger *log.Logger
}

// NewRecorder returns a recorder writing to store. Returns nil if store is
// nil, and a nil recorder ignores every run.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	if store == nil {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record stores run and returns one message per scenario whose status
// differs from the newest run recorded before it.
func (r *Recorder) Record(ctx context.Context, run *scenario.Run) ([]string, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}

	previous, err := r.store.LatestStatuses(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.store.Record(ctx, run); err != nil {
		return nil, err
	}

	var changes []string
	for _, res := range run.Results {
		old, seen := previous[res.ID]
		if !seen || old == res.Status || res.Status == scenario.StatusSkipped {
			continue
		}
		msg := ChangeMessage(res.Name, string(old), string(res.Status))
		r.logger.Printf("[history] %s", msg)
		changes = append(changes, msg)
	}
	return changes, nil
}

// Excerpt returns a truncated version of s, suitable for stored messages.
func Excerpt(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 50
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// ChangeMessage describes a status transition of one scenario.
func ChangeMessage(name, oldStatus, newStatus string) string {
	if oldStatus == "" {
		return name + " is " + newStatus
	}
	return name + " changed from " + oldStatus + " to " + newStatus
}
