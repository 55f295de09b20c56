// Package monitoring summarizes recent sync runs and raises webhook alerts
// when runs fail or fetch incomplete data.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-sync/internal/model"
	"github.com/sells-group/crm-sync/internal/store"
)

// Snapshot is a point-in-time view of recent run health.
type Snapshot struct {
	Total      int     `json:"total"`
	Complete   int     `json:"complete"`
	Failed     int     `json:"failed"`
	Running    int     `json:"running"`
	FailRate   float64 `json:"fail_rate"`
	Incomplete int     `json:"incomplete"`
	Duplicates int     `json:"duplicates"`
	Skipped    int     `json:"skipped"`

	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastFailure *time.Time `json:"last_failure,omitempty"`

	LookbackRuns int       `json:"lookback_runs"`
	CollectedAt  time.Time `json:"collected_at"`
}

// RunLister is the part of the run store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector builds snapshots from the run store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a collector over the run store.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarizes the most recent lookback runs.
func (c *Collector) Collect(ctx context.Context, lookback int) (*Snapshot, error) {
	if lookback <= 0 {
		lookback = 20
	}
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: lookback})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := &Snapshot{
		Total:        len(runs),
		LookbackRuns: lookback,
		CollectedAt:  c.now().UTC(),
	}

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
			snap.LastSuccess = latest(snap.LastSuccess, finishedAt(r))
		case model.RunStatusFailed:
			snap.Failed++
			snap.LastFailure = latest(snap.LastFailure, finishedAt(r))
		case model.RunStatusRunning:
			snap.Running++
		}
		if r.Summary != nil {
			if len(r.Summary.Incomplete) > 0 {
				snap.Incomplete++
			}
			snap.Duplicates += r.Summary.Duplicates
			snap.Skipped += r.Summary.Skipped
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	return snap, nil
}

func finishedAt(r model.Run) time.Time {
	if r.CompletedAt != nil {
		return *r.CompletedAt
	}
	return r.StartedAt
}

func latest(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.After(*cur) {
		return &t
	}
	return cur
}
