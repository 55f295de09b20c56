package model

import "time"

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the sync pipeline.
type Run struct {
	ID           string      `json:"id"`
	Trigger      string      `json:"trigger"`
	Status       RunStatus   `json:"status"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	ArtifactPath string      `json:"artifact_path,omitempty"`
	Summary      *RunSummary `json:"summary,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// RunSummary records what a run fetched and planned.
type RunSummary struct {
	Records    map[EntityType]int `json:"records"`
	Updates    int                `json:"updates"`
	Inserts    int                `json:"inserts"`
	Links      int                `json:"links"`
	Deletes    int                `json:"deletes"`
	Skipped    int                `json:"skipped"`
	Duplicates int                `json:"duplicates"`
	// Incomplete lists entity types whose fetch stopped early.
	Incomplete   []EntityType `json:"incomplete,omitempty"`
	Applied      bool         `json:"applied"`
	RowsAffected int64        `json:"rows_affected,omitempty"`
}
