package model

import "sort"

// Stage is the canonical pipeline stage of a person or job.
type Stage string

const (
	StageNew                 Stage = "new"
	StageConnectionRequested Stage = "connection_requested"
	StageConnected           Stage = "connected"
	StageMessaged            Stage = "messaged"
	StageReplied             Stage = "replied"
	StageMeetingBooked       Stage = "meeting_booked"
	StageMeetingHeld         Stage = "meeting_held"
	StageDisqualified        Stage = "disqualified"
	StageInQueue             Stage = "in_queue"
	StageLeadLost            Stage = "lead_lost"
)

// AllStages returns every canonical stage in pipeline order.
func AllStages() []Stage {
	return []Stage{
		StageNew,
		StageConnectionRequested,
		StageConnected,
		StageMessaged,
		StageReplied,
		StageMeetingBooked,
		StageMeetingHeld,
		StageDisqualified,
		StageInQueue,
		StageLeadLost,
	}
}

// Valid reports whether s is a canonical stage.
func (s Stage) Valid() bool {
	for _, v := range AllStages() {
		if s == v {
			return true
		}
	}
	return false
}

// stageLabels maps Airtable status labels to canonical stages. Lookup is
// exact and case-sensitive.
var stageLabels = map[string]Stage{
	"NEW":                  StageNew,
	"NEW LEAD":             StageNew,
	"CONNECTION REQUESTED": StageConnectionRequested,
	"CR SENT":              StageConnectionRequested,
	"CONNECTED":            StageConnected,
	"MSG SENT":             StageMessaged,
	"MESSAGED":             StageMessaged,
	"FOLLOW UP SENT":       StageMessaged,
	"REPLIED":              StageReplied,
	"MEETING BOOKED":       StageMeetingBooked,
	"MEETING HELD":         StageMeetingHeld,
	"DISQUALIFIED":         StageDisqualified,
	"NOT A FIT":            StageDisqualified,
	"IN QUEUE":             StageInQueue,
	"LEAD LOST":            StageLeadLost,
}

// MapStage translates an Airtable status label into a canonical stage.
// Labels missing from the table map to StageNew.
func MapStage(label string) Stage {
	if s, ok := stageLabels[label]; ok {
		return s
	}
	return StageNew
}

// StageLabels returns the label table sorted by label.
func StageLabels() []StageLabel {
	out := make([]StageLabel, 0, len(stageLabels))
	for label, s := range stageLabels {
		out = append(out, StageLabel{Label: label, Stage: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// StageLabel is one row of the label table.
type StageLabel struct {
	Label string `json:"label"`
	Stage Stage  `json:"stage"`
}
