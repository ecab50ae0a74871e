package models

import "time"

// Operation names a repository synchronization operation.
type Operation string

const (
	OpClone  Operation = "clone"
	OpUpdate Operation = "update"
)

// SyncStatus is the outcome of one component's synchronization.
type SyncStatus string

const (
	StatusCloned  SyncStatus = "cloned"
	StatusPresent SyncStatus = "present"
	StatusUpdated SyncStatus = "updated"
	StatusFailed  SyncStatus = "failed"
)

// ComponentError is the serializable form of a per-component failure.
type ComponentError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

// ComponentResult is the outcome of one clone or update.
type ComponentResult struct {
	Component   string          `json:"component"`
	Operation   Operation       `json:"operation"`
	Status      SyncStatus      `json:"status"`
	Path        string          `json:"path"`
	Staged      bool            `json:"staged"`
	DurationSec float64         `json:"duration_sec"`
	Error       *ComponentError `json:"error"`
}

// Failed reports whether the component ended in error.
func (r ComponentResult) Failed() bool {
	return r.Error != nil
}

// SyncReport aggregates the results of a clone or update batch.
type SyncReport struct {
	Operation        Operation         `json:"operation"`
	Cancelled        bool              `json:"cancelled"`
	Total            int               `json:"total"`
	Succeeded        int               `json:"succeeded"`
	Failed           int               `json:"failed"`
	Skipped          int               `json:"skipped"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at"`
	TotalDurationSec float64           `json:"total_duration_sec"`
	Results          []ComponentResult `json:"results"`
}

// Failures returns the failed results in report order.
func (r *SyncReport) Failures() []ComponentResult {
	var out []ComponentResult
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// SkippedDir records a connectors subdirectory that contributed no services.
type SkippedDir struct {
	Dir   string         `json:"dir"`
	Error ComponentError `json:"error"`
}

// Collision records two definitions that mapped to the same merged name.
// The definition from Kept stays in the merged descriptor.
type Collision struct {
	Kind    string `json:"kind"` // service, volume or network
	Name    string `json:"name"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// AggregateReport summarizes one aggregation pass over the connectors directory.
type AggregateReport struct {
	Components []string     `json:"components"`
	Services   int          `json:"services"`
	Skipped    []SkippedDir `json:"skipped"`
	Collisions []Collision  `json:"collisions"`
}
