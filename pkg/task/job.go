// Package task tracks publish jobs and is the only surface the calling
// tool layer talks to.
package task

import (
	"time"

	"redpost/pkg/publish"
)

// PublishJob is one tracked attempt to publish one note. Owned exclusively
// by the Registry; the pipeline goroutine executing the job is its sole
// mutator while the job is live.
type PublishJob struct {
	ID        string          `json:"id"`
	Note      publish.Note    `json:"note"`
	Status    publish.Stage   `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Result    *publish.Result `json:"result,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *PublishJob) Terminal() bool {
	return j.Status.Terminal()
}

// StatusView is the polling snapshot handed to callers.
type StatusView struct {
	Status     publish.Stage `json:"status"`
	Progress   int           `json:"progress"`
	Message    string        `json:"message"`
	IsTerminal bool          `json:"is_terminal"`
}
