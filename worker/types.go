package worker

import (
	"time"

	"travel-insight/access"
	"travel-insight/report"
)

type JobStatus string

const (
	StatusWaiting    JobStatus = "waiting"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusError      JobStatus = "error"
	StatusExpired    JobStatus = "expired"
)

// Job is a queued report request handed off by the API for async rendering.
type Job struct {
	ID        string
	Config    report.QueryConfig
	Caller    access.Caller
	Formats   []string // "csv", "xlsx", "doc"
	Origin    string
	CreatedAt time.Time
}

// Result is what the status endpoint reads back for a job ID.
type Result struct {
	Status   JobStatus
	Rows     int
	Paths    map[string]string // format => exported file path
	ErrorMsg string
	Owner    string
}
