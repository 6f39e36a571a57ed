package domain

import "time"

// Job is one analysis request: a log plus optional notes and videos.
type Job struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LogFile     string    `json:"log_file"`
	Markdown    string    `json:"markdown_file,omitempty"`
	Videos      []string  `json:"videos,omitempty"`
	Anonymize   bool      `json:"anonymize"`
	OutputName  string    `json:"output_name,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Session is the persisted record of a processed job.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	LogFile   string    `json:"log_file"`
	Markdown  string    `json:"markdown_file,omitempty"`
	Videos    []string  `json:"videos"`
	CreatedAt time.Time `json:"created_at"`
}

// JobResult is what a processed job hands back to its caller.
type JobResult struct {
	JobID        string
	SessionID    string
	LogFile      string
	PlotFiles    map[string]string
	MarkdownHTML string
	Stats        ExtractStats
	Err          error
}

// ExtractStats counts what happened to each record of one log.
type ExtractStats struct {
	Records   int
	Extracted int
	NoTime    int
	Unknown   int
	Dropped   int
	Malformed int
}
