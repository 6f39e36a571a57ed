package ports

// Progress is a snapshot of one job's advancement.
type Progress struct {
	JobID string `json:"job_id"`
	Stage string `json:"stage"`
	Step  int    `json:"step"`
	Total int    `json:"total"`
}

// ProgressFunc receives progress updates for a single invocation.
type ProgressFunc func(Progress)
