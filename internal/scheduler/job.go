package scheduler

import (
	"context"
	"time"
)

// Job is a scheduled unit of work
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression (with seconds field)
	Schedule() string
}

// RunResult records one execution of a job
type RunResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// History keeps the most recent run results for a job
type History struct {
	Results []RunResult
}

const historyLimit = 100

// Add appends a result, trimming to the history limit
func (h *History) Add(result RunResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Latest returns the latest n results
func (h *History) Latest(n int) []RunResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n == 0 {
		return []RunResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// SuccessRate returns the fraction of successful runs
func (h *History) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	success := 0
	for _, r := range h.Results {
		if r.Success {
			success++
		}
	}
	return float64(success) / float64(len(h.Results))
}
