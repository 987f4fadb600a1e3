package pipeline

import "time"

// PageResult is the outcome of one page
type PageResult struct {
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
	Courses int    `json:"courses"`
	Stored  int    `json:"stored"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`

	// Interrupted is set when cancellation stopped the page before all its courses were synced
	Interrupted bool `json:"interrupted,omitempty"`
}

// Fetched reports whether the page was retrieved and parsed
func (r PageResult) Fetched() bool {
	return r.Error == ""
}

func (r *PageResult) count(o Outcome) {
	switch o {
	case OutcomeStored:
		r.Stored++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// Summary totals a run
type Summary struct {
	RunID        string        `json:"run_id,omitempty"`
	DryRun       bool          `json:"dry_run"`
	Interrupted  bool          `json:"interrupted,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	PagesFetched int           `json:"pages_fetched"`
	PagesFailed  int           `json:"pages_failed"`
	Courses      int           `json:"courses"`
	Stored       int           `json:"stored"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Pages        []PageResult  `json:"pages"`
}

func (s *Summary) add(r PageResult) {
	s.Pages = append(s.Pages, r)
	if r.Interrupted {
		s.Interrupted = true
	}
	if !r.Fetched() {
		s.PagesFailed++
		return
	}
	s.PagesFetched++
	s.Courses += r.Courses
	s.Stored += r.Stored
	s.Skipped += r.Skipped
	s.Failed += r.Failed
}
