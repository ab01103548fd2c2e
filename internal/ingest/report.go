package ingest

import "time"

// FileOutcome is the result of one discovered file: the trips it produced,
// or why it produced none.
type FileOutcome struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Trips  int    `json:"trip_count,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SegmentError records a trip segment that was skipped while its file
// carried on.
type SegmentError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Summary holds the aggregate counts of a run.
type Summary struct {
	TotalFiles     int     `json:"total_files"`
	ProcessedFiles int     `json:"processed_files"`
	SkippedFiles   int     `json:"skipped_files"`
	TotalTrips     int     `json:"total_trips"`
	SuccessRate    float64 `json:"success_rate"`
}

// Report is everything a run produced, in discovery order.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`

	Summary       Summary        `json:"summary"`
	Processed     []FileOutcome  `json:"processed"`
	Skipped       []FileOutcome  `json:"skipped"`
	SegmentErrors []SegmentError `json:"segment_errors"`
}

// AvgTripsPerFile is the mean trip count over processed files.
func (r *Report) AvgTripsPerFile() float64 {
	if r.Summary.ProcessedFiles == 0 {
		return 0
	}
	return float64(r.Summary.TotalTrips) / float64(r.Summary.ProcessedFiles)
}

// Succeeded reports whether the run stored at least one trip.
func (r *Report) Succeeded() bool {
	return r.Summary.TotalTrips > 0
}

func (r *Report) add(o FileOutcome, segErrs []SegmentError) {
	r.Summary.TotalFiles++
	if o.Trips > 0 {
		r.Summary.ProcessedFiles++
		r.Summary.TotalTrips += o.Trips
		r.Processed = append(r.Processed, o)
	} else {
		r.Summary.SkippedFiles++
		r.Skipped = append(r.Skipped, o)
	}
	r.SegmentErrors = append(r.SegmentErrors, segErrs...)
	if r.Summary.TotalFiles > 0 {
		r.Summary.SuccessRate = float64(r.Summary.ProcessedFiles) / float64(r.Summary.TotalFiles) * 100
	}
}
