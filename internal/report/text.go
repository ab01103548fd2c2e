package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/banshee-data/trips.ingest/internal/ingest"
)

const rule = "============================================================"

// Text writes a human-readable summary block.
type Text struct {
	W io.Writer
}

func (t Text) WriteReport(_ context.Context, r *ingest.Report) error {
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "DATASET PROCESSING SUMMARY")
	fmt.Fprintln(&b, rule)
	if r.DryRun {
		fmt.Fprintln(&b, "Dry run: nothing was persisted")
	}
	fmt.Fprintf(&b, "Total files found: %d\n", r.Summary.TotalFiles)
	fmt.Fprintf(&b, "Files successfully processed: %d\n", r.Summary.ProcessedFiles)
	fmt.Fprintf(&b, "Files skipped: %d\n", r.Summary.SkippedFiles)
	fmt.Fprintf(&b, "Total trips processed: %d\n", r.Summary.TotalTrips)

	if len(r.Processed) > 0 {
		fmt.Fprintln(&b, "\nSuccessfully processed files:")
		for _, o := range r.Processed {
			fmt.Fprintf(&b, "  [OK] %s (%s)\n", o.Name, plural(o.Trips, "trip"))
		}
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintln(&b, "\nSkipped files:")
		for _, o := range r.Skipped {
			fmt.Fprintf(&b, "  [SKIP] %s: %s\n", o.Name, o.Reason)
		}
	}
	if len(r.SegmentErrors) > 0 {
		fmt.Fprintln(&b, "\nSkipped trips:")
		for _, se := range r.SegmentErrors {
			fmt.Fprintf(&b, "  [SKIP] %s: %s\n", se.Name, se.Reason)
		}
	}

	fmt.Fprintf(&b, "\nProcessing success rate: %.1f%%\n", r.Summary.SuccessRate)
	if r.Succeeded() {
		fmt.Fprintf(&b, "Average trips per file: %.1f\n", r.AvgTripsPerFile())
	} else {
		fmt.Fprintln(&b, "No trips were successfully processed. Check the input files.")
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(t.W, b.String())
	return err
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Log emits the summary as one structured record.
type Log struct {
	Log *slog.Logger
}

func (l Log) WriteReport(ctx context.Context, r *ingest.Report) error {
	level := slog.LevelInfo
	if !r.Succeeded() {
		level = slog.LevelWarn
	}
	l.Log.Log(ctx, level, "dataset processing summary",
		"run_id", r.RunID,
		"total_files", r.Summary.TotalFiles,
		"processed_files", r.Summary.ProcessedFiles,
		"skipped_files", r.Summary.SkippedFiles,
		"total_trips", r.Summary.TotalTrips,
		"success_rate", r.Summary.SuccessRate,
		"avg_trips_per_file", r.AvgTripsPerFile(),
		"segment_errors", len(r.SegmentErrors),
		"elapsed", r.FinishedAt.Sub(r.StartedAt))
	return nil
}
