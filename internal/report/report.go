// Package report delivers the aggregate result of an ingestion run to its
// consumers: the console, a JSON file and an HTML chart page.
package report

import (
	"context"
	"errors"

	"github.com/banshee-data/trips.ingest/internal/ingest"
)

// Sink receives the report of a finished run.
type Sink interface {
	WriteReport(ctx context.Context, r *ingest.Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *ingest.Report) error

func (f SinkFunc) WriteReport(ctx context.Context, r *ingest.Report) error { return f(ctx, r) }

// Multi delivers the report to every member. A failing member does not
// stop the rest; the errors are joined.
type Multi []Sink

func (m Multi) WriteReport(ctx context.Context, r *ingest.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteReport(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
