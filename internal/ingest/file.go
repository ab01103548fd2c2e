package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/trips.ingest/internal/features"
	"github.com/banshee-data/trips.ingest/internal/identity"
	"github.com/banshee-data/trips.ingest/internal/monitoring"
	"github.com/banshee-data/trips.ingest/internal/synth"
	"github.com/banshee-data/trips.ingest/internal/tabular"
	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

var (
	// ErrEmptyFile is returned for files without data rows.
	ErrEmptyFile = errors.New("file is empty")
	// ErrTooFewColumns is returned for files narrower than MinColumns.
	ErrTooFewColumns = errors.New("too few columns")
)

type fileResult struct {
	outcome       FileOutcome
	segmentErrors []SegmentError
}

// processFile runs one file under the per-file timeout. Work that outlives
// the deadline stops at its next segment boundary; trips stored before that
// are kept and the remaining segments are reported as not processed.
func (p *Pipeline) processFile(ctx context.Context, runID string, f inputFile) fileResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()

	r := p.runFile(ctx, runID, f)
	if err := ctx.Err(); err != nil {
		p.log.Warn("file deadline reached", "file", f.name, "trips", r.outcome.Trips, "err", err)
		if r.outcome.Trips == 0 {
			r.outcome.Reason = fmt.Sprintf("processing timed out after %s", p.cfg.FileTimeout)
			if !errors.Is(err, context.DeadlineExceeded) {
				r.outcome.Reason = fmt.Sprintf("processing cancelled: %v", err)
			}
		}
	}
	return r
}

func (p *Pipeline) runFile(ctx context.Context, runID string, f inputFile) fileResult {
	log := p.log.With("file", f.name)
	skip := func(err error) fileResult {
		return fileResult{outcome: FileOutcome{Name: f.name, Path: f.path, Reason: err.Error()}}
	}

	table, err := p.load(f)
	if err != nil {
		return skip(err)
	}
	log.Info("loaded file", "rows", table.Len(), "columns", len(table.Columns))

	table, res := p.resolver.Resolve(table)
	telemetry.Clean(table)
	telemetry.ConvertUnits(table, res)
	log.Debug("resolved columns", "mapped", len(res.Mapped), "dropped", len(res.Dropped))

	id := identity.Resolve(table, f.name)
	identity.Ensure(ctx, p.identities, id, log)

	segments, strategy := p.detector.Detect(table)
	log.Info("detected trips", "count", len(segments), "strategy", strategy)

	result := fileResult{outcome: FileOutcome{Name: f.name, Path: f.path}}
	for i, seg := range segments {
		name := fmt.Sprintf("%s_trip_%d", f.name, i+1)
		if err := ctx.Err(); err != nil {
			result.segmentErrors = append(result.segmentErrors, SegmentError{Name: name, Reason: "not processed: " + err.Error()})
			continue
		}
		if err := p.processSegment(ctx, runID, f, table, id, i, seg.Start, seg.End); err != nil {
			p.metrics.ObserveTrip(tripResult(err))
			log.Warn("trip skipped", "trip", i+1, "rows", seg.Len(), "reason", err)
			result.segmentErrors = append(result.segmentErrors, SegmentError{Name: name, Reason: err.Error()})
			continue
		}
		p.metrics.ObserveTrip(monitoring.TripSaved)
		result.outcome.Trips++
	}

	if result.outcome.Trips == 0 {
		reasons := make([]string, len(result.segmentErrors))
		for i, se := range result.segmentErrors {
			reasons[i] = se.Reason
		}
		result.outcome.Reason = strings.Join(reasons, "; ")
		if result.outcome.Reason == "" {
			result.outcome.Reason = "no valid trips found"
		}
	}
	return result
}

// load reads f and applies the file-level checks.
func (p *Pipeline) load(f inputFile) (*telemetry.Table, error) {
	table, err := p.reader.ReadFile(f.path)
	if errors.Is(err, tabular.ErrNoData) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, ErrEmptyFile
	}
	if n := len(table.Columns); n < p.cfg.MinColumns {
		return nil, fmt.Errorf("%w (%d), expected at least %d", ErrTooFewColumns, n, p.cfg.MinColumns)
	}
	return table, nil
}

// segmentError marks why a segment was dropped, for metrics.
type segmentError struct {
	result string
	err    error
}

func (e *segmentError) Error() string { return e.err.Error() }
func (e *segmentError) Unwrap() error { return e.err }

func rejected(err error) error { return &segmentError{result: monitoring.TripRejected, err: err} }

func tripResult(err error) string {
	var se *segmentError
	if errors.As(err, &se) {
		return se.result
	}
	return monitoring.TripFailed
}

// processSegment turns rows [start, end] of table into a stored trip.
func (p *Pipeline) processSegment(ctx context.Context, runID string, f inputFile, table *telemetry.Table, id identity.Identity, index, start, end int) error {
	log := p.log.With("file", f.name, "trip", index+1)

	if n := end - start + 1; n < p.cfg.MinSegmentRows {
		return rejected(fmt.Errorf("trip too short (%d rows)", n))
	}
	seg := table.Slice(start, end)

	synthetic, err := synth.Fill(seg, start, log)
	if err != nil {
		return err
	}
	if len(synthetic) > 0 {
		names := make([]string, len(synthetic))
		for i, s := range synthetic {
			names[i] = string(s)
		}
		p.metrics.ObserveSynthesized(names...)
		log.Info("generated missing fields", "fields", names)
	}

	rec, err := p.extractor.Extract(features.Segment{
		Table:      seg,
		Identity:   id,
		TripID:     identity.TripID(f.name, index, id.UserID),
		SourceFile: f.name,
		Start:      start,
		End:        end,
		Synthetic:  synthetic,
	})
	if err != nil {
		return fmt.Errorf("failed to extract trip features: %w", err)
	}
	rec.RunID = runID

	if ok, reasons := p.cfg.Policy.Validate(rec, log); !ok {
		return rejected(fmt.Errorf("validation failed: %s", strings.Join(reasons, "; ")))
	}

	if err := p.sink.SaveTrip(ctx, rec); err != nil {
		return fmt.Errorf("database insertion failed: %w", err)
	}
	log.Info("saved trip", "trip_id", rec.TripID, "score", rec.Score,
		"distance_km", rec.DistanceKm, "vehicle_number", rec.VehicleNumber)
	return nil
}
