// Package segment splits one telemetry table into trips.
package segment

import (
	"log/slog"
	"time"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

// Segment is an inclusive row range [Start, End] of one table.
type Segment struct {
	Start int
	End   int
}

// Len returns the number of rows covered.
func (s Segment) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// Strategy finds trip boundaries using a single heuristic. Detect reports
// ok=false when the heuristic does not apply to the table or finds no
// boundary, so the next strategy gets a chance.
type Strategy interface {
	Name() string
	Detect(t *telemetry.Table) (segments []Segment, ok bool)
}

// Config tunes the built-in strategies.
type Config struct {
	TimestampGap           time.Duration
	StopSpeedKmph          float64
	StopMinPoints          int
	DistanceResetTolerance float64
}

// DefaultConfig returns the thresholds used when no tuning file overrides them.
func DefaultConfig() Config {
	return Config{
		TimestampGap:           30 * time.Minute,
		StopSpeedKmph:          1,
		StopMinPoints:          50,
		DistanceResetTolerance: 1.0,
	}
}

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies(cfg Config) []Strategy {
	return []Strategy{
		TimestampGap{Gap: cfg.TimestampGap},
		StoppedRun{MaxSpeed: cfg.StopSpeedKmph, MinPoints: cfg.StopMinPoints},
		DistanceReset{Tolerance: cfg.DistanceResetTolerance},
		WholeFile{},
	}
}

// Detector runs an ordered list of strategies; the first one that finds a
// boundary decides the segmentation.
type Detector struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewDetector returns a Detector. With no strategies it uses
// DefaultStrategies(DefaultConfig()).
func NewDetector(log *slog.Logger, strategies ...Strategy) *Detector {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(DefaultConfig())
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Detector{strategies: strategies, log: log}
}

// Detect returns ordered, non-overlapping segments within [0, t.Len()-1]
// and the name of the strategy that produced them. An empty table yields
// no segments.
func (d *Detector) Detect(t *telemetry.Table) ([]Segment, string) {
	if t.Len() == 0 {
		return nil, ""
	}
	for _, s := range d.strategies {
		segs, ok := s.Detect(t)
		if !ok {
			continue
		}
		d.log.Debug("segmentation strategy matched", "strategy", s.Name(), "segments", len(segs))
		return segs, s.Name()
	}
	return []Segment{{Start: 0, End: t.Len() - 1}}, WholeFile{}.Name()
}

// splitAt turns boundary rows (each the first row of a new trip) into
// segments covering [0, n-1].
func splitAt(n int, starts []int) []Segment {
	var segs []Segment
	cur := 0
	for _, s := range starts {
		if s <= cur || s >= n {
			continue
		}
		segs = append(segs, Segment{Start: cur, End: s - 1})
		cur = s
	}
	return append(segs, Segment{Start: cur, End: n - 1})
}
