package segment

import (
	"math"
	"time"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

// TimestampGap starts a new trip wherever consecutive parseable timestamps
// are more than Gap apart.
type TimestampGap struct {
	Gap time.Duration
}

func (TimestampGap) Name() string { return "timestamp_gap" }

func (s TimestampGap) Detect(t *telemetry.Table) ([]Segment, bool) {
	times := t.Times(telemetry.Timestamp)
	if times == nil {
		return nil, false
	}
	var starts []int
	var prev time.Time
	for i, ts := range times {
		if ts.IsZero() {
			continue
		}
		if !prev.IsZero() && ts.Sub(prev) > s.Gap {
			starts = append(starts, i)
		}
		prev = ts
	}
	if len(starts) == 0 {
		return nil, false
	}
	return splitAt(t.Len(), starts), true
}

// StoppedRun ends a trip when the vehicle stays at or below MaxSpeed for
// more than MinPoints consecutive rows. The next trip opens at the first
// moving row after the stop; the stopped rows belong to no trip. Blank
// speed cells count as stopped.
type StoppedRun struct {
	MaxSpeed  float64
	MinPoints int
}

func (StoppedRun) Name() string { return "stopped_run" }

func (s StoppedRun) Detect(t *telemetry.Table) ([]Segment, bool) {
	speeds := t.Floats(telemetry.Speed)
	if speeds == nil {
		return nil, false
	}
	n := len(speeds)
	stopped := func(i int) bool {
		return math.IsNaN(speeds[i]) || speeds[i] <= s.MaxSpeed
	}

	var segs []Segment
	cur := 0
	for i := 0; i < n; {
		if !stopped(i) {
			i++
			continue
		}
		runStart := i
		for i < n && stopped(i) {
			i++
		}
		// i is now the first moving row after the run, or n
		if i-runStart > s.MinPoints && runStart > cur {
			segs = append(segs, Segment{Start: cur, End: runStart - 1})
			cur = i
		}
	}
	if len(segs) == 0 {
		return nil, false
	}
	if cur < n {
		segs = append(segs, Segment{Start: cur, End: n - 1})
	}
	return segs, true
}

// DistanceReset starts a new trip when the trip distance counter drops by
// more than Tolerance kilometres, as happens when a logger is restarted.
type DistanceReset struct {
	Tolerance float64
}

func (DistanceReset) Name() string { return "distance_reset" }

func (s DistanceReset) Detect(t *telemetry.Table) ([]Segment, bool) {
	dist := t.Floats(telemetry.TripDistance)
	if dist == nil {
		return nil, false
	}
	var starts []int
	prev := math.NaN()
	for i, d := range dist {
		if math.IsNaN(d) {
			continue
		}
		if !math.IsNaN(prev) && d-prev < -s.Tolerance {
			starts = append(starts, i)
		}
		prev = d
	}
	if len(starts) == 0 {
		return nil, false
	}
	return splitAt(t.Len(), starts), true
}

// WholeFile treats the entire table as a single trip. It always applies.
type WholeFile struct{}

func (WholeFile) Name() string { return "whole_file" }

func (WholeFile) Detect(t *telemetry.Table) ([]Segment, bool) {
	if t.Len() == 0 {
		return nil, false
	}
	return []Segment{{Start: 0, End: t.Len() - 1}}, true
}
