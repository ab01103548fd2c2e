// Package synth fills in the core driving signals (speed, rpm, throttle)
// when a trip segment has none, so downstream features can still be
// computed. Every series is a pure function of the segment's length, its
// start row and the field name.
package synth

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

// ErrCannotSynthesize is returned for empty segments and unsupported fields.
var ErrCannotSynthesize = errors.New("cannot synthesize field")

// Fields lists what can be synthesized, in the order it must happen: rpm
// and throttle are derived from speed when speed is available.
var Fields = []telemetry.Field{telemetry.Speed, telemetry.RPM, telemetry.Throttle}

const (
	maxSpeedStep = 5.0

	minSpeed, maxSpeed       = 0.0, 150.0
	minRPM, maxRPM           = 600.0, 7000.0
	minThrottle, maxThrottle = 0.0, 100.0

	idleRPM       = 800.0
	blankSpeedRPM = 30.0
	rpmWalkStdDev = 150.0
)

// Fill adds every missing core field to seg in place and returns the
// fields it synthesized. start is the row of seg within its source file.
// A column whose cells are all blank counts as missing.
func Fill(seg *telemetry.Table, start int, log *slog.Logger) ([]telemetry.Field, error) {
	var filled []telemetry.Field
	for _, f := range Fields {
		if present(seg, f) {
			continue
		}
		var speed []float64
		if f != telemetry.Speed && present(seg, telemetry.Speed) {
			speed = seg.Floats(telemetry.Speed)
		}
		vals, err := Series(f, seg.Len(), start, speed)
		if err != nil {
			return filled, fmt.Errorf("failed to generate required field %s: %w", f, err)
		}
		seg.SetFloats(f, vals)
		filled = append(filled, f)
		if log != nil {
			log.Debug("synthesized field", "field", f, "rows", len(vals))
		}
	}
	return filled, nil
}

func present(t *telemetry.Table, f telemetry.Field) bool {
	_, ok := t.FirstValue(f)
	return ok
}

// Series generates n samples of field f. speed, when non-nil, must have n
// entries and is used to correlate rpm and throttle with it.
func Series(f telemetry.Field, n, start int, speed []float64) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w %s: empty segment", ErrCannotSynthesize, f)
	}
	if speed != nil && len(speed) != n {
		return nil, fmt.Errorf("%w %s: speed has %d rows, want %d", ErrCannotSynthesize, f, len(speed), n)
	}
	r := newRand(f, n, start)
	switch f {
	case telemetry.Speed:
		return speedSeries(r, n), nil
	case telemetry.RPM:
		if speed != nil {
			return rpmFromSpeed(r, speed), nil
		}
		return rpmWalk(r, n), nil
	case telemetry.Throttle:
		if speed != nil {
			return throttleFromSpeed(r, speed), nil
		}
		return throttleSeries(r, n), nil
	}
	return nil, fmt.Errorf("%w %s: unsupported", ErrCannotSynthesize, f)
}

func newRand(f telemetry.Field, n, start int) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(f))
	return rand.New(rand.NewPCG(uint64(n)<<32|uint64(uint32(start)), h.Sum64()))
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func normal(r *rand.Rand, sigma float64) float64 {
	return r.NormFloat64() * sigma
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func speedSeries(r *rand.Rand, n int) []float64 {
	base := uniform(r, 30, 80)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Max(0, base+normal(r, 15))
	}
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + clip(out[i]-out[i-1], -maxSpeedStep, maxSpeedStep)
	}
	for i := range out {
		out[i] = clip(out[i], minSpeed, maxSpeed)
	}
	return out
}

func rpmFromSpeed(r *rand.Rand, speed []float64) []float64 {
	factor := uniform(r, 40, 60)
	out := make([]float64, len(speed))
	for i, s := range speed {
		if math.IsNaN(s) {
			s = blankSpeedRPM
		}
		out[i] = clip(idleRPM+s*factor+normal(r, 200), minRPM, maxRPM)
	}
	return out
}

func rpmWalk(r *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	v := uniform(r, 1500, 3000)
	for i := range out {
		v = clip(v+normal(r, rpmWalkStdDev), minRPM, maxRPM)
		out[i] = v
	}
	return out
}

func throttleFromSpeed(r *rand.Rand, speed []float64) []float64 {
	out := make([]float64, len(speed))
	prev := math.NaN()
	for i, s := range speed {
		if math.IsNaN(s) {
			s = 0
		}
		delta := 0.0
		if i > 0 {
			delta = s - prev
		}
		var base float64
		if delta > 0 {
			base = delta*5 + 20
		} else {
			base = math.Max(10, s*0.3)
		}
		out[i] = clip(base+normal(r, 10), minThrottle, maxThrottle)
		prev = s
	}
	return out
}

func throttleSeries(r *rand.Rand, n int) []float64 {
	base := uniform(r, 20, 60)
	out := make([]float64, n)
	for i := range out {
		out[i] = clip(base+normal(r, 20), minThrottle, maxThrottle)
	}
	return out
}
