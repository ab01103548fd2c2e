// Package validate applies range rules to trip records before they are
// persisted.
package validate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/banshee-data/trips.ingest/internal/trips"
)

// Policy holds the range rules. Upper bounds are soft: values above them are
// clamped with a warning. Lower bounds on duration and speed are hard.
type Policy struct {
	MinDurationMin float64
	MaxDurationMin float64
	MinDistanceKm  float64
	MaxDistanceKm  float64
	MaxSpeedKmph   float64
}

// DefaultPolicy returns the stock bounds.
func DefaultPolicy() Policy {
	return Policy{
		MinDurationMin: 2,
		MaxDurationMin: 1440,
		MinDistanceKm:  0.5,
		MaxDistanceKm:  2000,
		MaxSpeedKmph:   300,
	}
}

// Validate checks r, clamping soft violations in place. It returns whether
// the record may be persisted and, when it may not, why.
func (p Policy) Validate(r *trips.Record, log *slog.Logger) (bool, []string) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var reasons []string

	if r.UserID <= 0 {
		reasons = append(reasons, "missing required field: user_id")
	}
	if r.TripDate.IsZero() {
		reasons = append(reasons, "missing required field: trip_date")
	}
	if math.IsNaN(r.DistanceKm) {
		reasons = append(reasons, "missing required field: distance_km")
	}
	if math.IsNaN(r.AvgSpeedKmph) {
		reasons = append(reasons, "missing required field: avg_speed_kmph")
	}
	if r.Score == "" {
		reasons = append(reasons, "missing required field: score")
	}

	if r.DistanceKm > p.MaxDistanceKm {
		log.Warn("long trip clamped", "distance_km", r.DistanceKm, "max", p.MaxDistanceKm)
		r.DistanceKm = p.MaxDistanceKm
	} else if r.DistanceKm < p.MinDistanceKm {
		log.Warn("short trip distance", "distance_km", r.DistanceKm, "min", p.MinDistanceKm)
	}

	switch {
	case math.IsNaN(r.TripDuration):
	case r.TripDuration > p.MaxDurationMin:
		log.Warn("long trip duration clamped", "minutes", r.TripDuration, "max", p.MaxDurationMin)
		r.TripDuration = p.MaxDurationMin
	case r.TripDuration < p.MinDurationMin:
		reasons = append(reasons, fmt.Sprintf("trip too short: %.1f minutes", r.TripDuration))
	}

	switch {
	case r.AvgSpeedKmph > p.MaxSpeedKmph:
		log.Warn("high average speed clamped", "kmph", r.AvgSpeedKmph, "max", p.MaxSpeedKmph)
		r.AvgSpeedKmph = p.MaxSpeedKmph
	case r.AvgSpeedKmph < 0:
		reasons = append(reasons, fmt.Sprintf("invalid average speed: %.1f km/h", r.AvgSpeedKmph))
	}
	if r.MaxSpeed > p.MaxSpeedKmph {
		log.Warn("high max speed clamped", "kmph", r.MaxSpeed, "max", p.MaxSpeedKmph)
		r.MaxSpeed = p.MaxSpeedKmph
	}

	return len(reasons) == 0, reasons
}
