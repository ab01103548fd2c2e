// Package features turns one trip segment into a trips.Record.
//
// Values the segment does not carry are filled with deterministic
// estimates: the same segment, trip id and user id always produce the same
// record.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trips.ingest/internal/identity"
	"github.com/banshee-data/trips.ingest/internal/telemetry"
	"github.com/banshee-data/trips.ingest/internal/timeutil"
	"github.com/banshee-data/trips.ingest/internal/trips"
)

// ErrCoreMetrics is returned when speed, rpm or throttle has no numeric
// sample in the segment.
var ErrCoreMetrics = errors.New("failed to extract core metrics")

// BoundingBox limits generated coordinates.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Config tunes the extractor.
type Config struct {
	BrakeDropKmph  float64
	SampleInterval time.Duration
	Region         BoundingBox
	MaxPathPoints  int
}

// DefaultConfig matches one-second logging over the Indian subcontinent.
func DefaultConfig() Config {
	return Config{
		BrakeDropKmph:  10,
		SampleInterval: time.Second,
		Region:         BoundingBox{MinLat: 8, MaxLat: 37, MinLon: 68, MaxLon: 97},
		MaxPathPoints:  50,
	}
}

// Segment is everything the extractor needs to know about one trip.
type Segment struct {
	Table      *telemetry.Table
	Identity   identity.Identity
	TripID     int64
	SourceFile string
	Start, End int
	Synthetic  []telemetry.Field
}

// Extractor computes trip features.
type Extractor struct {
	cfg   Config
	clock timeutil.Clock
}

// NewExtractor returns an Extractor. A nil clock uses the wall clock.
func NewExtractor(cfg Config, clock timeutil.Clock) *Extractor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = time.Second
	}
	if cfg.MaxPathPoints <= 0 {
		cfg.MaxPathPoints = 1
	}
	return &Extractor{cfg: cfg, clock: clock}
}

// Extract builds the record for seg. It fails only when a core metric is
// missing; every other field has a fallback.
func (e *Extractor) Extract(seg Segment) (*trips.Record, error) {
	t := seg.Table
	speed := valid(t.Floats(telemetry.Speed))
	rpm := valid(t.Floats(telemetry.RPM))
	throttle := valid(t.Floats(telemetry.Throttle))
	switch {
	case len(speed) == 0:
		return nil, fmt.Errorf("%w: no speed samples", ErrCoreMetrics)
	case len(rpm) == 0:
		return nil, fmt.Errorf("%w: no rpm samples", ErrCoreMetrics)
	case len(throttle) == 0:
		return nil, fmt.Errorf("%w: no throttle samples", ErrCoreMetrics)
	}

	r := rand.New(rand.NewPCG(uint64(seg.TripID), uint64(seg.Identity.UserID)))
	rows := t.Len()

	avgSpeed := stat.Mean(speed, nil)
	maxSpeed := floats.Max(speed)
	maxRPM := floats.Max(rpm)
	throttleMean := stat.Mean(throttle, nil)
	brakes := brakeEvents(speed, e.cfg.BrakeDropKmph)

	distance, ok := lastPositive(t.Floats(telemetry.TripDistance))
	if !ok {
		hours := float64(rows) * e.cfg.SampleInterval.Hours()
		distance = math.Max(0.1, avgSpeed*hours)
	}

	duration := e.duration(t)

	startLat, latOK := first(t.Floats(telemetry.Latitude))
	startLon, lonOK := first(t.Floats(telemetry.Longitude))
	if !latOK || !lonOK {
		startLat = uniform(r, e.cfg.Region.MinLat, e.cfg.Region.MaxLat)
		startLon = uniform(r, e.cfg.Region.MinLon, e.cfg.Region.MaxLon)
	}
	endLat, ok := last(t.Floats(telemetry.Latitude))
	if !ok {
		endLat = startLat + uniform(r, -0.01, 0.01)
	}
	endLon, ok := last(t.Floats(telemetry.Longitude))
	if !ok {
		endLon = startLon + uniform(r, -0.01, 0.01)
	}

	engineLoad, ok := mean(t.Floats(telemetry.EngineLoad))
	if !ok {
		engineLoad = clamp(throttleMean*0.8+uniform(r, -10, 10), 0, 100)
	}

	coolant, ok := mean(t.Floats(telemetry.CoolantTemp))
	if !ok {
		base := 88.0
		if engineLoad != 0 {
			base = 85 + engineLoad*0.2
		}
		coolant = base + uniform(r, -5, 8)
	}

	fuel := fuelDrop(t.Floats(telemetry.FuelLevel))
	if fuel <= 0 {
		rate := 0.08
		switch {
		case maxRPM > 4000 || brakes > 5:
			rate = 0.12
		case maxRPM < 3000 && brakes <= 2:
			rate = 0.06
		}
		fuel = math.Max(0.1, distance*rate)
	}

	score, ok := t.FirstValue(telemetry.DriverRating)
	if !ok {
		score = riskScore(maxRPM, brakes, avgSpeed, throttleMean)
	}

	steering, ok := mean(t.Floats(telemetry.SteeringAngle))
	if !ok {
		steering = uniform(r, -20, 20)
	}
	angular, ok := mean(t.Floats(telemetry.AngularVelocity))
	if !ok {
		angular = steering * 0.1
	}
	accel, ok := mean(t.Floats(telemetry.Acceleration))
	if !ok {
		if len(speed) > 1 {
			accel = meanDelta(speed) / 3.6
		} else {
			accel = uniform(r, -1, 1)
		}
	}

	var gear int
	if g, ok := mean(t.Floats(telemetry.GearPosition)); ok {
		gear = int(math.Round(g))
	} else {
		gear = gearForSpeed(r, avgSpeed)
	}

	tire, ok := mean(t.Floats(telemetry.TirePressure))
	if !ok {
		tire = uniform(r, 28, 36)
	}
	brakePressure, ok := mean(t.Floats(telemetry.BrakePressure))
	if !ok {
		if brakes > 0 {
			brakePressure = uniform(r, 2, 15)
		} else {
			brakePressure = uniform(r, 0, 3)
		}
	}

	tripDate := timeutil.Today(e.clock)
	for _, ts := range t.Times(telemetry.Timestamp) {
		if !ts.IsZero() {
			y, m, d := ts.Date()
			tripDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			break
		}
	}

	synthetic := make([]string, len(seg.Synthetic))
	for i, f := range seg.Synthetic {
		synthetic[i] = string(f)
	}

	return &trips.Record{
		UserID:           seg.Identity.UserID,
		TripID:           seg.TripID,
		VehicleNumber:    identity.NormalizeVehicleNumber(seg.Identity.VehicleNumber),
		TripDate:         tripDate,
		DistanceKm:       round(distance, 2),
		AvgSpeedKmph:     round(avgSpeed, 2),
		MaxSpeed:         round(maxSpeed, 2),
		MaxRPM:           round(maxRPM, 0),
		FuelConsumed:     round(fuel, 3),
		BrakeEvents:      brakes,
		SteeringAngle:    round(steering, 2),
		AngularVelocity:  round(angular, 3),
		Acceleration:     round(accel, 3),
		GearPosition:     gear,
		TirePressure:     round(tire, 1),
		EngineLoad:       round(engineLoad, 1),
		CoolantTemp:      round(coolant, 1),
		ThrottlePosition: round(throttleMean, 1),
		BrakePressure:    round(brakePressure, 2),
		TripDuration:     round(duration, 2),
		Score:            score,
		StartLocation:    location(startLat, startLon),
		EndLocation:      location(endLat, endLon),
		GPSPath:          e.gpsPath(t, startLat, startLon),
		SyntheticFields:  synthetic,
		SourceFile:       seg.SourceFile,
		SegmentStart:     seg.Start,
		SegmentEnd:       seg.End,
	}, nil
}

// duration returns minutes from the trip_time column, else the timestamp
// span, else the row count times the sample interval with a one minute
// floor.
func (e *Extractor) duration(t *telemetry.Table) float64 {
	if d, ok := lastPositive(t.Floats(telemetry.TripTime)); ok {
		return d
	}
	var firstTS, lastTS time.Time
	for _, ts := range t.Times(telemetry.Timestamp) {
		if ts.IsZero() {
			continue
		}
		if firstTS.IsZero() {
			firstTS = ts
		}
		lastTS = ts
	}
	if span := lastTS.Sub(firstTS); span > 0 {
		return span.Minutes()
	}
	return math.Max(1, float64(t.Len())*e.cfg.SampleInterval.Minutes())
}

// gpsPath encodes the segment's coordinates as a JSON array of [lat, lon]
// pairs, downsampled to at most MaxPathPoints. Without coordinates it is
// the single start point.
func (e *Extractor) gpsPath(t *telemetry.Table, lat0, lon0 float64) string {
	lats := t.Floats(telemetry.Latitude)
	lons := t.Floats(telemetry.Longitude)
	var pts [][2]float64
	if lats != nil && lons != nil {
		for i := range lats {
			if !math.IsNaN(lats[i]) && !math.IsNaN(lons[i]) {
				pts = append(pts, [2]float64{round(lats[i], 6), round(lons[i], 6)})
			}
		}
	}
	if len(pts) == 0 {
		pts = [][2]float64{{round(lat0, 6), round(lon0, 6)}}
	}
	if n := e.cfg.MaxPathPoints; len(pts) > n {
		sampled := make([][2]float64, 0, n)
		step := float64(len(pts)-1) / float64(max(n-1, 1))
		for i := 0; i < n; i++ {
			sampled = append(sampled, pts[int(math.Round(float64(i)*step))])
		}
		pts = sampled
	}
	b, _ := json.Marshal(pts)
	return string(b)
}

func riskScore(maxRPM float64, brakes int, avgSpeed, throttle float64) string {
	risk := 0
	if maxRPM > 5000 {
		risk += 2
	}
	if brakes > 5 {
		risk += 2
	}
	if avgSpeed > 80 {
		risk++
	}
	if throttle > 70 {
		risk++
	}
	switch {
	case risk >= 3:
		return trips.ScoreRisky
	case risk >= 1:
		return trips.ScoreAverage
	}
	return trips.ScoreGood
}

func gearForSpeed(r *rand.Rand, avgSpeed float64) int {
	switch {
	case avgSpeed < 25:
		return 1 + r.IntN(2)
	case avgSpeed < 50:
		return 2 + r.IntN(3)
	}
	return 4 + r.IntN(3)
}

func brakeEvents(speed []float64, drop float64) int {
	n := 0
	for i := 1; i < len(speed); i++ {
		if speed[i]-speed[i-1] < -drop {
			n++
		}
	}
	return n
}

func fuelDrop(levels []float64) float64 {
	start, ok1 := first(levels)
	end, ok2 := last(levels)
	if !ok1 || !ok2 || start <= end {
		return 0
	}
	return start - end
}

func location(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}
