// Package trips defines the normalized trip record and the sinks that
// accept it.
package trips

import "time"

// Score values assigned when the source carries no driver rating.
const (
	ScoreGood    = "Good"
	ScoreAverage = "Average"
	ScoreRisky   = "Risky"
)

// Record is one normalized trip. It is built once per valid segment,
// possibly clamped by validation, and never modified after it is handed to
// a Sink.
type Record struct {
	RunID         string    `json:"run_id"`
	UserID        int64     `json:"user_id"`
	TripID        int64     `json:"trip_id"`
	VehicleNumber string    `json:"vehicle_number"`
	TripDate      time.Time `json:"trip_date"`

	DistanceKm       float64 `json:"distance_km"`
	AvgSpeedKmph     float64 `json:"avg_speed_kmph"`
	MaxSpeed         float64 `json:"max_speed"`
	MaxRPM           float64 `json:"max_rpm"`
	FuelConsumed     float64 `json:"fuel_consumed"`
	BrakeEvents      int     `json:"brake_events"`
	SteeringAngle    float64 `json:"steering_angle"`
	AngularVelocity  float64 `json:"angular_velocity"`
	Acceleration     float64 `json:"acceleration"`
	GearPosition     int     `json:"gear_position"`
	TirePressure     float64 `json:"tire_pressure"`
	EngineLoad       float64 `json:"engine_load"`
	CoolantTemp      float64 `json:"coolant_temp"`
	ThrottlePosition float64 `json:"throttle_position"`
	BrakePressure    float64 `json:"brake_pressure"`
	// TripDuration is in minutes.
	TripDuration float64 `json:"trip_duration"`
	Score        string  `json:"score"`

	StartLocation string `json:"start_location"`
	EndLocation   string `json:"end_location"`
	GPSPath       string `json:"gps_path"`

	SyntheticFields []string `json:"synthetic_fields,omitempty"`
	SourceFile      string   `json:"source_file"`
	SegmentStart    int      `json:"segment_start"`
	SegmentEnd      int      `json:"segment_end"`
}

// DateString returns the trip date as YYYY-MM-DD.
func (r *Record) DateString() string {
	return r.TripDate.Format(time.DateOnly)
}
