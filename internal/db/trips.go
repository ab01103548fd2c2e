package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/trips.ingest/internal/trips"
)

const tripColumns = `run_id, user_id, trip_id, vehicle_number, trip_date,
	distance_km, avg_speed_kmph, max_speed, max_rpm, fuel_consumed,
	brake_events, steering_angle, angular_velocity, acceleration, gear_position,
	tire_pressure, engine_load, coolant_temp, throttle_position, brake_pressure,
	trip_duration, score, start_location, end_location, gps_path,
	synthetic_fields, source_file, segment_start, segment_end`

// SaveTrip upserts r on (user_id, trip_id, source_file), so re-ingesting a
// file updates its trips instead of duplicating them. Trip ids are hashed
// from the file name, so two files of one user never overwrite each other.
func (db *DB) SaveTrip(ctx context.Context, r *trips.Record) error {
	_, err := db.ExecContext(ctx, `INSERT INTO trips (`+tripColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, trip_id, source_file) DO UPDATE SET
			run_id = excluded.run_id,
			vehicle_number = excluded.vehicle_number,
			trip_date = excluded.trip_date,
			distance_km = excluded.distance_km,
			avg_speed_kmph = excluded.avg_speed_kmph,
			max_speed = excluded.max_speed,
			max_rpm = excluded.max_rpm,
			fuel_consumed = excluded.fuel_consumed,
			brake_events = excluded.brake_events,
			steering_angle = excluded.steering_angle,
			angular_velocity = excluded.angular_velocity,
			acceleration = excluded.acceleration,
			gear_position = excluded.gear_position,
			tire_pressure = excluded.tire_pressure,
			engine_load = excluded.engine_load,
			coolant_temp = excluded.coolant_temp,
			throttle_position = excluded.throttle_position,
			brake_pressure = excluded.brake_pressure,
			trip_duration = excluded.trip_duration,
			score = excluded.score,
			start_location = excluded.start_location,
			end_location = excluded.end_location,
			gps_path = excluded.gps_path,
			synthetic_fields = excluded.synthetic_fields,
			segment_start = excluded.segment_start,
			segment_end = excluded.segment_end,
			updated_at = CURRENT_TIMESTAMP`,
		r.RunID, r.UserID, r.TripID, r.VehicleNumber, r.DateString(),
		r.DistanceKm, r.AvgSpeedKmph, r.MaxSpeed, r.MaxRPM, r.FuelConsumed,
		r.BrakeEvents, r.SteeringAngle, r.AngularVelocity, r.Acceleration, r.GearPosition,
		r.TirePressure, r.EngineLoad, r.CoolantTemp, r.ThrottlePosition, r.BrakePressure,
		r.TripDuration, r.Score, r.StartLocation, r.EndLocation, r.GPSPath,
		strings.Join(r.SyntheticFields, ","), r.SourceFile, r.SegmentStart, r.SegmentEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to save trip %d for user %d: %w", r.TripID, r.UserID, err)
	}
	return nil
}

// ListTrips returns stored trips ordered by user and trip id. A userID of
// zero lists every user.
func (db *DB) ListTrips(ctx context.Context, userID int64) ([]*trips.Record, error) {
	query := `SELECT ` + tripColumns + ` FROM trips`
	var args []any
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY user_id, trip_id, source_file`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var out []*trips.Record
	for rows.Next() {
		r, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountTrips returns the number of stored trips.
func (db *DB) CountTrips(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}

func scanTrip(rows *sql.Rows) (*trips.Record, error) {
	var (
		r                        trips.Record
		date                     string
		gpsPath, synthetic, file sql.NullString
		start, end               sql.NullString
	)
	err := rows.Scan(
		&r.RunID, &r.UserID, &r.TripID, &r.VehicleNumber, &date,
		&r.DistanceKm, &r.AvgSpeedKmph, &r.MaxSpeed, &r.MaxRPM, &r.FuelConsumed,
		&r.BrakeEvents, &r.SteeringAngle, &r.AngularVelocity, &r.Acceleration, &r.GearPosition,
		&r.TirePressure, &r.EngineLoad, &r.CoolantTemp, &r.ThrottlePosition, &r.BrakePressure,
		&r.TripDuration, &r.Score, &start, &end, &gpsPath,
		&synthetic, &file, &r.SegmentStart, &r.SegmentEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trip: %w", err)
	}
	if r.TripDate, err = time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("trip %d has bad date %q: %w", r.TripID, date, err)
	}
	r.StartLocation = start.String
	r.EndLocation = end.String
	r.GPSPath = gpsPath.String
	r.SourceFile = file.String
	if synthetic.String != "" {
		r.SyntheticFields = strings.Split(synthetic.String, ",")
	}
	return &r, nil
}
