// Package export writes accepted trips to columnar files for offline
// analysis.
package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/banshee-data/trips.ingest/internal/fsutil"
	"github.com/banshee-data/trips.ingest/internal/trips"
)

type tripRow struct {
	RunID            string  `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	UserID           int64   `parquet:"name=user_id, type=INT64"`
	TripID           int64   `parquet:"name=trip_id, type=INT64"`
	VehicleNumber    string  `parquet:"name=vehicle_number, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TripDate         string  `parquet:"name=trip_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	DistanceKm       float64 `parquet:"name=distance_km, type=DOUBLE"`
	AvgSpeedKmph     float64 `parquet:"name=avg_speed_kmph, type=DOUBLE"`
	MaxSpeed         float64 `parquet:"name=max_speed, type=DOUBLE"`
	MaxRPM           float64 `parquet:"name=max_rpm, type=DOUBLE"`
	FuelConsumed     float64 `parquet:"name=fuel_consumed, type=DOUBLE"`
	BrakeEvents      int32   `parquet:"name=brake_events, type=INT32"`
	SteeringAngle    float64 `parquet:"name=steering_angle, type=DOUBLE"`
	AngularVelocity  float64 `parquet:"name=angular_velocity, type=DOUBLE"`
	Acceleration     float64 `parquet:"name=acceleration, type=DOUBLE"`
	GearPosition     int32   `parquet:"name=gear_position, type=INT32"`
	TirePressure     float64 `parquet:"name=tire_pressure, type=DOUBLE"`
	EngineLoad       float64 `parquet:"name=engine_load, type=DOUBLE"`
	CoolantTemp      float64 `parquet:"name=coolant_temp, type=DOUBLE"`
	ThrottlePosition float64 `parquet:"name=throttle_position, type=DOUBLE"`
	BrakePressure    float64 `parquet:"name=brake_pressure, type=DOUBLE"`
	TripDuration     float64 `parquet:"name=trip_duration, type=DOUBLE"`
	Score            string  `parquet:"name=score, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StartLocation    string  `parquet:"name=start_location, type=BYTE_ARRAY, convertedtype=UTF8"`
	EndLocation      string  `parquet:"name=end_location, type=BYTE_ARRAY, convertedtype=UTF8"`
	GPSPath          string  `parquet:"name=gps_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	SyntheticFields  string  `parquet:"name=synthetic_fields, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceFile       string  `parquet:"name=source_file, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

func toRow(r *trips.Record) tripRow {
	return tripRow{
		RunID:            r.RunID,
		UserID:           r.UserID,
		TripID:           r.TripID,
		VehicleNumber:    r.VehicleNumber,
		TripDate:         r.DateString(),
		DistanceKm:       r.DistanceKm,
		AvgSpeedKmph:     r.AvgSpeedKmph,
		MaxSpeed:         r.MaxSpeed,
		MaxRPM:           r.MaxRPM,
		FuelConsumed:     r.FuelConsumed,
		BrakeEvents:      int32(r.BrakeEvents),
		SteeringAngle:    r.SteeringAngle,
		AngularVelocity:  r.AngularVelocity,
		Acceleration:     r.Acceleration,
		GearPosition:     int32(r.GearPosition),
		TirePressure:     r.TirePressure,
		EngineLoad:       r.EngineLoad,
		CoolantTemp:      r.CoolantTemp,
		ThrottlePosition: r.ThrottlePosition,
		BrakePressure:    r.BrakePressure,
		TripDuration:     r.TripDuration,
		Score:            r.Score,
		StartLocation:    r.StartLocation,
		EndLocation:      r.EndLocation,
		GPSPath:          r.GPSPath,
		SyntheticFields:  strings.Join(r.SyntheticFields, ","),
		SourceFile:       r.SourceFile,
	}
}

// ParquetSink buffers accepted trips and writes them as one Snappy
// compressed Parquet file on Close. It implements trips.Sink.
type ParquetSink struct {
	fs   fsutil.FileSystem
	path string

	mu     sync.Mutex
	rows   []tripRow
	closed bool
}

// NewParquetSink returns a sink that will write to path on fsys.
func NewParquetSink(fsys fsutil.FileSystem, path string) *ParquetSink {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &ParquetSink{fs: fsys, path: path}
}

// SaveTrip buffers r.
func (s *ParquetSink) SaveTrip(_ context.Context, r *trips.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("parquet sink %s is closed", s.path)
	}
	s.rows = append(s.rows, toRow(r))
	return nil
}

// Close writes the buffered trips. A sink that saw no trips writes nothing.
func (s *ParquetSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if len(s.rows) == 0 {
		return nil
	}

	data, err := marshalTrips(s.rows)
	if err != nil {
		return fmt.Errorf("failed to encode trips: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	w, err := s.fs.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.path, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return w.Close()
}

func marshalTrips(rows []tripRow) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(tripRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

var _ io.Closer = (*ParquetSink)(nil)
