package trips

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Sink is the persistence gateway: it accepts one validated trip at a
// time. Implementations must be safe for concurrent use.
type Sink interface {
	SaveTrip(ctx context.Context, r *Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *Record) error

func (f SinkFunc) SaveTrip(ctx context.Context, r *Record) error { return f(ctx, r) }

// Multi fans a record out to several sinks. Every sink is tried; the
// errors are joined.
type Multi []Sink

func (m Multi) SaveTrip(ctx context.Context, r *Record) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveTrip(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every member that is an io.Closer.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DryRun logs records instead of persisting them.
type DryRun struct {
	Log *slog.Logger
}

func (d DryRun) SaveTrip(_ context.Context, r *Record) error {
	d.Log.Info("dry run: would save trip",
		"user_id", r.UserID, "trip_id", r.TripID, "vehicle_number", r.VehicleNumber,
		"distance_km", r.DistanceKm, "duration_min", r.TripDuration, "score", r.Score)
	return nil
}

// Memory keeps records in memory, in arrival order.
type Memory struct {
	mu      sync.Mutex
	records []*Record
}

func (m *Memory) SaveTrip(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Records returns a snapshot of what has been saved.
func (m *Memory) Records() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Record(nil), m.records...)
}
