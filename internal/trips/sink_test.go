package trips

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingSink struct {
	Memory
	closed bool
}

func (c *closingSink) Close() error {
	c.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	good := &Memory{}
	closer := &closingSink{}
	boom := errors.New("boom")
	failing := SinkFunc(func(context.Context, *Record) error { return boom })

	m := Multi{good, failing, closer}
	rec := &Record{UserID: 1, TripID: 2}

	err := m.SaveTrip(ctx, rec)
	assert.ErrorIs(t, err, boom)
	require.Len(t, good.Records(), 1, "a failing sink must not stop the others")
	assert.Len(t, closer.Records(), 1)

	require.NoError(t, m.Close())
	assert.True(t, closer.closed)
}

func TestDryRun(t *testing.T) {
	d := DryRun{Log: slog.New(slog.DiscardHandler)}
	assert.NoError(t, d.SaveTrip(context.Background(), &Record{UserID: 1}))
}

func TestDateString(t *testing.T) {
	r := &Record{TripDate: time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)}
	assert.Equal(t, "2024-02-29", r.DateString())
}
