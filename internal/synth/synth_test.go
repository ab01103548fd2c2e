package synth

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

func segmentWithout(n int) *telemetry.Table {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	return telemetry.NewTable([]string{"notes"}, rows)
}

func TestFill_Deterministic(t *testing.T) {
	a := segmentWithout(120)
	b := segmentWithout(120)

	fa, err := Fill(a, 40, nil)
	require.NoError(t, err)
	fb, err := Fill(b, 40, nil)
	require.NoError(t, err)

	assert.Equal(t, Fields, fa)
	assert.Equal(t, fa, fb)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("synthesized tables differ (-a +b):\n%s", diff)
	}
}

func TestFill_DifferentStartDiffers(t *testing.T) {
	a := segmentWithout(60)
	b := segmentWithout(60)
	_, _ = Fill(a, 0, nil)
	_, _ = Fill(b, 60, nil)
	assert.NotEqual(t, a.Strings(telemetry.Speed), b.Strings(telemetry.Speed))
}

func TestFill_KeepsPresentFields(t *testing.T) {
	seg := telemetry.NewTable([]string{"speed"}, [][]string{{"10"}, {"20"}, {"30"}})
	filled, err := Fill(seg, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, []telemetry.Field{telemetry.RPM, telemetry.Throttle}, filled)
	assert.Equal(t, []string{"10", "20", "30"}, seg.Strings(telemetry.Speed))
}

func TestFill_BlankColumnCountsAsMissing(t *testing.T) {
	seg := telemetry.NewTable([]string{"speed", "rpm", "throttle"}, [][]string{{"", "900", "5"}, {"", "950", "6"}})
	filled, err := Fill(seg, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []telemetry.Field{telemetry.Speed}, filled)
	_, ok := seg.FirstValue(telemetry.Speed)
	assert.True(t, ok)
}

func TestFill_EmptySegment(t *testing.T) {
	_, err := Fill(telemetry.NewTable([]string{"notes"}, nil), 0, nil)
	assert.True(t, errors.Is(err, ErrCannotSynthesize))
}

func TestSeries_Ranges(t *testing.T) {
	speed, err := Series(telemetry.Speed, 500, 3, nil)
	require.NoError(t, err)
	for i, v := range speed {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 150.0)
		if i > 0 {
			require.InDelta(t, speed[i-1], v, 5.0+1e-9, "step %d too large", i)
		}
	}

	for _, in := range [][]float64{speed, nil} {
		rpm, err := Series(telemetry.RPM, 500, 3, in)
		require.NoError(t, err)
		for _, v := range rpm {
			require.GreaterOrEqual(t, v, 600.0)
			require.LessOrEqual(t, v, 7000.0)
		}
		throttle, err := Series(telemetry.Throttle, 500, 3, in)
		require.NoError(t, err)
		for _, v := range throttle {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestSeries_Errors(t *testing.T) {
	_, err := Series(telemetry.Latitude, 10, 0, nil)
	assert.ErrorIs(t, err, ErrCannotSynthesize)

	_, err = Series(telemetry.RPM, 10, 0, make([]float64, 3))
	assert.ErrorIs(t, err, ErrCannotSynthesize)

	_, err = Series(telemetry.Speed, 0, 0, nil)
	assert.ErrorIs(t, err, ErrCannotSynthesize)
}
