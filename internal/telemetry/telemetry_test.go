package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Speed (km/h)", "speedkmh"},
		{"VEHICLE_SPEED ()", "vehiclespeed"},
		{"GPS Latitude(°)", "gpslatitude"},
		{"Engine Load(Absolute)(%)", "engineloadabsolute"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "NormalizeName(%q)", tt.in)
	}
}

func TestResolve_MapsAliases(t *testing.T) {
	t.Parallel()

	raw := NewTable(
		[]string{"Time", "Speed (km/h)", "ENGINE RPM(rpm)", "Throttle position (%)", "notes"},
		[][]string{{"2024-01-01 10:00:00", "12", "900", "10%", "a"}},
	)
	resolved, res := NewResolver(nil, nil).Resolve(raw)

	assert.Equal(t, []string{"timestamp", "speed", "rpm", "throttle", "notes"}, resolved.Columns)
	assert.Equal(t, "Speed (km/h)", res.Mapped[Speed])
	assert.Equal(t, "Time", res.Mapped[Timestamp])
	_, ok := res.Mapped[Latitude]
	assert.False(t, ok)
	// the source table is not modified
	assert.Equal(t, "Time", raw.Columns[0])
}

func TestResolve_FirstAliasWins(t *testing.T) {
	t.Parallel()

	raw := NewTable(
		[]string{"velocity", "Speed (km/h)", "speed"},
		[][]string{{"1", "2", "3"}},
	)
	resolved, res := NewResolver(nil, nil).Resolve(raw)

	assert.Equal(t, "Speed (km/h)", res.Mapped[Speed])
	require.Equal(t, []string{"speed"}, resolved.Columns)
	assert.Equal(t, "2", resolved.Rows[0][0])
	assert.ElementsMatch(t, []string{"velocity", "speed"}, res.Dropped)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []*Table{
		NewTable([]string{"Time", "Speed (km/h)", "velocity", "lat", "lng", "x"}, [][]string{{"1", "2", "3", "4", "5", "6"}}),
		NewTable([]string{"TIMESTAMP", "Time", "User ID", "Trip Distance", "distance"}, [][]string{{"a", "b", "c", "d", "e"}}),
		NewTable([]string{"speed ", "SPEED", "Trip Time(Since journey start)(s)"}, [][]string{{"1", "2", "3"}}),
		NewTable([]string{"speed", "rpm", "throttle"}, [][]string{{"1", "2", "3"}}),
	}
	r := NewResolver(nil, nil)
	for _, in := range inputs {
		once, _ := r.Resolve(in)
		twice, _ := r.Resolve(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("resolve not idempotent for %v (-once +twice):\n%s", in.Columns, diff)
		}
	}
}

func TestResolve_BareTimeIsTimestamp(t *testing.T) {
	raw := NewTable([]string{"TIME", "SPEED"}, [][]string{{"2024-01-01 00:00:00", "5"}})
	resolved, _ := NewResolver(nil, nil).Resolve(raw)
	assert.True(t, resolved.Has(Timestamp))
	assert.False(t, resolved.Has(TripTime))
}

func TestClean(t *testing.T) {
	tbl := NewTable(
		[]string{"speed", "rpm", "throttle", "battery", "vehicle_number", "notes"},
		[][]string{
			{" 45,5 km/h", "2100 RPM", "37%", "12A", "(MP09 AB1234)", "50%"},
			{"", "", "", "", "", ""},
		},
	)
	Clean(tbl)

	assert.Equal(t, []string{"45.5", "2100", "37", "12", "MP09 AB1234", "50%"}, tbl.Rows[0])
	assert.Equal(t, []string{"", "", "", "", "", ""}, tbl.Rows[1])
}

func TestConvertUnits_TripTimeSeconds(t *testing.T) {
	raw := NewTable(
		[]string{"Trip Time(Since journey start)(s)", "Speed (km/h)"},
		[][]string{{"90", "40"}, {"600", "41"}, {"", "42"}},
	)
	tbl, res := NewResolver(nil, nil).Resolve(raw)
	Clean(tbl)
	ConvertUnits(tbl, res)

	assert.Equal(t, []string{"1.5", "10", ""}, tbl.Strings(TripTime))
	assert.Equal(t, []string{"40", "41", "42"}, tbl.Strings(Speed))

	// A second pass sees the canonical name and leaves minutes alone.
	again, res := NewResolver(nil, nil).Resolve(tbl)
	ConvertUnits(again, res)
	assert.Equal(t, []string{"1.5", "10", ""}, again.Strings(TripTime))
}

func TestConvertUnits_MinutesUnchanged(t *testing.T) {
	raw := NewTable([]string{"Trip time (min)"}, [][]string{{"12.5"}})
	tbl, res := NewResolver(nil, nil).Resolve(raw)
	ConvertUnits(tbl, res)
	assert.Equal(t, []string{"12.5"}, tbl.Strings(TripTime))
}

func TestCleanCell_UnknownFieldOnlyTrims(t *testing.T) {
	assert.Equal(t, "12 km/h", CleanCell(Field("other"), " 12 km/h "))
}

func TestTableFloatsAndSetFloats(t *testing.T) {
	tbl := NewTable([]string{"speed"}, [][]string{{"1.5"}, {""}, {"abc"}})

	got := tbl.Floats(Speed)
	require.Len(t, got, 3)
	assert.Equal(t, 1.5, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
	assert.Nil(t, tbl.Floats(RPM))

	tbl.SetFloats(RPM, []float64{1000, math.NaN(), 1200.25})
	assert.Equal(t, []string{"speed", "rpm"}, tbl.Columns)
	assert.Equal(t, []string{"1000", "", "1200.25"}, tbl.Strings(RPM))
}

func TestTableSlice(t *testing.T) {
	tbl := NewTable([]string{"speed"}, [][]string{{"0"}, {"1"}, {"2"}, {"3"}})

	s := tbl.Slice(1, 2)
	require.Equal(t, 2, s.Len())
	s.Rows[0][0] = "changed"
	assert.Equal(t, "1", tbl.Rows[1][0])

	assert.Equal(t, 0, tbl.Slice(3, 1).Len())
	assert.Equal(t, 4, tbl.Slice(-1, 10).Len())
}

func TestFirstValue(t *testing.T) {
	tbl := NewTable([]string{"vehicle_number"}, [][]string{{""}, {" ka01ab1234 "}, {"x"}})
	v, ok := tbl.FirstValue(VehicleNumber)
	assert.True(t, ok)
	assert.Equal(t, "ka01ab1234", v)

	_, ok = tbl.FirstValue(UserID)
	assert.False(t, ok)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01 08:15:00", time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC), true},
		{"2024-03-01T08:15:00Z", time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC), true},
		{"1709280900", time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC), true},
		{"1709280900000", time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC), true},
		{"42", time.Time{}, false},
		{"not a time", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestAliasesReturnsCopy(t *testing.T) {
	a := Aliases()
	a[0].Aliases[0] = "mutated"
	assert.NotEqual(t, "mutated", Aliases()[0].Aliases[0])
	assert.Len(t, Fields(), 23)
}
