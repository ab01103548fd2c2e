package tabular

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tormoder/fit"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
	"github.com/banshee-data/trips.ingest/internal/units"
)

var fitColumns = []string{
	string(telemetry.Timestamp),
	string(telemetry.Speed),
	string(telemetry.TripDistance),
	string(telemetry.Latitude),
	string(telemetry.Longitude),
}

// readFIT reads the record messages of a FIT activity file. Speeds are
// converted to km/h and distances to km.
func readFIT(data []byte) (*telemetry.Table, error) {
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("FIT file is not an activity: %w", err)
	}
	return fitRecords(activity.Records)
}

func fitRecords(records []*fit.RecordMsg) (*telemetry.Table, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		row := make([]string, len(fitColumns))
		if ts := rec.Timestamp; !ts.IsZero() && !fit.IsBaseTime(ts) {
			row[0] = ts.UTC().Format(time.RFC3339)
		}
		if mps, ok := fitSpeed(rec); ok {
			row[1] = formatFloat(units.ConvertSpeed(mps, units.KMPH))
		}
		if m := rec.GetDistanceScaled(); finite(m) && m >= 0 {
			row[2] = formatFloat(units.MetersToKm(m))
		}
		if !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid() {
			row[3] = formatFloat(rec.PositionLat.Degrees())
			row[4] = formatFloat(rec.PositionLong.Degrees())
		}
		rows = append(rows, row)
	}
	return telemetry.NewTable(append([]string(nil), fitColumns...), rows), nil
}

func fitSpeed(rec *fit.RecordMsg) (float64, bool) {
	if s := rec.GetEnhancedSpeedScaled(); finite(s) && s >= 0 {
		return s, true
	}
	if s := rec.GetSpeedScaled(); finite(s) && s >= 0 {
		return s, true
	}
	return 0, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
