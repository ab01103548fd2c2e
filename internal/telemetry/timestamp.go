package telemetry

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Loggers in the wild disagree on
// almost everything, so the list covers ISO-8601 variants, space separated
// date-times and the day-first forms produced by OBD phone apps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"01/02/2006 15:04:05",
	"02-Jan-2006 15:04:05.000",
	"Mon Jan 02 15:04:05 MST 2006",
	"2006-01-02",
	"02/01/2006",
}

// Epoch values above this are treated as milliseconds.
const epochMillisThreshold = 1e11

// ParseTimestamp parses a timestamp cell. Plain numbers are read as Unix
// epoch seconds (or milliseconds when large); numbers too small to be a
// plausible epoch are rejected because they are almost always elapsed
// seconds from a trip-relative clock.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 1e8 {
			return time.Time{}, false
		}
		if v >= epochMillisThreshold {
			return time.UnixMilli(int64(v)).UTC(), true
		}
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
