package monitoring

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelWarn, false)
	log.Info("quiet")
	log.Warn("loud", "file", "a.csv")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "file=a.csv")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo, true).Info("trip saved", "trip_id", 42)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "trip saved", rec["msg"])
	assert.Equal(t, 42.0, rec["trip_id"])
}

func TestPrintfLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrintfLogger(NewLogger(&buf, slog.LevelInfo, false), true)
	p.Printf("applied migration %d\n", 3)

	assert.True(t, p.Verbose())
	assert.Contains(t, buf.String(), `msg="applied migration 3"`)
	assert.False(t, strings.Contains(buf.String(), `\n`))

	// nil logger must not panic
	NewPrintfLogger(nil, false).Printf("dropped")
}
