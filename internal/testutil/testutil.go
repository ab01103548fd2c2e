// Package testutil builds telemetry fixtures shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// CoreHeader names the canonical core columns.
const CoreHeader = "timestamp,speed,rpm,throttle"

// Trip describes one run of rows sampled once a minute.
type Trip struct {
	Start time.Time
	Rows  int
	Speed float64
}

// WriteRows appends the rows of tr to b. Speed wobbles by up to 2 km/h
// around tr.Speed, which defaults to 40.
func WriteRows(b *strings.Builder, tr Trip) {
	speed := tr.Speed
	if speed == 0 {
		speed = 40
	}
	for i := 0; i < tr.Rows; i++ {
		ts := tr.Start.Add(time.Duration(i) * time.Minute)
		fmt.Fprintf(b, "%s,%.1f,%d,%d\n", ts.Format(time.RFC3339), speed+float64(i%3), 1800+i*10, 30+i%5)
	}
}

// TripCSV returns a CoreHeader file holding trips in order.
func TripCSV(trips ...Trip) string {
	var b strings.Builder
	b.WriteString(CoreHeader + "\n")
	for _, tr := range trips {
		WriteRows(&b, tr)
	}
	return b.String()
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
