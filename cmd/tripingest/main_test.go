package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trips.ingest/internal/config"
	"github.com/banshee-data/trips.ingest/internal/db"
	"github.com/banshee-data/trips.ingest/internal/testutil"
)

func writeTripCSV(t *testing.T, dir, name string) {
	t.Helper()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	testutil.WriteFile(t, dir, name, []byte(testutil.TripCSV(testutil.Trip{Start: start, Rows: 12})))
}

func TestParseFlags_Defaults(t *testing.T) {
	o, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, db.DefaultPath, o.dbPath)
	assert.Equal(t, "info", o.logLevel)
	assert.False(t, o.dryRun)
	assert.Zero(t, o.workers)
}

func TestPipelineConfig_Overrides(t *testing.T) {
	cfg := config.Empty()
	o := &options{folders: " a, ,b ", workers: 3}
	pc := pipelineConfig(cfg, o)
	assert.Equal(t, []string{"a", "b"}, pc.Folders)
	assert.Equal(t, 3, pc.Workers)
	assert.Equal(t, 3, pc.MinColumns)

	o.positionalDir = []string{"c"}
	assert.Equal(t, []string{"c"}, pipelineConfig(cfg, o).Folders)

	assert.Equal(t, config.DefaultInputFolders, pipelineConfig(cfg, &options{}).Folders)
}

func TestLoadConfig(t *testing.T) {
	// No defaults file relative to this package directory.
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.Empty(), cfg)

	cfg, err = loadConfig(filepath.Join("..", "..", config.DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultExtensions, cfg.GetExtensions())

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &out, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out.String(), "tripingest "))
}

func TestRun_BadFlags(t *testing.T) {
	assert.Equal(t, exitUsage, run(context.Background(), []string{"-no-such-flag"}, &bytes.Buffer{}, &bytes.Buffer{}))
	assert.Equal(t, exitUsage, run(context.Background(), []string{"-log-level", "loud"}, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	writeTripCSV(t, in, "driver_12.csv")
	testutil.WriteFile(t, in, "empty.csv", nil)

	dbPath := filepath.Join(dir, "trips.db")
	jsonPath := filepath.Join(dir, "out", "report.json")
	htmlPath := filepath.Join(dir, "out", "report.html")
	parquetPath := filepath.Join(dir, "out", "trips.parquet")
	metricsPath := filepath.Join(dir, "tripingest.prom")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-db-path", dbPath,
		"-report-json", jsonPath,
		"-report-html", htmlPath,
		"-parquet", parquetPath,
		"-metrics-textfile", metricsPath,
		in,
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	assert.Contains(t, stdout.String(), "[OK] driver_12.csv (1 trip)")
	assert.Contains(t, stdout.String(), "[SKIP] empty.csv: file is empty")
	for _, p := range []string{jsonPath, htmlPath, parquetPath, metricsPath} {
		assert.FileExists(t, p)
	}

	database, err := db.OpenDB(dbPath, nil)
	require.NoError(t, err)
	defer database.Close()
	n, err := database.CountTrips(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, found, err := database.LookupIdentity(context.Background(), 12)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRun_DryRunStoresNothing(t *testing.T) {
	dir := t.TempDir()
	writeTripCSV(t, dir, "driver_3.csv")
	dbPath := filepath.Join(dir, "trips.db")

	code := run(context.Background(), []string{"-dry-run", "-db-path", dbPath, "-folders", dir}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
	assert.NoFileExists(t, dbPath)
}

func TestRun_NoTrips(t *testing.T) {
	dir := t.TempDir()
	code := run(context.Background(), []string{"-dry-run", dir}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitNoTrips, code)
}

func TestRun_NoReadableFolder(t *testing.T) {
	code := run(context.Background(), []string{"-dry-run", filepath.Join(t.TempDir(), "missing")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitUsage, code)
}

func TestRun_Migrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trips.db")
	var out bytes.Buffer
	code := run(context.Background(), []string{"migrate", "-db-path", dbPath, "up"}, &out, &bytes.Buffer{})
	require.Equal(t, exitOK, code)

	out.Reset()
	code = run(context.Background(), []string{"migrate", "-db-path", dbPath, "status"}, &out, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
	assert.NotEmpty(t, out.String())

	assert.Equal(t, exitNoTrips, run(context.Background(), []string{"migrate", "-db-path", dbPath, "sideways"}, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	allowed := []string{dir}

	got, err := outputPath(dir+string(filepath.Separator), "run/1 x", ".json", allowed)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tripingest_run_1_x.json"), got)

	got, err = outputPath(filepath.Join(dir, "r.html"), "ignored", ".html", allowed)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "r.html"), got)

	_, err = outputPath(filepath.Join(dir, "..", "escape.json"), "x", ".json", allowed)
	assert.Error(t, err)
}
