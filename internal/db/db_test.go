package db

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trips.ingest/internal/identity"
	"github.com/banshee-data/trips.ingest/internal/trips"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "trips.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleTrip(userID, tripID int64) *trips.Record {
	return &trips.Record{
		RunID:            "run-1",
		UserID:           userID,
		TripID:           tripID,
		VehicleNumber:    "MH12-DE4567",
		TripDate:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DistanceKm:       12.5,
		AvgSpeedKmph:     41.2,
		MaxSpeed:         88,
		MaxRPM:           4100,
		FuelConsumed:     1.25,
		BrakeEvents:      3,
		GearPosition:     4,
		TripDuration:     18.5,
		Score:            trips.ScoreAverage,
		StartLocation:    "18.520400,73.856700",
		EndLocation:      "18.530000,73.860000",
		GPSPath:          "[[18.5204,73.8567],[18.53,73.86]]",
		SyntheticFields:  []string{"rpm", "throttle"},
		SourceFile:       "driver_12.csv",
		SegmentStart:     0,
		SegmentEnd:       119,
		ThrottlePosition: 31.5,
	}
}

func TestNewDB_Pragmas(t *testing.T) {
	db := setupTestDB(t)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrations(t *testing.T) {
	db := setupTestDB(t)
	migrations := MigrationsFS()

	latest, err := LatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(4), latest)

	v, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, latest, v)
	assert.False(t, dirty)

	// Running up again is a no-op.
	require.NoError(t, db.MigrateUp(migrations))

	require.NoError(t, db.MigrateDown(migrations))
	v, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)

	require.NoError(t, db.MigrateTo(migrations, 4))
	require.NoError(t, db.SaveTrip(context.Background(), sampleTrip(1, 1)))
}

func TestIdentityStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, found, err := db.LookupIdentity(ctx, 12)
	require.NoError(t, err)
	assert.False(t, found)

	inserted, err := db.InsertIdentityIfAbsent(ctx, identity.Identity{UserID: 12, VehicleNumber: "mh12 de4567"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = db.InsertIdentityIfAbsent(ctx, identity.Identity{UserID: 12, VehicleNumber: "KA01-AA0001"})
	require.NoError(t, err)
	assert.False(t, inserted, "second insert must be a no-op")

	got, found, err := db.LookupIdentity(ctx, 12)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, identity.Identity{UserID: 12, VehicleNumber: "MH12-DE4567"}, got)

	var username string
	require.NoError(t, db.QueryRow(`SELECT username FROM identities WHERE user_id = 12`).Scan(&username))
	assert.Equal(t, "mh12de4567", username)
}

func TestIdentityStore_ConcurrentEnsure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	created := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created <- identity.Ensure(ctx, db, identity.Identity{UserID: 7, VehicleNumber: "DL01-AB1234"}, db.log)
		}()
	}
	wg.Wait()
	close(created)

	n := 0
	for c := range created {
		if c {
			n++
		}
	}
	assert.Equal(t, 1, n, "exactly one caller creates the identity")
}

func TestSaveTrip_Upsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveTrip(ctx, sampleTrip(12, 500)))
	require.NoError(t, db.SaveTrip(ctx, sampleTrip(12, 501)))

	updated := sampleTrip(12, 500)
	updated.DistanceKm = 99
	updated.RunID = "run-2"
	require.NoError(t, db.SaveTrip(ctx, updated))

	n, err := db.CountTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := db.ListTrips(ctx, 12)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 99.0, got[0].DistanceKm)
	assert.Equal(t, "run-2", got[0].RunID)
	assert.Equal(t, sampleTrip(12, 501), got[1])
}

func TestSaveTrip_SameTripIDFromDifferentFiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := sampleTrip(12, 500)
	second := sampleTrip(12, 500)
	second.SourceFile = "driver_12_march.csv"
	second.DistanceKm = 7
	require.NoError(t, db.SaveTrip(ctx, first))
	require.NoError(t, db.SaveTrip(ctx, second))

	n, err := db.CountTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := db.ListTrips(ctx, 12)
	require.NoError(t, err)
	require.Len(t, got, 2)
	files := []string{got[0].SourceFile, got[1].SourceFile}
	assert.ElementsMatch(t, []string{"driver_12.csv", "driver_12_march.csv"}, files)
}

func TestMigrateDown_CollapsesSharedTripIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	second := sampleTrip(12, 500)
	second.SourceFile = "driver_12_march.csv"
	require.NoError(t, db.SaveTrip(ctx, sampleTrip(12, 500)))
	require.NoError(t, db.SaveTrip(ctx, second))

	require.NoError(t, db.MigrateTo(MigrationsFS(), 3))
	got, err := db.ListTrips(ctx, 12)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "driver_12_march.csv", got[0].SourceFile)
}

func TestListTrips_Filter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveTrip(ctx, sampleTrip(1, 10)))
	require.NoError(t, db.SaveTrip(ctx, sampleTrip(2, 20)))

	all, err := db.ListTrips(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := db.ListTrips(ctx, 2)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int64(20), one[0].TripID)
}

func TestStandardizeVehicleNumbers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO identities (user_id, username, vehicle_number) VALUES
		(1, 'x', 'mh12 de 4567'), (2, 'ka01aa0001', 'KA01-AA0001')`)
	require.NoError(t, err)
	raw := sampleTrip(1, 1)
	raw.VehicleNumber = "mh12-de-4567"
	require.NoError(t, db.SaveTrip(ctx, raw))

	res, err := db.StandardizeVehicleNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, StandardizeResult{Identities: 1, Trips: 1}, res)

	id, _, err := db.LookupIdentity(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "MH12-DE-4567", id.VehicleNumber)

	// second pass finds nothing to change
	res, err = db.StandardizeVehicleNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, StandardizeResult{}, res)
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "mh12de4567", Username("MH12-DE4567"))
	assert.Equal(t, "unknown", Username("--"))
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer

	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out, nil))
	assert.Contains(t, out.String(), "Current version: 4")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"version", "1"}, path, &out, nil))
	assert.Contains(t, out.String(), "Current version: 1")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out, nil))
	assert.Contains(t, out.String(), "3 pending migration(s)")

	assert.Error(t, RunMigrateCommand(nil, path, &out, nil))
	assert.Error(t, RunMigrateCommand([]string{"sideways"}, path, &out, nil))
	assert.Error(t, RunMigrateCommand([]string{"force"}, path, &out, nil))
	assert.Error(t, RunMigrateCommand([]string{"version", "x"}, path, &out, nil))
	require.NoError(t, RunMigrateCommand([]string{"help"}, path, &out, nil))
}
