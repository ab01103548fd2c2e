package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/banshee-data/trips.ingest/internal/identity"
)

// Username derives the placeholder login for a vehicle: the lowercased
// letters and digits of its plate.
func Username(vehicleNumber string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(vehicleNumber) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// LookupIdentity returns the stored identity for userID.
func (db *DB) LookupIdentity(ctx context.Context, userID int64) (identity.Identity, bool, error) {
	var id identity.Identity
	err := db.QueryRowContext(ctx,
		`SELECT user_id, vehicle_number FROM identities WHERE user_id = ?`, userID,
	).Scan(&id.UserID, &id.VehicleNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, false, nil
	}
	if err != nil {
		return identity.Identity{}, false, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}
	return id, true, nil
}

// InsertIdentityIfAbsent creates the identity unless the user already
// exists. It reports whether a row was written.
func (db *DB) InsertIdentityIfAbsent(ctx context.Context, id identity.Identity) (bool, error) {
	vehicle := identity.NormalizeVehicleNumber(id.VehicleNumber)
	res, err := db.ExecContext(ctx,
		`INSERT INTO identities (user_id, username, vehicle_number) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		id.UserID, Username(vehicle), vehicle,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert user %d: %w", id.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// StandardizeResult counts rows rewritten by StandardizeVehicleNumbers.
type StandardizeResult struct {
	Identities int
	Trips      int
}

// StandardizeVehicleNumbers rewrites every stored vehicle number into its
// normalized form, in one transaction.
func (db *DB) StandardizeVehicleNumbers(ctx context.Context) (StandardizeResult, error) {
	var res StandardizeResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.log.Warn("rollback failed", "err", rbErr)
		}
	}()

	if res.Identities, err = standardizeTable(ctx, tx, "identities", "user_id", true); err != nil {
		return res, err
	}
	if res.Trips, err = standardizeTable(ctx, tx, "trips", "id", false); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit: %w", err)
	}
	db.log.Info("standardized vehicle numbers", "identities", res.Identities, "trips", res.Trips)
	return res, nil
}

// standardizeTable normalizes vehicle_number in table, keyed by key. The
// table and key names are package constants, never user input.
func standardizeTable(ctx context.Context, tx *sql.Tx, table, key string, withUsername bool) (int, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT %s, vehicle_number FROM %s`, key, table))
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	type change struct {
		key     int64
		vehicle string
	}
	var changes []change
	for rows.Next() {
		var c change
		var current string
		if err := rows.Scan(&c.key, &current); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to read %s row: %w", table, err)
		}
		if c.vehicle = identity.NormalizeVehicleNumber(current); c.vehicle != current {
			changes = append(changes, c)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, c := range changes {
		var err error
		if withUsername {
			_, err = tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET vehicle_number = ?, username = ? WHERE %s = ?`, table, key),
				c.vehicle, Username(c.vehicle), c.key)
		} else {
			_, err = tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET vehicle_number = ? WHERE %s = ?`, table, key),
				c.vehicle, c.key)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to update %s %d: %w", table, c.key, err)
		}
	}
	return len(changes), nil
}
