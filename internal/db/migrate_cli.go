package db

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand. Output for the
// operator goes to out; progress goes to log.
func RunMigrateCommand(args []string, dbPath string, out io.Writer, log *slog.Logger) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	// Open without migrating: the command itself manages the schema.
	database, err := OpenDB(dbPath, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	migrations := MigrationsFS()

	switch action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		return printVersion(out, database, migrations)

	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		return printVersion(out, database, migrations)

	case "status":
		return printStatus(out, database, migrations)

	case "version", "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: tripingest migrate %s <version_number>", action)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if action == "force" {
			fmt.Fprintf(out, "WARNING: forcing migration version to %d; use only to recover from a dirty state\n", n)
			if err := database.MigrateForce(migrations, n); err != nil {
				return err
			}
		} else if err := database.MigrateTo(migrations, uint(n)); err != nil {
			return err
		}
		return printVersion(out, database, migrations)
	}

	PrintMigrateHelp(out)
	return fmt.Errorf("unknown migrate action: %s", action)
}

func printVersion(out io.Writer, database *DB, migrations fs.FS) error {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func printStatus(out io.Writer, database *DB, migrations fs.FS) error {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "=== Migration Status ===")
	fmt.Fprintf(out, "Current version: %d\n", version)
	fmt.Fprintf(out, "Latest version:  %d\n", latest)
	fmt.Fprintf(out, "Dirty: %v\n", dirty)
	if version < latest {
		fmt.Fprintf(out, "%d pending migration(s); run: tripingest migrate up\n", latest-version)
	}
	if dirty {
		fmt.Fprintln(out, "\nWARNING: database is in a dirty state. Inspect it, then run: tripingest migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Database Migration Commands

Usage: tripingest [-db-path trips.db] migrate <command> [options]

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  help            Show this help message

Examples:
  tripingest migrate up
  tripingest migrate status
  tripingest migrate version 2
`)
}
