package db

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand: up, down, status,
// version <n> and force <n>.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	fsys := MigrationsFS()
	action := args[0]
	switch action {
	case "up":
		if err := database.MigrateUp(fsys); err != nil {
			return err
		}
		return printVersion(w, database, fsys)

	case "down":
		if err := database.MigrateDown(fsys); err != nil {
			return err
		}
		return printVersion(w, database, fsys)

	case "status":
		return printStatus(w, database, fsys)

	case "version", "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: topmass migrate %s <version_number>", action)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if action == "force" {
			err = database.MigrateForce(fsys, v)
		} else {
			err = database.MigrateTo(fsys, uint(v))
		}
		if err != nil {
			return err
		}
		return printVersion(w, database, fsys)

	case "help":
		PrintMigrateHelp(w)
		return nil
	}

	PrintMigrateHelp(w)
	return fmt.Errorf("unknown migrate action: %s", action)
}

func printVersion(w io.Writer, database *DB, fsys fs.FS) error {
	version, dirty, err := database.MigrateVersion(fsys)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func printStatus(w io.Writer, database *DB, fsys fs.FS) error {
	version, dirty, err := database.MigrateVersion(fsys)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion(fsys)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Migration Status ===")
	fmt.Fprintf(w, "Current version: %d\n", version)
	fmt.Fprintf(w, "Latest available: %d\n", latest)
	fmt.Fprintf(w, "Dirty: %v\n", dirty)
	switch {
	case dirty:
		fmt.Fprintln(w, "Database is in a dirty state; inspect it, then run: topmass migrate force <version>")
	case version < latest:
		fmt.Fprintf(w, "Database is %d version(s) behind. Run 'topmass migrate up' to update.\n", latest-version)
	default:
		fmt.Fprintln(w, "Database is up to date.")
	}
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: topmass migrate <action> [args]

Actions:
  up             Apply all pending migrations
  down           Roll back the most recent migration
  status         Show the current and latest schema versions
  version <n>    Migrate up or down to version n
  force <n>      Record version n without running migrations (recovery only)
  help           Show this help
`)
}
