// Command topmass scans lepton+jets events for the top-mass / JES
// likelihood.
//
//	topmass [flags] -events events.json     scan events
//	topmass combine -db results.db          combine stored scans
//	topmass migrate <action>                manage the result schema
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/banshee-data/topmass/internal/db"
	"github.com/banshee-data/topmass/internal/monitoring"
	"github.com/banshee-data/topmass/internal/version"
)

var (
	configPath  = flag.String("config", "", "Scan configuration JSON (default: engine defaults)")
	eventsPath  = flag.String("events", "", "Event file (JSON array)")
	dbPath      = flag.String("db", "", "SQLite result database (optional)")
	plotDir     = flag.String("plots", "", "Directory for PNG/HTML likelihood plots (optional)")
	workers     = flag.Int("j", runtime.NumCPU(), "Number of events scanned concurrently")
	verbosity   = flag.Int("v", 0, "Log verbosity: 0 warnings, 1 info, 2 debug")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func setupLogging(v int) {
	logger := monitoring.NewLogger(os.Stderr, v)
	slog.SetDefault(logger)
	monitoring.SetLogger(monitoring.SlogLogf(logger))
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			fs := flag.NewFlagSet("migrate", flag.ExitOnError)
			path := fs.String("db", "topmass.db", "SQLite result database")
			fs.Parse(os.Args[2:])
			if err := db.RunMigrateCommand(os.Stdout, fs.Args(), *path); err != nil {
				log.Fatalf("migrate: %v", err)
			}
			return
		case "combine":
			fs := flag.NewFlagSet("combine", flag.ExitOnError)
			path := fs.String("db", "topmass.db", "SQLite result database")
			plots := fs.String("plots", "", "Directory for the combined -ln L plots (optional)")
			v := fs.Int("v", 0, "Log verbosity")
			fs.Parse(os.Args[2:])
			setupLogging(*v)
			if err := runCombine(context.Background(), *path, *plots, os.Stdout); err != nil {
				log.Fatalf("combine: %v", err)
			}
			return
		}
	}

	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *eventsPath == "" {
		flag.Usage()
		log.Fatal("-events is required")
	}
	setupLogging(*verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := scanOptions{
		ConfigPath: *configPath,
		EventsPath: *eventsPath,
		DBPath:     *dbPath,
		PlotDir:    *plotDir,
		Workers:    *workers,
	}
	if err := runScans(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("scan failed: %v", err)
	}
}
