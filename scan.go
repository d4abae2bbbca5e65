package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/topmass/internal/config"
	"github.com/banshee-data/topmass/internal/db"
	"github.com/banshee-data/topmass/internal/kinematics"
	"github.com/banshee-data/topmass/internal/physics"
	"github.com/banshee-data/topmass/internal/report"
	"github.com/banshee-data/topmass/internal/timeutil"
	"github.com/banshee-data/topmass/internal/topmass"
)

type scanOptions struct {
	ConfigPath string
	EventsPath string
	DBPath     string
	PlotDir    string
	Workers    int

	// Clock overrides the engines' wall clock; nil is the real clock.
	Clock timeutil.Clock
}

type eventScan struct {
	Event  *kinematics.Event
	Result *topmass.Result
	ScanID string
}

func loadConfig(path string) (*config.ScanConfig, error) {
	if path == "" {
		return config.EmptyScanConfig(), nil
	}
	return config.LoadScanConfig(path)
}

// runScans scans every event of opts.EventsPath with opts.Workers engines,
// then stores, plots and summarises the results.
func runScans(ctx context.Context, opts scanOptions, out io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	integ, err := cfg.IntegrationParams()
	if err != nil {
		return err
	}
	mc, err := cfg.MCParams()
	if err != nil {
		return err
	}
	events, err := kinematics.LoadEvents(opts.EventsPath)
	if err != nil {
		return err
	}

	var store *db.DB
	if opts.DBPath != "" {
		if store, err = db.NewDB(opts.DBPath); err != nil {
			return fmt.Errorf("failed to open result database: %w", err)
		}
		defer store.Close()
	}
	if opts.PlotDir != "" {
		if err := os.MkdirAll(opts.PlotDir, 0755); err != nil {
			return fmt.Errorf("failed to create plot dir: %w", err)
		}
	}

	workers := max(1, min(opts.Workers, len(events)))
	pool := make(chan *topmass.Engine, workers)
	for range workers {
		eng, err := topmass.NewEngine(integ, mc, physics.NewContext(integ, opts.Clock))
		if err != nil {
			return err
		}
		pool <- eng
	}

	masses, jes := cfg.MassGrid(), cfg.JESGrid()
	scans := make([]eventScan, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range events {
		ev := &events[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			eng := <-pool
			defer func() { pool <- eng }()

			res, err := eng.Scan(topmass.ScanRequest{Event: ev, Masses: masses, JES: jes})
			if err != nil {
				return fmt.Errorf("event %s: %w", ev.ID, err)
			}
			scans[i] = eventScan{Event: ev, Result: res}
			slog.Info("scanned event", "event", ev.ID, "status", res.Status,
				"points", res.PointsIntegrated, "cycles", len(res.Cycles), "elapsed", res.Elapsed)

			if store != nil {
				id, err := store.SaveScan(gctx, ev.ID, res)
				if err != nil {
					return fmt.Errorf("event %s: %w", ev.ID, err)
				}
				scans[i].ScanID = id
			}
			if opts.PlotDir != "" {
				file := filepath.Join(opts.PlotDir, report.PlotFilename(ev.ID, ".png"))
				if err := report.SaveLikelihoodPNG(file, report.GridFromResult(ev.ID, res), "Likelihood"); err != nil {
					return fmt.Errorf("event %s: %w", ev.ID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return summarise(scans, opts.PlotDir, out)
}

// summarise prints one line per event and the sample fit, and writes the
// HTML heatmaps and combined -ln L plot when plotDir is set.
func summarise(scans []eventScan, plotDir string, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tSTATUS\tPOINTS\tCYCLES\tELAPSED\tPEAK MASS\tPEAK JES")

	grids := make([]*report.Grid, 0, len(scans))
	var usable []*report.Grid
	for _, s := range scans {
		g := report.GridFromResult(s.Event.ID, s.Result)
		grids = append(grids, g)
		if s.Result.Status == topmass.StatusOK || s.Result.Status == topmass.StatusMaxPoints {
			usable = append(usable, g)
		}

		peakMass, peakJES := "-", "-"
		if im, ij, v := g.Max(); im >= 0 && v > 0 {
			peakMass = fmt.Sprintf("%.2f", g.Masses[im])
			peakJES = fmt.Sprintf("%.3f", g.JES[ij])
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n", s.Event.ID, s.Result.Status,
			s.Result.PointsIntegrated, len(s.Result.Cycles), s.Result.Elapsed, peakMass, peakJES)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var nll *report.Grid
	if len(usable) > 0 {
		var err error
		if nll, err = report.SumNegLogLikelihood("sample -ln L", usable...); err != nil {
			return err
		}
		printFits(out, len(usable), nll)
	}

	if plotDir == "" {
		return nil
	}
	f, err := os.Create(filepath.Join(plotDir, "index.html"))
	if err != nil {
		return fmt.Errorf("failed to create heatmap page: %w", err)
	}
	defer f.Close()
	if err := report.WriteLikelihoodHTML(f, "likelihood", grids...); err != nil {
		return err
	}
	if nll != nil {
		return report.SaveLikelihoodPNG(filepath.Join(plotDir, "sample_nll.png"), nll, "-ln L")
	}
	return nil
}

func printFits(out io.Writer, n int, nll *report.Grid) {
	fmt.Fprintf(out, "\nSample fit over %d event(s):\n", n)
	for _, fit := range report.FitMass(nll) {
		if fit.Err != nil {
			fmt.Fprintf(out, "  JES %.3f: %v\n", fit.JES, fit.Err)
			continue
		}
		fmt.Fprintf(out, "  JES %.3f: m_top = %.2f ± %.2f GeV\n", fit.JES, fit.Mass, fit.Sigma)
	}
}
