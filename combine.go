package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/banshee-data/topmass/internal/db"
	"github.com/banshee-data/topmass/internal/report"
)

// runCombine sums -ln L over the stored scans of dbPath and fits the
// mass at each JES value.
func runCombine(ctx context.Context, dbPath, plotDir string, out io.Writer) error {
	store, err := db.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open result database: %w", err)
	}
	defer store.Close()

	scans, err := store.ListScans(ctx, "")
	if err != nil {
		return err
	}
	points, err := store.SampleLogLikelihood(ctx)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("no usable scans among %d stored", len(scans))
	}

	nll := gridFromPoints("sample -ln L", points)
	printFits(out, int(points[0].N), nll)

	if plotDir == "" {
		return nil
	}
	if err := os.MkdirAll(plotDir, 0755); err != nil {
		return fmt.Errorf("failed to create plot dir: %w", err)
	}
	if err := report.SaveLikelihoodPNG(filepath.Join(plotDir, "sample_nll.png"), nll, "-ln L"); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(plotDir, "sample_nll.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteLikelihoodHTML(f, "-ln L", nll)
}

func gridFromPoints(title string, points []db.LikelihoodPoint) *report.Grid {
	var masses, jes []float64
	seenMass := map[float64]bool{}
	seenJES := map[float64]bool{}
	for _, p := range points {
		if !seenMass[p.Mass] {
			seenMass[p.Mass] = true
			masses = append(masses, p.Mass)
		}
		if !seenJES[p.JES] {
			seenJES[p.JES] = true
			jes = append(jes, p.JES)
		}
	}
	sort.Float64s(masses)
	sort.Float64s(jes)

	g := report.NewGrid(title, masses, jes)
	for _, p := range points {
		g.Set(p.Mass, p.JES, p.Value)
	}
	return g
}
