package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// curvePalette is cycled across JES curves.
var curvePalette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

// errorCurve is a likelihood curve with symmetric errors, satisfying
// plotter.XYer and plotter.YErrorer.
type errorCurve struct {
	plotter.XYs
	plotter.YErrors
}

// LikelihoodPlot builds a plot with one curve per JES value of g, with
// error bars when g carries errors. Non-finite points are skipped.
func LikelihoodPlot(g *Grid, yLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = g.Title
	p.X.Label.Text = "Top mass (GeV)"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for ij, jes := range g.JES {
		values, errs := g.Curve(ij)
		var c errorCurve
		for im, m := range g.Masses {
			if math.IsNaN(values[im]) || math.IsInf(values[im], 0) {
				continue
			}
			c.XYs = append(c.XYs, plotter.XY{X: m, Y: values[im]})
			c.YErrors = append(c.YErrors, struct{ Low, High float64 }{errs[im], errs[im]})
		}
		if len(c.XYs) == 0 {
			continue
		}
		col := curvePalette[ij%len(curvePalette)]

		line, points, err := plotter.NewLinePoints(c.XYs)
		if err != nil {
			return nil, fmt.Errorf("jes %g: %w", jes, err)
		}
		line.Color = col
		line.Width = vg.Points(1)
		points.Color = col
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)

		if g.Errors != nil {
			bars, err := plotter.NewYErrorBars(c)
			if err != nil {
				return nil, fmt.Errorf("jes %g error bars: %w", jes, err)
			}
			bars.Color = col
			p.Add(bars)
		}
		p.Legend.Add(fmt.Sprintf("JES %.3f", jes), line, points)
	}
	return p, nil
}

// WriteLikelihoodPNG renders LikelihoodPlot as a PNG image to w.
func WriteLikelihoodPNG(w io.Writer, g *Grid, yLabel string) error {
	p, err := LikelihoodPlot(g, yLabel)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

// SaveLikelihoodPNG writes LikelihoodPlot to file; the format follows the
// file extension.
func SaveLikelihoodPNG(file string, g *Grid, yLabel string) error {
	p, err := LikelihoodPlot(g, yLabel)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, file); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
