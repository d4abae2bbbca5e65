package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis is the heatmap colour ramp.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Heatmap builds a (mass, JES) heatmap of g. Non-finite cells are left
// empty.
func Heatmap(g *Grid, valueLabel string) *charts.HeatMap {
	xs := make([]string, len(g.Masses))
	for i, m := range g.Masses {
		xs[i] = strconv.FormatFloat(m, 'g', 6, 64)
	}
	ys := make([]string, len(g.JES))
	for i, j := range g.JES {
		ys[i] = strconv.FormatFloat(j, 'g', 6, 64)
	}

	data := make([]opts.HeatMapData, 0, len(g.Values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for im := range g.Masses {
		for ij := range g.JES {
			v := g.Values[im*len(g.JES)+ij]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{im, ij, "-"}})
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{im, ij, v}})
		}
	}
	if lo > hi {
		lo, hi = 0, 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: g.Title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: g.Title, Subtitle: fmt.Sprintf("%d masses × %d JES", len(g.Masses), len(g.JES))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "Top mass (GeV)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "JES", NameLocation: "middle", NameGap: 45}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Text:       []string{valueLabel},
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.AddSeries(valueLabel, data)
	return hm
}

// WriteLikelihoodHTML renders one heatmap page per grid to w.
func WriteLikelihoodHTML(w io.Writer, valueLabel string, grids ...*Grid) error {
	page := components.NewPage().SetPageTitle("topmass likelihood")
	for _, g := range grids {
		page.AddCharts(Heatmap(g, valueLabel))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	return nil
}
