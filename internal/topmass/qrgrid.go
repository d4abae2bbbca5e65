package topmass

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext/prng"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// GridKey determines the content of a quasi-random grid. Two scans with
// equal keys draw identical points.
type GridKey struct {
	Method   RandomMethod
	Mask     DimMask
	Points   int
	Seed     uint64
	Coverage [NumDimensions]float64 // central window per dimension; 0 means the full interval
}

// QuasiRandomGrid is an immutable table of points in the open unit
// hypercube, one coordinate per active dimension.
type QuasiRandomGrid struct {
	key  GridKey
	dim  int
	data []float64
}

func (g *QuasiRandomGrid) Key() GridKey { return g.key }
func (g *QuasiRandomGrid) Len() int     { return g.key.Points }
func (g *QuasiRandomGrid) Dim() int     { return g.dim }

// Point returns the i-th point. The slice aliases the grid and must not be
// modified.
func (g *QuasiRandomGrid) Point(i int) []float64 {
	return g.data[i*g.dim : (i+1)*g.dim : (i+1)*g.dim]
}

// GridCache keeps the last built grid and rebuilds it only when the key
// changes. It is not safe for concurrent use.
type GridCache struct {
	grid   *QuasiRandomGrid
	builds int
}

// Builds counts how many grids the cache has generated.
func (c *GridCache) Builds() int { return c.builds }

// Get returns the grid for key. required lists dimensions the caller will
// read; a key whose mask lacks one of them panics.
func (c *GridCache) Get(key GridKey, required DimMask) *QuasiRandomGrid {
	if missing := required &^ key.Mask; missing != 0 {
		panic(fmt.Sprintf("topmass: grid mask %s is missing required dimensions %s", key.Mask, missing))
	}
	if key.Points <= 0 {
		panic(fmt.Sprintf("topmass: grid of %d points", key.Points))
	}
	if c.grid != nil && c.grid.key == key {
		return c.grid
	}
	c.grid = buildGrid(key)
	c.builds++
	return c.grid
}

func coverageWindow(c float64) (lo, hi float64) {
	if c <= 0 || c >= 1 {
		return 0, 1
	}
	return (1 - c) / 2, (1 + c) / 2
}

func buildGrid(key GridKey) *QuasiRandomGrid {
	dims := key.Mask.Dimensions()
	d := len(dims)
	g := &QuasiRandomGrid{key: key, dim: d, data: make([]float64, 0, key.Points*d)}
	if d == 0 {
		return g
	}

	lo := make([]float64, d)
	hi := make([]float64, d)
	acceptance := 1.0
	for i, dim := range dims {
		lo[i], hi[i] = coverageWindow(key.Coverage[dim])
		acceptance *= hi[i] - lo[i]
	}

	m := int(math.Ceil(float64(key.Points)/acceptance*1.1)) + 16
	for {
		batch := sampleBatch(key, m, d)
		g.data = g.data[:0]
		n := 0
		for r := 0; r < m && n < key.Points; r++ {
			row := batch.RawRowView(r)
			if !insideWindows(row, lo, hi) {
				continue
			}
			g.data = append(g.data, row...)
			n++
		}
		if n == key.Points {
			return g
		}
		m *= 2
	}
}

func insideWindows(row, lo, hi []float64) bool {
	for i, v := range row {
		if v <= 0 || v >= 1 || v <= lo[i] || v >= hi[i] {
			return false
		}
	}
	return true
}

// sampleBatch draws m points. The source is reseeded on every call so a
// larger batch extends, rather than replaces, a smaller one for the
// Halton and pseudo-random methods.
func sampleBatch(key GridKey, m, d int) *mat.Dense {
	src := prng.NewMT19937()
	src.Seed(key.Seed)
	batch := mat.NewDense(m, d, nil)
	switch key.Method {
	case RandomHalton:
		samplemv.Halton{Kind: samplemv.Owen, Q: distmv.NewUnitUniform(d, nil), Src: src}.Sample(batch)
	case RandomLatinHypercube:
		samplemv.LatinHypercube{Q: distmv.NewUnitUniform(d, nil), Src: src}.Sample(batch)
	case RandomPseudo:
		rnd := rand.New(src)
		for r := 0; r < m; r++ {
			for c := 0; c < d; c++ {
				batch.Set(r, c, rnd.Float64())
			}
		}
	default:
		panic(fmt.Sprintf("topmass: unknown random method %d", key.Method))
	}
	return batch
}
