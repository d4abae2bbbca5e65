package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorEvents(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig(), 7)
	events := g.Events("gen", 50)
	require.Len(t, events, 50)

	tagged := 0
	for i := range events {
		ev := &events[i]
		require.NoError(t, ev.Validate())
		require.Len(t, ev.Jets, 4)
		assert.Contains(t, []int{-1, 1}, ev.Lepton.Charge())
		for k := 1; k < len(ev.Jets); k++ {
			assert.GreaterOrEqual(t, ev.Jets[k-1].Pt(), ev.Jets[k].Pt(), "jets are pT ordered")
		}
		for _, j := range ev.Jets {
			if j.Info().Tagged {
				tagged++
			}
		}
	}
	assert.Equal(t, "gen-0", events[0].ID)
	assert.Equal(t, "gen-49", events[49].ID)
	// 2 b jets at 40% and 2 light jets at 2% per event
	assert.InDelta(t, 50*(2*0.4+2*0.02), float64(tagged), 20)
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(DefaultGeneratorConfig(), 3).Events("e", 5)
	b := NewGenerator(DefaultGeneratorConfig(), 3).Events("e", 5)
	assert.Equal(t, a, b)

	c := NewGenerator(DefaultGeneratorConfig(), 4).Events("e", 5)
	assert.NotEqual(t, a[0].Lepton.Pt(), c[0].Lepton.Pt())
}

func TestGeneratorJESScalesJets(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Transfer = GaussianTransfer{}
	nominal := NewGenerator(cfg, 11).Event("nominal")
	cfg.JES = 1.5
	scaled := NewGenerator(cfg, 11).Event("scaled")

	for k := range nominal.Jets {
		assert.InEpsilon(t, 1.5*nominal.Jets[k].Pt(), scaled.Jets[k].Pt(), 1e-12)
		assert.InDelta(t, nominal.Jets[k].Eta(), scaled.Jets[k].Eta(), 1e-12)
	}
	assert.Equal(t, nominal.Lepton.Pt(), scaled.Lepton.Pt())
}

func TestGeneratorPartonMasses(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Transfer = GaussianTransfer{}
	g := NewGenerator(cfg, 5)
	for i := 0; i < 20; i++ {
		ev := g.Event("m")
		var heavy, light int
		for _, j := range ev.Jets {
			switch {
			case nearly(j.M(), cfg.BMass):
				heavy++
			case nearly(j.M(), cfg.LightMass):
				light++
			}
		}
		assert.Equal(t, 2, heavy)
		assert.Equal(t, 2, light)
		assert.InDelta(t, 0, ev.Lepton.M(), 1e-3)
	}
}

func nearly(a, b float64) bool { return a > b-1e-3 && a < b+1e-3 }
