package physics

import (
	"github.com/banshee-data/topmass/internal/timeutil"
	"github.com/banshee-data/topmass/internal/topmass"
)

// DefaultBQuarkMass is the b-quark mass used when neither the event nor
// the configuration sets one (GeV).
const DefaultBQuarkMass = 4.7

// NewContext wires the reference collaborators into a scan context for
// the given integration parameters. The parton-loss factor is attached
// only when the parameters ask for it.
func NewContext(p topmass.IntegrationParams, clock timeutil.Clock) topmass.ScanContext {
	turnOn := DefaultTurnOn()
	ctx := topmass.ScanContext{
		BQuarkMass:        DefaultBQuarkMass,
		HadronicW:         WSolver{},
		HadronicTop:       TopSolver{},
		Leptonic:          NewLeptonicSolver(p.SqrtS / 2),
		Transfer:          DefaultTransfer(),
		Efficiency:        turnOn,
		Acquisition:       Acquisition{TurnOn: turnOn, ExtraJetRate: 0.3},
		MatrixElement:     ToyMatrixElement{},
		StructureFunction: ToyStructureFunction{Power: 5},
		TopWidth:          topmass.TopWidthFunc(TopWidthLO),
		Clock:             clock,
	}
	if p.PartonLoss == topmass.PartonLossFactor {
		ctx.PartonLoss = LossFactor{TurnOn: turnOn}
	}
	return ctx
}
