// Package physics provides reference implementations of the collaborators
// a likelihood scan plugs into topmass.ScanContext: the kinematic solvers,
// a Gaussian jet response, selection efficiencies, the leading-order top
// width and toy matrix-element and structure-function weights. It also
// generates synthetic lepton+jets events from the same response model.
//
// The models are deliberately simple. They are complete enough to drive
// real scans end to end and to test the integrator against known inputs,
// and are meant to be replaced by detector-specific parameterisations.
package physics
