// Package topmass computes per-event likelihood curves for the top-quark
// mass and the jet energy scale in lepton+jets ttbar events.
//
// The likelihood at every (mass, JES) grid point is an integral of the
// event kinematics over a nuisance-parameter phase space. The integral is
// estimated by quasi-random Monte-Carlo sampling, separately for every
// jet-to-parton assignment hypothesis, and refined in scan cycles until a
// relative-precision target, a point budget or a wall-clock budget is hit.
//
// Components, leaf first:
//
//   - NormAccumulator: running weighted mean and error.
//   - Hypotheses / Permutations: jet-to-role assignments.
//   - PermutationWeights: per-hypothesis prior weights per JES point.
//   - GridCache: cached, coverage-filtered quasi-random point sets.
//   - LSideMask: reachability mask of the leptonic side.
//   - wMassIntegrator: leptonic W-mass integration with boundary handling.
//   - sampleEvaluator: one quasi-random point to per-JES event weights.
//   - Engine.Scan and judge: the scan-cycle state machine.
//
// Kinematic solvers, transfer functions and the other physics ingredients
// are supplied by the caller through the interfaces in ScanContext.
//
// An Engine is single-threaded. Run independent Engines to scan events
// concurrently.
package topmass
