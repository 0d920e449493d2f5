// Package simulation runs bone sample scenarios over simulated days.
//
// A Scenario fixes the environment (with optional phases and per-replicate
// variation), scheduled mechanical loads, initial crystal substitutions and
// model policies. The Runner steps a fresh tissue.Sample through it, records
// a Snapshot per step, and hands the finished run to the configured store,
// exporter, metrics and event log. Replicates run in parallel; each owns its
// sample.
//
// Scenarios load from YAML:
//
//	name: loaded-growth
//	days: 60
//	step_days: 1
//	environment: {ph: 7.4, temperature: 37, oxygen: 0.9}
//	loads:
//	  - every_days: 7
//	    force: {z: 8}
//	    duration_s: 3600
//	replicates: 4
//	variation: {seed: 42, oxygen: 0.05}
//
// Tests can use the Assert helpers against a finished run:
//
//	func TestLoadedGrowth(t *testing.T) {
//	    run, err := simulation.NewRunner().Run(ctx, sc)
//	    ...
//	    simulation.AssertStrengthBounded(t, run)
//	    simulation.AssertCrosslinksMonotonic(t, run)
//	}
package simulation
