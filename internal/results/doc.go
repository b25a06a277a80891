// Package results defines the contract between post-processing code and the
// output of a particle/biomass simulation run.
//
// The package declares the provider interfaces and the value types they
// exchange:
//
//   - [Reader]: everything a run exposes, composed of smaller readers
//   - [TimeReader], [ConcentrationReader], [BiomassReader], [PopulationReader],
//     [ProbeReader], [EventReader]: narrow capabilities accepted by analysis code
//   - [Field3]: a steps × compartments × species field
//   - [Histogram]: bin edges and counts with len(Edges) == len(Counts)+1
//   - [Tallies]: Monte-Carlo event counters in rows of six
//
// # Errors
//
// Lookup failures are reported as [*LookupError] values wrapping one of the
// sentinel errors, so callers match them with errors.Is:
//
//	_, err := run.Properties("mass", 42)
//	if errors.Is(err, results.ErrOutOfRange) {
//	    // export step does not exist
//	}
//
// A concrete provider backed by files lives in package resultfile.
package results
