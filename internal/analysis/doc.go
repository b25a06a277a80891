// Package analysis derives biomass, concentration and population statistics
// from a simulation run.
//
// Every function accepts the narrowest provider interface from package
// results that it needs, so it works on a single [resultfile.Run], on a
// concatenation of runs, or on an in-memory fake:
//
//   - [TotalBiomass], [LocalBiomass]: biomass concentration per step
//   - [SpatialAverage], [TimeAverage]: concentration averages
//   - [PopulationMeanLoop], [PopulationMeanVectorized]: per-step particle means
//   - [Histogram]: particle property histogram with optional edge scaling
//   - [Estimate], [EstimateTime], [GrowthRate]: Monte-Carlo estimators
//   - [ConcentrationHeterogeneity]: spatial mean, variance and normalized field
//
// # Errors
//
// Errors returned by the provider are passed through unchanged, so callers
// can match them with errors.Is and errors.As:
//
//	mean, err := analysis.PopulationMeanLoop(run, "age")
//	if errors.Is(err, results.ErrUnknownProperty) {
//	    // the run did not export "age"
//	}
//
// Shape checks done locally report [results.ErrShapeMismatch].
//
// [resultfile.Run]: github.com/san-kum/biomcpp/internal/resultfile.Run
package analysis
