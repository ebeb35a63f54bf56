// Package analysis post-processes sampled observables and bead snapshots.
//
// The package includes:
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillations in a sampled series
//   - [BlockStats]: mean and block-averaged standard error of a correlated series
//   - [RadialDistribution]: pair correlation g(r) of a snapshot
//
// # Equilibration
//
// Block averages are only meaningful once the series has relaxed. Drop the
// leading part before summarising:
//
//	s := analysis.BlockStats(values[len(values)/4:], 10)
//	fmt.Printf("T = %.3f ± %.3f\n", s.Mean, s.StdErr)
package analysis
