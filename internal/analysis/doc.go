// Package analysis summarises the metric series of a finished run.
//
//   - [PowerSpectrum]: magnitude spectrum of a series, zero padded to a power of two
//   - [DominantFrequency]: strongest non-zero bin of the spectrum, in Hz
//   - [SettleTime]: first time after which a series stays at or below a threshold
//   - [Summarize]: peak, mean and final value of a series
//
// # Settling
//
// A pile at rest still jitters a little because every step re-projects
// overlapping bodies, so settling is judged against a threshold rather
// than zero:
//
//	t, ok := analysis.SettleTime(series.Times, series.Values["kinetic"], 1e-4)
//	if !ok {
//	    // still moving at the end of the run
//	}
package analysis
