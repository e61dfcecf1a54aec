package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum pads data with zeros to the next power of two and returns
// the magnitude of the lower half of its transform. The mean is removed
// first so bin 0 does not swamp the plot.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	padded := make([]float64, nextPow2(len(data)))
	for i, v := range data {
		padded[i] = v - mean
	}

	spectrum := fft.FFTReal(padded)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency of the strongest bin above zero
// for samples taken every dt seconds, with its magnitude.
func DominantFrequency(data []float64, dt float64) (hz, power float64) {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || dt <= 0 {
		return 0, 0
	}

	maxIdx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > power {
			power = ps[i]
			maxIdx = i
		}
	}

	n := 2 * len(ps)
	return float64(maxIdx) / (float64(n) * dt), power
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
