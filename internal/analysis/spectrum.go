package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns |X_k|²/n for k = 0..n/2 of the mean-removed series.
func PowerSpectrum(x []float64) []float64 {
	n := len(x)
	if n < 2 {
		return nil
	}
	mean := stat.Mean(x, nil)
	centered := make([]float64, n)
	for i, v := range x {
		centered[i] = v - mean
	}
	spectrum := fft.FFTReal(centered)
	ps := make([]float64, n/2+1)
	for k := range ps {
		a := cmplx.Abs(spectrum[k])
		ps[k] = a * a / float64(n)
	}
	return ps
}

// DominantPeriod returns the period of the strongest nonzero frequency of a
// series sampled every dt, or 0 for a flat series.
func DominantPeriod(x []float64, dt float64) float64 {
	ps := PowerSpectrum(x)
	best, bestK := 0.0, 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > best {
			best, bestK = ps[k], k
		}
	}
	if bestK == 0 {
		return 0
	}
	return float64(len(x)) * dt / float64(bestK)
}
