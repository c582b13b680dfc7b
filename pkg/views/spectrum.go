package views

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Harmonic is the amplitude of one frequency of a daily series.
type Harmonic struct {
	// Frequency is in cycles per day.
	Frequency float64
	Amplitude float64
}

// Spectrum returns the amplitude spectrum of a date-ordered daily series.
// Days missing between the first and last point are filled by linear
// interpolation, and the mean of the observed values is removed before the
// transform. The zero frequency is left out.
func Spectrum(s Series) []Harmonic {
	y := interpolateDaily(s)
	if len(y) < 2 {
		return nil
	}
	mean := lo.SumBy(s, func(p Point) float64 { return p.Value }) / float64(len(s))
	for i := range y {
		y[i] -= mean
	}

	fft := fourier.NewFFT(len(y))
	coeff := fft.Coefficients(nil, y)
	return lo.Map(coeff[1:], func(c complex128, i int) Harmonic {
		return Harmonic{Frequency: fft.Freq(i + 1), Amplitude: cmplx.Abs(c)}
	})
}

// interpolateDaily returns one value per day from the first to the last
// point of s.
func interpolateDaily(s Series) []float64 {
	if len(s) == 0 {
		return nil
	}
	first := dayOf(s[0].Date)
	n := daysSince(first, s[len(s)-1].Date) + 1
	if n < 1 {
		return nil
	}
	y := make([]float64, n)
	for i := 0; i+1 < len(s); i++ {
		a, b := s[i], s[i+1]
		da, db := daysSince(first, a.Date), daysSince(first, b.Date)
		for d := max(da, 0); d < db && d < n; d++ {
			y[d] = a.Value + (b.Value-a.Value)*float64(d-da)/float64(db-da)
		}
	}
	y[n-1] = s[len(s)-1].Value
	return y
}

// daysSince counts calendar days from day to t; rounding absorbs DST shifts.
func daysSince(day, t time.Time) int {
	return int(math.Round(dayOf(t).Sub(day).Hours() / 24))
}
