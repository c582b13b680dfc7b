package views

import (
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinusoid(days, period int, amplitude, offset float64, keep func(int) bool) Series {
	start := day("2024-01-01")
	var out Series
	for i := 0; i < days; i++ {
		if !keep(i) {
			continue
		}
		v := offset + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
		out = append(out, Point{Date: start.AddDate(0, 0, i), Value: v})
	}
	return out
}

func everyDay(int) bool { return true }

func TestSpectrumOfSinusoid(t *testing.T) {
	h := Spectrum(sinusoid(64, 8, 2, 5, everyDay))
	require.Len(t, h, 32)

	peak := lo.MaxBy(h, func(a, b Harmonic) bool { return a.Amplitude > b.Amplitude })
	assert.InDelta(t, 0.125, peak.Frequency, 1e-9)
	assert.InDelta(t, 64, peak.Amplitude, 1e-6)
	assert.InDelta(t, 1.0/64, h[0].Frequency, 1e-9)
	assert.InDelta(t, 0.5, h[len(h)-1].Frequency, 1e-9)

	for _, x := range h {
		if x.Frequency != peak.Frequency {
			assert.InDelta(t, 0, x.Amplitude, 1e-6, "frequency %v", x.Frequency)
		}
	}
}

func TestSpectrumFillsMissingDays(t *testing.T) {
	s := sinusoid(64, 16, 1, 0, func(i int) bool { return i%2 == 0 })
	h := Spectrum(s)
	// first to last observed day spans 63 days
	require.Len(t, h, 31)
	peak := lo.MaxBy(h, func(a, b Harmonic) bool { return a.Amplitude > b.Amplitude })
	assert.InDelta(t, 1.0/16, peak.Frequency, 1.0/63)
}

func TestSpectrumTooShort(t *testing.T) {
	assert.Empty(t, Spectrum(nil))
	assert.Empty(t, Spectrum(Series{{Date: day("2024-05-01"), Value: 3}}))
}

func TestInterpolateDaily(t *testing.T) {
	s := Series{
		{Date: day("2024-05-01"), Value: 1},
		{Date: day("2024-05-04"), Value: 4},
		{Date: day("2024-05-05"), Value: 0},
	}
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 0}, interpolateDaily(s), 1e-9)
	assert.Nil(t, interpolateDaily(nil))
}
