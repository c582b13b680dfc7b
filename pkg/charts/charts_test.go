package charts

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/moodjournal/pkg/views"
)

func sample(n int) views.Series {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := make(views.Series, n)
	for i := range s {
		s[i] = views.Point{Date: start.AddDate(0, 0, i), Value: float64(i%7 - 3)}
	}
	return s
}

func TestRenderLineWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood.png")
	require.NoError(t, RenderLine(sample(20), "Mood, month", path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestRenderSinglePointAndFlatSeries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RenderLine(sample(1), "one", filepath.Join(dir, "one.png")))

	flat := sample(5)
	for i := range flat {
		flat[i].Value = 2
	}
	require.NoError(t, RenderLine(flat, "flat", filepath.Join(dir, "flat.png")))
}

func TestRenderSeveralLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.png")
	err := Render([]Line{
		{Name: "mood", Series: sample(10)},
		{Name: "energy", Series: sample(12)},
		{Name: "empty"},
	}, "Mood and energy", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRenderNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.png")
	assert.ErrorIs(t, RenderLine(nil, "none", path), ErrNoData)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRenderSpectrum(t *testing.T) {
	dir := t.TempDir()
	h := views.Spectrum(sample(30))
	require.NotEmpty(t, h)
	path := filepath.Join(dir, "fft.png")
	require.NoError(t, RenderSpectrum(h, "FFT Mood", path))
	_, err := os.Stat(path)
	assert.NoError(t, err)

	assert.ErrorIs(t, RenderSpectrum(nil, "none", filepath.Join(dir, "none.png")), ErrNoData)
}
