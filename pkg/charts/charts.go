// Package charts renders daily series and their spectra as PNG line charts.
package charts

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/entrhq/moodjournal/pkg/views"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("charts: no data")

const (
	width        = 800
	height       = 480
	marginLeft   = 56
	marginRight  = 24
	marginTop    = 40
	marginBottom = 48
	xTicks       = 6
	yTicks       = 6
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	axisColor  = color.RGBA{0x33, 0x33, 0x33, 0xff}
	gridColor  = color.RGBA{0xe5, 0xe5, 0xe5, 0xff}
	textColor  = color.RGBA{0x22, 0x22, 0x22, 0xff}
	palette    = []color.RGBA{
		{0x1f, 0x77, 0xb4, 0xff},
		{0xff, 0x7f, 0x0e, 0xff},
		{0x2c, 0xa0, 0x2c, 0xff},
		{0xd6, 0x27, 0x28, 0xff},
		{0x94, 0x67, 0xbd, 0xff},
	}
)

// Line is one named series on a chart.
type Line struct {
	Name   string
	Series views.Series
}

// RenderLine draws a single series with a title and writes it to path.
func RenderLine(s views.Series, title, path string) error {
	return Render([]Line{{Name: title, Series: s}}, title, path)
}

// Render draws lines on a shared time axis and writes a PNG to path.
// Glyphs outside the ASCII range are not drawn.
func Render(lines []Line, title, path string) error {
	loc := time.Local
	curves := lo.Map(lines, func(l Line, _ int) curve {
		if len(l.Series) > 0 {
			loc = l.Series[0].Date.Location()
		}
		return curve{name: l.Name, points: lo.Map(l.Series, func(p views.Point, _ int) xy {
			return xy{x: float64(p.Date.Unix()), y: p.Value}
		})}
	})
	return plot(curves, title, path, func(x float64) string {
		return time.Unix(int64(math.Round(x)), 0).In(loc).Format("02.01")
	})
}

// RenderSpectrum draws an amplitude spectrum against frequency in cycles
// per day and writes a PNG to path.
func RenderSpectrum(h []views.Harmonic, title, path string) error {
	points := lo.Map(h, func(x views.Harmonic, _ int) xy {
		return xy{x: x.Frequency, y: x.Amplitude}
	})
	return plot([]curve{{name: title, points: points}}, title, path, func(x float64) string {
		return strconv.FormatFloat(x, 'f', 2, 64)
	})
}

type xy struct{ x, y float64 }

type curve struct {
	name   string
	points []xy
}

func plot(curves []curve, title, path string, xLabel func(float64) string) error {
	curves = lo.Filter(curves, func(c curve, _ int) bool { return len(c.points) > 0 })
	if len(curves) == 0 {
		return ErrNoData
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	points := lo.FlatMap(curves, func(c curve, _ int) []xy { return c.points })
	xs := lo.Map(points, func(p xy, _ int) float64 { return p.x })
	ys := lo.Map(points, func(p xy, _ int) float64 { return p.y })
	minX, maxX := lo.Min(xs), lo.Max(xs)
	minV, maxV := lo.Min(ys), lo.Max(ys)
	if minV == maxV {
		minV, maxV = minV-1, maxV+1
	}

	area := image.Rect(marginLeft, marginTop, width-marginRight, height-marginBottom)
	span := maxX - minX
	project := func(p xy) image.Point {
		fx := 0.5
		if span > 0 {
			fx = (p.x - minX) / span
		}
		fy := (p.y - minV) / (maxV - minV)
		return image.Point{
			X: area.Min.X + int(math.Round(fx*float64(area.Dx()))),
			Y: area.Max.Y - int(math.Round(fy*float64(area.Dy()))),
		}
	}

	for i := 0; i <= yTicks; i++ {
		v := minV + (maxV-minV)*float64(i)/yTicks
		y := area.Max.Y - int(math.Round(float64(area.Dy())*float64(i)/yTicks))
		hline(img, area.Min.X, area.Max.X, y, gridColor)
		label := strconv.FormatFloat(v, 'f', 1, 64)
		drawText(img, area.Min.X-8-textWidth(label), y+4, label)
	}
	for i := 0; i <= xTicks; i++ {
		x := area.Min.X + area.Dx()*i/xTicks
		vline(img, x, area.Min.Y, area.Max.Y, gridColor)
		label := xLabel(minX + span*float64(i)/xTicks)
		drawText(img, x-textWidth(label)/2, area.Max.Y+18, label)
	}
	hline(img, area.Min.X, area.Max.X, area.Max.Y, axisColor)
	vline(img, area.Min.X, area.Min.Y, area.Max.Y, axisColor)

	for i, c := range curves {
		col := palette[i%len(palette)]
		prev := project(c.points[0])
		dot(img, prev, col)
		for _, p := range c.points[1:] {
			cur := project(p)
			segment(img, prev, cur, col)
			dot(img, cur, col)
			prev = cur
		}
		if len(curves) > 1 {
			y := marginTop + 14*i
			fill(img, image.Rect(area.Max.X-120, y-8, area.Max.X-110, y+2), col)
			drawText(img, area.Max.X-104, y, c.name)
		}
	}
	drawText(img, (width-textWidth(title))/2, marginTop-16, title)

	return writePNG(img, path)
}

func writePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("charts: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("charts: encode: %w", err)
	}
	return f.Close()
}

var face = basicfont.Face7x13

func textWidth(s string) int {
	return font.MeasureString(face, s).Round()
}

func drawText(img draw.Image, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func hline(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

func dot(img *image.RGBA, p image.Point, c color.Color) {
	fill(img, image.Rect(p.X-2, p.Y-2, p.X+3, p.Y+3), c)
}

// segment draws a two pixel wide line with Bresenham's algorithm.
func segment(img *image.RGBA, a, b image.Point, c color.Color) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	err := dx + dy
	x, y := a.X, a.Y
	for {
		img.Set(x, y, c)
		img.Set(x, y+1, c)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
