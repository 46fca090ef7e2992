package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"epochcap/internal/schema"
)

// Style holds the colours used for a frame. The trace must contrast with the
// background.
type Style struct {
	Background color.RGBA
	Trace      color.RGBA
	Label      color.RGBA
}

// DefaultStyle is a white trace on black.
func DefaultStyle() Style {
	return Style{
		Background: color.RGBA{A: 0xff},
		Trace:      color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Label:      color.RGBA{R: 0x9a, G: 0xc8, B: 0xff, A: 0xff},
	}
}

// farLimit bounds projected coordinates so they stay finite and convert to
// int. A segment clipped to a band is unchanged to the pixel at this distance.
const farLimit = 1e12

type fpoint struct{ x, y float64 }

// Project maps samples to pixel positions inside rect. The first and last
// samples sit on the left and right edges. With a fixed range, min and max
// land two pixels inside the bottom and top edges and values outside the
// range extrapolate past them. Without one, the window is scaled so its peak
// magnitude touches the same margin around the vertical centre.
func Project(rect image.Rectangle, samples []float64, rng *schema.Range) []image.Point {
	fpts := project(rect, samples, rng)
	if fpts == nil {
		return nil
	}
	pts := make([]image.Point, len(fpts))
	for i, p := range fpts {
		pts[i] = image.Point{X: int(p.x), Y: int(p.y)}
	}
	return pts
}

func project(rect image.Rectangle, samples []float64, rng *schema.Range) []fpoint {
	n := len(samples)
	if n == 0 || rect.Empty() {
		return nil
	}
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	span := float64(max(1, n-1))

	var yOf func(v float64) float64
	if rng != nil && rng.Max != rng.Min {
		lo, hi := rng.Min, rng.Max
		yOf = func(v float64) float64 {
			t := (v - lo) / (hi - lo)
			return h - (t*(h-4) + 2)
		}
	} else {
		norm := 0.0
		for _, v := range samples {
			norm = math.Max(norm, math.Abs(finite(v)))
		}
		if norm == 0 {
			norm = 1
		}
		yOf = func(v float64) float64 {
			return h/2 - v/norm*(h/2-2)
		}
	}

	pts := make([]fpoint, n)
	for i, v := range samples {
		x := math.Floor(float64(i) / span * (w - 1))
		y := math.Floor(yOf(finite(v)))
		if math.IsNaN(y) {
			y = 0
		}
		y = math.Max(-farLimit, math.Min(farLimit, y))
		pts[i] = fpoint{x: float64(rect.Min.X) + x, y: float64(rect.Min.Y) + y}
	}
	return pts
}

// Rasterize fills rect with the background and draws the samples as a
// one-pixel polyline clipped to rect. An empty window leaves only the fill.
func Rasterize(dst draw.Image, rect image.Rectangle, samples []float64, rng *schema.Range, style Style) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(style.Background), image.Point{}, draw.Src)

	pts := project(rect, samples, rng)
	switch len(pts) {
	case 0:
		return
	case 1:
		plot(dst, rect, int(pts[0].x), int(pts[0].y), style.Trace)
		return
	}
	for i := 1; i < len(pts); i++ {
		a, b, ok := clipSegment(pts[i-1], pts[i], rect)
		if !ok {
			continue
		}
		drawLine(dst, rect, a, b, style.Trace)
	}
}

// clipSegment trims the segment a-b to the pixel centres of clip
// (Liang-Barsky). Endpoints already inside clip are returned unchanged.
func clipSegment(a, b fpoint, clip image.Rectangle) (image.Point, image.Point, bool) {
	minX, minY := float64(clip.Min.X), float64(clip.Min.Y)
	maxX, maxY := float64(clip.Max.X-1), float64(clip.Max.Y-1)
	dx, dy := b.x-a.x, b.y-a.y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.x - minX},
		{dx, maxX - a.x},
		{-dy, a.y - minY},
		{dy, maxY - a.y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return image.Point{}, image.Point{}, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return image.Point{}, image.Point{}, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return image.Point{}, image.Point{}, false
			}
			t1 = math.Min(t1, r)
		}
	}
	at := func(t float64) image.Point {
		switch t {
		case 0:
			return image.Point{X: int(a.x), Y: int(a.y)}
		case 1:
			return image.Point{X: int(b.x), Y: int(b.y)}
		}
		return image.Point{X: int(math.Round(a.x + t*dx)), Y: int(math.Round(a.y + t*dy))}
	}
	return at(t0), at(t1), true
}

// drawLine walks a Bresenham line from a to b, setting only pixels inside clip.
func drawLine(dst draw.Image, clip image.Rectangle, a, b image.Point, c color.RGBA) {
	x1, y1, x2, y2 := a.X, a.Y, b.X, b.Y
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		plot(dst, clip, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func plot(dst draw.Image, clip image.Rectangle, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(clip) {
		return
	}
	if rgba, ok := dst.(*image.RGBA); ok {
		rgba.SetRGBA(x, y, c)
		return
	}
	dst.Set(x, y, c)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
