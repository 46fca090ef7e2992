package render

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"epochcap/internal/dataset"
	"epochcap/internal/epoch"
	"epochcap/internal/schema"
)

// Composer renders whole frames for one dataset epoch.
type Composer struct {
	Schema schema.Schema
	Size   Size
	Style  Style
	// Labels draws each row's name in the top-left corner of its band.
	Labels bool
}

// NewComposer returns a composer using the default style.
func NewComposer(s schema.Schema, size Size) Composer {
	return Composer{Schema: s, Size: size, Style: DefaultStyle()}
}

// Bands splits height into rows equal horizontal bands. The last band
// absorbs the division remainder so the bands tile height exactly.
func Bands(width, height, rows int) []image.Rectangle {
	if rows <= 0 || width <= 0 || height <= 0 {
		return nil
	}
	rowHeight := max(1, height/rows)
	out := make([]image.Rectangle, rows)
	for i := range out {
		top := i * rowHeight
		bottom := top + rowHeight
		if i == rows-1 {
			bottom = height
		}
		out[i] = image.Rect(0, min(top, height), width, min(bottom, height))
	}
	return out
}

// Compose renders epoch index of ds at the composer's fixed size. Rows that
// resolve to no channel stay background-only.
func (c Composer) Compose(ds *dataset.Dataset, index int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Size.Width, c.Size.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.Style.Background), image.Point{}, draw.Src)

	for i, band := range Bands(c.Size.Width, c.Size.Height, len(c.Schema)) {
		c.drawRow(img, band, ds, i, index)
	}
	return img
}

// Preview renders the viewer strip: rows stacked at their display heights,
// each width pixels wide.
func (c Composer) Preview(ds *dataset.Dataset, index, width int) *image.RGBA {
	if width <= 0 {
		width = PreviewWidth
	}
	img := image.NewRGBA(image.Rect(0, 0, width, max(1, c.Schema.TotalHeight())))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.Style.Background), image.Point{}, draw.Src)

	top := 0
	for i, row := range c.Schema {
		band := image.Rect(0, top, width, top+row.Height)
		c.drawRow(img, band, ds, i, index)
		top += row.Height
	}
	return img
}

func (c Composer) drawRow(img *image.RGBA, band image.Rectangle, ds *dataset.Dataset, row, index int) {
	ch := c.Schema.Resolve(ds, row)
	if ch != nil {
		w := epoch.WindowFor(ch.SampleRate, ds.EpochSeconds, index)
		Rasterize(img, band, w.Slice(ch.Samples), c.Schema[row].Range, c.Style)
	}
	if c.Labels && !c.Schema[row].Blank() {
		drawLabel(img, band, c.Schema[row].Name, c.Style)
	}
}

func drawLabel(img *image.RGBA, band image.Rectangle, text string, style Style) {
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	if band.Dy() < ascent {
		return
	}
	dr := &font.Drawer{
		Dst:  img.SubImage(band).(*image.RGBA),
		Src:  image.NewUniform(style.Label),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(band.Min.X + 4), Y: fixed.I(band.Min.Y + ascent)},
	}
	dr.DrawString(text)
}
