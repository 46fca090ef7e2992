package render

import (
	"fmt"
	"strings"
)

// Size is an output resolution in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Export targets.
var (
	Wide = Size{Width: 1920, Height: 1080}
	Tall = Size{Width: 1080, Height: 1920}
)

// PreviewWidth is the row width of the live viewer strip.
const PreviewWidth = 1080

// SizeFor resolves a frame preset name. Custom frames take the explicit
// dimensions.
func SizeFor(frame string, width, height int) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(frame)) {
	case "", "wide":
		return Wide, nil
	case "tall":
		return Tall, nil
	case "custom":
		if width <= 0 || height <= 0 {
			return Size{}, fmt.Errorf("custom frame needs positive width and height (got %dx%d)", width, height)
		}
		return Size{Width: width, Height: height}, nil
	default:
		return Size{}, fmt.Errorf("unknown frame %q", frame)
	}
}
