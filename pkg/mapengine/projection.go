package mapengine

import "github.com/sudorandom/noita-deathmap/pkg/sessions"

// Calibration of the reference map image. The offsets are the pixel position of the
// world origin and Scale is world units per pixel.
const (
	MapWidth  = 8417
	MapHeight = 5000
	MapScale  = 3.7
	OffsetX   = 3910
	OffsetY   = 480
)

// Point is a position in map pixel space.
type Point struct {
	X, Y float64
}

// Projector maps world coordinates onto the background image.
type Projector struct {
	Scale            float64
	OffsetX, OffsetY float64
}

var DefaultProjector = Projector{Scale: MapScale, OffsetX: OffsetX, OffsetY: OffsetY}

// Project applies the affine transform. Results are not clamped to the image.
func (p Projector) Project(r sessions.Record) Point {
	return Point{
		X: r.X/p.Scale + p.OffsetX,
		Y: r.Y/p.Scale + p.OffsetY,
	}
}
