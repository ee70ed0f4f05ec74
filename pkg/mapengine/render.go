// Package mapengine draws death markers onto the Noita world map and exports the result.
package mapengine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/vector"
	_ "golang.org/x/image/webp"

	"github.com/sudorandom/noita-deathmap/pkg/sessions"
	"github.com/sudorandom/noita-deathmap/pkg/utils"
)

var ErrMapUnavailable = errors.New("map image unavailable")

var (
	ColorMarkerFill   = color.RGBA{255, 255, 255, 255} // White
	ColorMarkerStroke = color.RGBA{255, 0, 0, 255}     // Red
	ColorBackdrop     = color.RGBA{8, 10, 15, 255}
)

// MarkerStyle describes the circle drawn at every death. The stroke is centred on the
// circle outline, half inside and half outside Radius.
type MarkerStyle struct {
	Radius      float64
	StrokeWidth float64
	Fill        color.Color
	Stroke      color.Color
}

var DefaultMarker = MarkerStyle{
	Radius:      20,
	StrokeWidth: 10,
	Fill:        ColorMarkerFill,
	Stroke:      ColorMarkerStroke,
}

// Renderer owns the background image and draws marker layers on copies of it.
type Renderer struct {
	Width, Height int
	Projector     Projector
	Marker        MarkerStyle

	background image.Image
}

func NewRenderer() *Renderer {
	return &Renderer{
		Width:     MapWidth,
		Height:    MapHeight,
		Projector: DefaultProjector,
		Marker:    DefaultMarker,
	}
}

// LoadBackground loads the map from a file path or an http(s) URL. URLs are cached in
// utils.CacheDir. An empty src selects a plain generated backdrop.
func (r *Renderer) LoadBackground(src string) error {
	if src == "" {
		r.background = GenerateBackdrop(r.Width, r.Height)
		return nil
	}

	var rc io.ReadCloser
	var err error
	if utils.IsURL(src) {
		rc, err = utils.OpenCached(src, "[MAP]")
	} else {
		rc, err = os.Open(src)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapUnavailable, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Printf("[MAP] Error closing %s: %v", src, err)
		}
	}()
	return r.DecodeBackground(rc)
}

// DecodeBackground decodes a PNG, JPEG, GIF, BMP or WebP map image.
func (r *Renderer) DecodeBackground(rd io.Reader) error {
	img, format, err := image.Decode(rd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapUnavailable, err)
	}
	b := img.Bounds()
	if b.Dx() != r.Width || b.Dy() != r.Height {
		log.Printf("[MAP] %s background is %dx%d, calibrated for %dx%d", format, b.Dx(), b.Dy(), r.Width, r.Height)
	}
	r.background = img
	return nil
}

// Ready reports whether a background has been loaded.
func (r *Renderer) Ready() bool {
	return r.background != nil
}

// GenerateBackdrop returns a solid canvas used when no map image is configured.
func GenerateBackdrop(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{ColorBackdrop}, image.Point{}, draw.Src)
	return img
}

// Render draws the background at the origin and one marker per record on a fresh
// canvas of Width x Height. Markers falling outside the canvas are clipped.
func (r *Renderer) Render(records []sessions.Record) (*image.RGBA, error) {
	if r.background == nil {
		return nil, ErrMapUnavailable
	}
	canvas := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	bb := r.background.Bounds()
	draw.Draw(canvas, bb.Sub(bb.Min), r.background, bb.Min, draw.Over)

	for _, rec := range records {
		drawMarker(canvas, r.Projector.Project(rec), r.Marker)
	}
	return canvas, nil
}

func drawMarker(dst *image.RGBA, p Point, m MarkerStyle) {
	outer := m.Radius + m.StrokeWidth/2
	bounds := dst.Bounds()
	if p.X+outer < float64(bounds.Min.X) || p.X-outer > float64(bounds.Max.X) ||
		p.Y+outer < float64(bounds.Min.Y) || p.Y-outer > float64(bounds.Max.Y) {
		return
	}

	// Rasterize into a small mask around the marker; a full-canvas rasterizer would
	// need one float32 per canvas pixel.
	ext := int(math.Ceil(outer)) + 1
	ox, oy := int(math.Floor(p.X))-ext, int(math.Floor(p.Y))-ext
	size := 2*ext + 2
	cx, cy := float32(p.X-float64(ox)), float32(p.Y-float64(oy))
	rect := image.Rect(ox, oy, ox+size, oy+size)
	mask := image.NewAlpha(image.Rect(0, 0, size, size))

	z := vector.NewRasterizer(size, size)
	addCircle(z, cx, cy, float32(m.Radius), false)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, rect, image.NewUniform(m.Fill), image.Point{}, mask, image.Point{}, draw.Over)

	if m.StrokeWidth <= 0 {
		return
	}
	clear(mask.Pix)
	z.Reset(size, size)
	addCircle(z, cx, cy, float32(outer), false)
	if inner := m.Radius - m.StrokeWidth/2; inner > 0 {
		addCircle(z, cx, cy, float32(inner), true)
	}
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, rect, image.NewUniform(m.Stroke), image.Point{}, mask, image.Point{}, draw.Over)
}

const circleSegments = 96

// addCircle adds a closed polygonal circle. Reversed circles cut holes out of forward
// ones.
func addCircle(z *vector.Rasterizer, cx, cy, radius float32, reverse bool) {
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		if reverse {
			a = -a
		}
		x := cx + radius*float32(math.Cos(a))
		y := cy + radius*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}
