package viewer

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sudorandom/noita-deathmap/pkg/mapengine"
	"github.com/sudorandom/noita-deathmap/pkg/stats"
)

var (
	colorPanel  = color.RGBA{0, 0, 0, 170}
	colorBorder = color.RGBA{36, 42, 53, 255}
)

// metrics scales the overlay with the logical screen, which is the full map size.
func (e *Engine) metrics() (margin, fontSize float64) {
	fontSize = float64(e.Height) / 55
	if fontSize < 14 {
		fontSize = 14
	}
	return fontSize * 1.5, fontSize
}

// panelLines fits the ranked list into at most maxLines rows, summarising the rest.
func panelLines(ranked []stats.Entry, maxLines int) []string {
	lines := stats.Lines(ranked)
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) <= maxLines {
		return lines
	}
	hidden := len(lines) - (maxLines - 1)
	return append(lines[:maxLines-1:maxLines-1], fmt.Sprintf("... and %d more", hidden))
}

func (e *Engine) drawStats(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	margin, fontSize := e.metrics()
	spacing := fontSize * 1.4
	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	titleFace := &text.GoTextFace{Source: e.fontSource, Size: fontSize * 0.8}

	maxLines := int((float64(e.Height) - 4*margin) / spacing)
	lines := panelLines(e.state.Ranked, maxLines)

	boxW := fontSize * 16
	for _, line := range lines {
		if tw, _ := text.Measure(line, face, 0); tw+fontSize*2 > boxW {
			boxW = tw + fontSize*2
		}
	}
	boxH := spacing*float64(len(lines)) + fontSize*3
	x, y := margin, margin

	vector.DrawFilledRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), colorPanel, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), float32(fontSize/10), colorBorder, false)
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(fontSize/4), float32(fontSize*1.8), mapengine.ColorMarkerStroke, false)

	titleOp := &text.DrawOptions{}
	titleOp.GeoM.Translate(x+fontSize, y+fontSize*0.5)
	titleOp.ColorScale.Scale(1, 1, 1, 0.6)
	text.Draw(screen, stats.Heading, titleFace, titleOp)

	for i, line := range lines {
		op := &text.DrawOptions{}
		op.GeoM.Translate(x+fontSize, y+fontSize*2.2+float64(i)*spacing)
		op.ColorScale.Scale(1, 1, 1, 0.9)
		text.Draw(screen, line, face, op)
	}
}

func (e *Engine) hint() string {
	if time.Since(e.messageAt) < 5*time.Second && e.message != "" {
		return e.message
	}
	if e.state.MapReady {
		return fmt.Sprintf("%d deaths plotted   S: save %s   R: reload", len(e.state.Records), e.ExportPath)
	}
	if e.sourceFS != nil {
		return "Map image unavailable, statistics only"
	}
	return "Drop your Noita sessions folder here"
}

func (e *Engine) drawHint(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	margin, fontSize := e.metrics()
	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	msg := e.hint()
	tw, _ := text.Measure(msg, face, 0)

	x, y := margin, float64(e.Height)-margin-fontSize*2
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(tw+fontSize*2), float32(fontSize*2), colorPanel, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(x+fontSize, y+fontSize*0.4)
	op.ColorScale.Scale(1, 1, 1, 0.8)
	text.Draw(screen, msg, face, op)
}
