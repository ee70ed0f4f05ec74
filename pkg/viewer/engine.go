// Package viewer is the interactive map window: drop a sessions folder on it to plot
// the deaths and rank their causes.
package viewer

import (
	"bytes"
	"context"
	"image"
	"io/fs"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sudorandom/noita-deathmap/pkg/mapengine"
	"github.com/sudorandom/noita-deathmap/pkg/sessions"
)

// batchResult is the outcome of processing one folder. gen identifies the request so
// that results of superseded folders can be dropped.
type batchResult struct {
	gen    uint64
	name   string
	fsys   fs.FS
	state  mapengine.State
	canvas *image.RGBA
	err    error
}

type Engine struct {
	Width, Height int
	ExportPath    string

	collector *sessions.Collector
	renderer  *mapengine.Renderer

	// Only touched from the game loop.
	generation uint64
	state      mapengine.State
	canvas     *image.RGBA
	dirty      bool
	sourceName string
	sourceFS   fs.FS
	message    string
	messageAt  time.Time

	results    chan batchResult
	bgImage    *ebiten.Image
	fontSource *text.GoTextFaceSource
}

// NewEngine builds a viewer around a renderer whose background may or may not have
// loaded. Without a background the stats panel still works but saving is disabled.
func NewEngine(renderer *mapengine.Renderer, collector *sessions.Collector) *Engine {
	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Printf("[VIEWER] Failed to load font: %v", err)
	}
	return &Engine{
		Width:      renderer.Width,
		Height:     renderer.Height,
		ExportPath: mapengine.DefaultExportName,
		collector:  collector,
		renderer:   renderer,
		state:      mapengine.NewState(nil),
		results:    make(chan batchResult, 4),
		fontSource: s,
	}
}

// Open starts processing a sessions folder in the background. Only the most recently
// opened folder is ever displayed.
func (e *Engine) Open(name string, fsys fs.FS) {
	e.generation++
	gen := e.generation
	e.notify("Loading " + name + "...")

	go func() {
		res := batchResult{gen: gen, name: name, fsys: fsys}
		records, err := e.collector.Collect(context.Background(), fsys)
		if err != nil {
			res.err = err
			e.results <- res
			return
		}
		res.state = mapengine.NewState(records)
		canvas, err := e.renderer.Render(records)
		if err != nil {
			log.Printf("[VIEWER] Map not rendered: %v", err)
		} else {
			res.canvas = canvas
			res.state.MapReady = true
		}
		e.results <- res
	}()
}

// apply installs a finished batch. Stale and failed batches leave the displayed state
// untouched.
func (e *Engine) apply(res batchResult) bool {
	if res.gen != e.generation {
		log.Printf("[VIEWER] Discarding stale results for %s", res.name)
		return false
	}
	if res.err != nil {
		log.Printf("[VIEWER] Failed to open %s: %v", res.name, res.err)
		e.notify("Could not read " + res.name)
		return false
	}
	e.state = res.state
	e.canvas = res.canvas
	e.sourceName, e.sourceFS = res.name, res.fsys
	e.dirty = true
	e.notify("Loaded " + res.name)
	return true
}

func (e *Engine) notify(msg string) {
	e.message, e.messageAt = msg, time.Now()
}

// Save writes the rendered map to ExportPath.
func (e *Engine) Save() {
	if !e.state.MapReady || e.canvas == nil {
		e.notify("Nothing to save yet")
		return
	}
	canvas, path := e.canvas, e.ExportPath
	e.notify("Saving " + path + "...")
	go func() {
		if err := mapengine.ExportPNG(path, canvas); err != nil {
			log.Printf("[VIEWER] Error saving map: %v", err)
		}
	}()
}

// Reload reprocesses the last folder that loaded successfully.
func (e *Engine) Reload() {
	if e.sourceFS == nil {
		return
	}
	e.Open(e.sourceName, e.sourceFS)
}

// sessionsRoot picks the folder to process from a drop: the dropped files themselves
// when they include stats files, otherwise a single dropped directory.
func sessionsRoot(dropped fs.FS) (fs.FS, string, error) {
	entries, err := fs.ReadDir(dropped, ".")
	if err != nil {
		return nil, "", err
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else if sessions.IsStatsFile(entry.Name()) {
			return dropped, "dropped files", nil
		}
	}
	if len(dirs) == 1 {
		sub, err := fs.Sub(dropped, dirs[0])
		if err != nil {
			return nil, "", err
		}
		return sub, dirs[0], nil
	}
	return dropped, "dropped files", nil
}

func (e *Engine) Update() error {
	if dropped := ebiten.DroppedFiles(); dropped != nil {
		if fsys, name, err := sessionsRoot(dropped); err != nil {
			log.Printf("[VIEWER] Failed to read dropped folder: %v", err)
			e.notify("Could not read the dropped folder")
		} else {
			e.Open(name, fsys)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		e.Save()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		e.Reload()
	}

	for drained := false; !drained; {
		select {
		case res := <-e.results:
			e.apply(res)
		default:
			drained = true
		}
	}

	if e.dirty {
		if e.bgImage != nil {
			e.bgImage.Deallocate()
			e.bgImage = nil
		}
		if e.canvas != nil {
			e.bgImage = ebiten.NewImageFromImage(e.canvas)
		}
		e.dirty = false
	}
	return nil
}

func (e *Engine) Draw(screen *ebiten.Image) {
	screen.Fill(mapengine.ColorBackdrop)
	if e.bgImage != nil {
		screen.DrawImage(e.bgImage, nil)
	}
	e.drawStats(screen)
	e.drawHint(screen)
}

func (e *Engine) Layout(w, h int) (int, int) { return e.Width, e.Height }
