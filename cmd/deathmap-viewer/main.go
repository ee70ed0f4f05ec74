package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/sudorandom/noita-deathmap/pkg/mapengine"
	"github.com/sudorandom/noita-deathmap/pkg/sessions"
	"github.com/sudorandom/noita-deathmap/pkg/utils"
	"github.com/sudorandom/noita-deathmap/pkg/viewer"
)

var cli struct {
	Dir          string `arg:"" optional:"" help:"Noita sessions folder to open on startup. Folders can also be dropped on the window."`
	Map          string `env:"DEATHMAP_MAP" help:"Background map image (file path or http(s) URL). Empty uses a plain backdrop."`
	CacheDir     string `env:"DEATHMAP_CACHE_DIR" default:"data/cache" help:"Where downloaded map images are cached."`
	Out          string `short:"o" default:"${export_name}" help:"File written when pressing S."`
	WindowWidth  int    `default:"1280" help:"Initial window width."`
	WindowHeight int    `default:"760" help:"Initial window height."`
	TPS          int    `name:"tps" default:"30" help:"Ticks per second (engine updates)."`
	Workers      int    `default:"0" help:"Stats files read concurrently (0 = number of CPUs)."`
	Debug        bool   `help:"Log every skipped session file."`
}

var vars = kong.Vars{"export_name": mapengine.DefaultExportName}

func main() {
	kong.Parse(&cli,
		kong.Name("deathmap-viewer"),
		kong.Description("Interactive map of Noita deaths."),
		kong.UsageOnError(),
		vars,
	)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	utils.CacheDir = cli.CacheDir

	renderer := mapengine.NewRenderer()
	if err := renderer.LoadBackground(cli.Map); err != nil {
		log.Printf("Failed to load map image, showing statistics only: %v", err)
	}

	engine := viewer.NewEngine(renderer, &sessions.Collector{Workers: cli.Workers, Verbose: cli.Debug})
	engine.ExportPath = cli.Out
	if cli.Dir != "" {
		engine.Open(filepath.Base(cli.Dir), os.DirFS(cli.Dir))
	}

	ebiten.SetTPS(cli.TPS)
	ebiten.SetWindowSize(cli.WindowWidth, cli.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("Noita Death Map")
	if err := ebiten.RunGame(engine); err != nil {
		log.Fatal(err)
	}
}
