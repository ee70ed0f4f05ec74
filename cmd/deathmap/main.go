package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/sudorandom/noita-deathmap/pkg/mapengine"
	"github.com/sudorandom/noita-deathmap/pkg/sessions"
	"github.com/sudorandom/noita-deathmap/pkg/stats"
	"github.com/sudorandom/noita-deathmap/pkg/utils"
)

var stdout io.Writer = os.Stdout

var vars = kong.Vars{"export_name": mapengine.DefaultExportName}

type Globals struct {
	Debug   bool `help:"Log every skipped session file."`
	Workers int  `default:"0" help:"Stats files read concurrently (0 = number of CPUs)."`
}

func (g *Globals) collect(ctx context.Context, dir string) ([]sessions.Record, error) {
	c := &sessions.Collector{Workers: g.Workers, Verbose: g.Debug}
	return c.Collect(ctx, os.DirFS(dir))
}

type RenderCmd struct {
	Dir      string `arg:"" help:"Noita sessions folder."`
	Out      string `short:"o" default:"${export_name}" help:"PNG file to write."`
	Map      string `env:"DEATHMAP_MAP" help:"Background map image (file path or http(s) URL). Empty uses a plain backdrop."`
	CacheDir string `env:"DEATHMAP_CACHE_DIR" default:"data/cache" help:"Where downloaded map images are cached."`
	NoStats  bool   `help:"Do not print the cause of death ranking."`
}

func (c *RenderCmd) Run(ctx context.Context, g *Globals) error {
	records, err := g.collect(ctx, c.Dir)
	if err != nil {
		return err
	}
	state := mapengine.NewState(records)

	utils.CacheDir = c.CacheDir
	renderer := mapengine.NewRenderer()
	mapErr := renderer.LoadBackground(c.Map)

	if !c.NoStats {
		if err := stats.Write(stdout, state.Ranked); err != nil {
			return err
		}
	}
	if mapErr != nil {
		return mapErr
	}

	img, err := renderer.Render(state.Records)
	if err != nil {
		return err
	}
	if err := mapengine.ExportPNG(c.Out, img); err != nil {
		return err
	}
	log.Printf("Plotted %d deaths", len(state.Records))
	return nil
}

type StatsCmd struct {
	Dir string `arg:"" help:"Noita sessions folder."`
}

func (c *StatsCmd) Run(ctx context.Context, g *Globals) error {
	records, err := g.collect(ctx, c.Dir)
	if err != nil {
		return err
	}
	return stats.Write(stdout, stats.Rank(stats.Aggregate(records)))
}

type GeoJSONCmd struct {
	Dir string `arg:"" help:"Noita sessions folder."`
	Out string `short:"o" default:"deaths.geojson" help:"GeoJSON file to write."`
}

func (c *GeoJSONCmd) Run(ctx context.Context, g *Globals) error {
	records, err := g.collect(ctx, c.Dir)
	if err != nil {
		return err
	}
	return mapengine.ExportGeoJSON(c.Out, records, mapengine.DefaultProjector)
}

var cli struct {
	Globals `embed:""`

	Render  RenderCmd  `cmd:"" help:"Plot deaths on the map and save it as PNG."`
	Stats   StatsCmd   `cmd:"" help:"Print causes of death ranked by frequency."`
	GeoJSON GeoJSONCmd `cmd:"" name:"geojson" help:"Export deaths as a GeoJSON FeatureCollection."`
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx := kong.Parse(&cli,
		kong.Name("deathmap"),
		kong.Description("Plot where your Noita runs ended and what ended them."),
		kong.UsageOnError(),
		vars,
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}
