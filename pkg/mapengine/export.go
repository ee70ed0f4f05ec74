package mapengine

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	geojson "github.com/paulmach/go.geojson"

	"github.com/sudorandom/noita-deathmap/pkg/sessions"
	"github.com/sudorandom/noita-deathmap/pkg/stats"
)

// DefaultExportName is the file name offered for the rendered map.
const DefaultExportName = "noita_map.png"

const exportPerm = 0o644

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	if err := pngEncoder.Encode(bw, img); err != nil {
		return err
	}
	return bw.Flush()
}

// ExportPNG writes the rendered map to path, replacing any existing file only once the
// new one is complete.
func ExportPNG(path string, img image.Image) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodePNG(w, img)
	})
}

// FeatureCollection converts records into GeoJSON points in world coordinates, with the
// projected pixel position and both forms of the cause as properties. Records with an
// infinite coordinate have no position and are left out.
func FeatureCollection(records []sessions.Record, p Projector) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		if math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) {
			continue
		}
		px := p.Project(r)
		f := geojson.NewPointFeature([]float64{r.X, r.Y})
		f.SetProperty("killed_by", r.Cause)
		f.SetProperty("cause", stats.FormatCause(r.Cause))
		f.SetProperty("pixel_x", px.X)
		f.SetProperty("pixel_y", px.Y)
		fc.AddFeature(f)
	}
	return fc
}

// ExportGeoJSON writes the records as a GeoJSON FeatureCollection to path.
func ExportGeoJSON(path string, records []sessions.Record, p Projector) error {
	data, err := FeatureCollection(records, p).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing temp file %s: %v", tmpName, err)
		}
	}()

	if err := write(tmpFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	// CreateTemp uses 0600; exports are ordinary user files.
	if err := tmpFile.Chmod(exportPerm); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	log.Printf("[MAP] Exported %s", path)
	return nil
}
