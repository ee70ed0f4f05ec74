package sessions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// StatsSuffix marks the session files that carry death statistics.
const StatsSuffix = "stats.xml"

var ErrDirectory = errors.New("cannot read sessions directory")

// IsStatsFile reports whether name is a session statistics file.
func IsStatsFile(name string) bool {
	return strings.HasSuffix(name, StatsSuffix)
}

// Collector reads every stats file at the top level of a directory and keeps the
// records that extract cleanly.
type Collector struct {
	// Workers bounds the number of files read at once. Zero means GOMAXPROCS.
	Workers int
	// Verbose logs every excluded file.
	Verbose bool
}

// Collect runs a default Collector over fsys.
func Collect(ctx context.Context, fsys fs.FS) ([]Record, error) {
	return (&Collector{}).Collect(ctx, fsys)
}

// Collect lists fsys, reads the stats files concurrently and returns the valid records
// in directory order. Unreadable or invalid files are excluded, never fatal. Only a
// failure to list the directory or a cancelled context aborts the batch.
func (c *Collector) Collect(ctx context.Context, fsys fs.FS) ([]Record, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectory, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsStatsFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Record, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := fs.ReadFile(fsys, name)
			if err != nil {
				c.exclude(name, err)
				return nil
			}
			r, err := ExtractReason(raw)
			if err != nil {
				c.exclude(name, err)
				return nil
			}
			results[i] = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	log.Printf("[SESSIONS] parsed %d of %d stats files", len(records), len(names))
	return records, nil
}

func (c *Collector) exclude(name string, err error) {
	if c.Verbose {
		log.Printf("[SESSIONS] skipping %s: %v", name, err)
	}
}
