package mapengine

import (
	"github.com/sudorandom/noita-deathmap/pkg/sessions"
	"github.com/sudorandom/noita-deathmap/pkg/stats"
)

// State is everything shown for one processed sessions folder. It is built whole after
// a batch completes and replaced whole by the next one.
type State struct {
	Records  []sessions.Record
	Tally    stats.Tally
	Ranked   []stats.Entry
	MapReady bool
}

// NewState aggregates and ranks records. MapReady is left to the renderer.
func NewState(records []sessions.Record) State {
	tally := stats.Aggregate(records)
	return State{
		Records: records,
		Tally:   tally,
		Ranked:  stats.Rank(tally),
	}
}

// Lines is the ranked display list.
func (s State) Lines() []string {
	return stats.Lines(s.Ranked)
}
