package viewer

import (
	"errors"
	"io/fs"
	"reflect"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sudorandom/noita-deathmap/pkg/mapengine"
	"github.com/sudorandom/noita-deathmap/pkg/sessions"
	"github.com/sudorandom/noita-deathmap/pkg/stats"
)

type unlistableFS struct{}

func (unlistableFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func newTestEngine(withMap bool) *Engine {
	r := mapengine.NewRenderer()
	r.Width, r.Height = 400, 200
	r.Projector = mapengine.Projector{Scale: 1, OffsetX: 200, OffsetY: 100}
	if withMap {
		if err := r.LoadBackground(""); err != nil {
			panic(err)
		}
	}
	return NewEngine(r, &sessions.Collector{Workers: 2})
}

func sessionsFS(causes ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for i, cause := range causes {
		name := string(rune('a'+i)) + "_stats.xml"
		fsys[name] = &fstest.MapFile{Data: []byte(`<Stats><stats death_pos.x="10" death_pos.y="-10" killed_by="` + cause + `"/></Stats>`)}
	}
	return fsys
}

func waitResult(t *testing.T, e *Engine) batchResult {
	t.Helper()
	select {
	case res := <-e.results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for batch")
	}
	return batchResult{}
}

func TestOpenAppliesState(t *testing.T) {
	e := newTestEngine(true)
	e.Open("sessions", sessionsFS("acid", "| fire imp", "acid"))

	if !e.apply(waitResult(t, e)) {
		t.Fatal("Expected batch to be applied")
	}
	if len(e.state.Records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(e.state.Records))
	}
	want := []stats.Entry{{Cause: "acid", Count: 2}, {Cause: "| fire imp", Count: 1}}
	if !reflect.DeepEqual(e.state.Ranked, want) {
		t.Errorf("Ranked = %v; want %v", e.state.Ranked, want)
	}
	if !e.state.MapReady || e.canvas == nil {
		t.Error("Expected the map to be rendered")
	}
	if !e.dirty {
		t.Error("Expected the engine to schedule a texture upload")
	}
}

func TestOpenWithoutMapKeepsStats(t *testing.T) {
	e := newTestEngine(false)
	e.Open("sessions", sessionsFS("lava"))

	if !e.apply(waitResult(t, e)) {
		t.Fatal("Expected batch to be applied")
	}
	if e.state.MapReady || e.canvas != nil {
		t.Error("Expected no rendered map without a background")
	}
	if want := []string{"Lava: 1"}; !reflect.DeepEqual(e.state.Lines(), want) {
		t.Errorf("Lines() = %v; want %v", e.state.Lines(), want)
	}
	if got := e.hint(); got == "" {
		t.Error("Expected a hint")
	}
}

func TestFailedOpenKeepsPreviousState(t *testing.T) {
	e := newTestEngine(true)
	e.Open("good", sessionsFS("acid"))
	if !e.apply(waitResult(t, e)) {
		t.Fatal("Expected first batch to be applied")
	}
	before := e.state

	e.Open("bad", unlistableFS{})
	res := waitResult(t, e)
	if !errors.Is(res.err, sessions.ErrDirectory) {
		t.Errorf("Batch error = %v; want ErrDirectory", res.err)
	}
	if e.apply(res) {
		t.Error("Failed batch must not be applied")
	}
	if !reflect.DeepEqual(e.state, before) {
		t.Errorf("State changed after failed open: %+v", e.state)
	}
	if e.sourceName != "good" {
		t.Errorf("Reload source = %q; want %q", e.sourceName, "good")
	}
}

func TestStaleResultsDiscarded(t *testing.T) {
	e := newTestEngine(true)
	e.Open("first", sessionsFS("acid"))
	first := waitResult(t, e)
	e.Open("second", sessionsFS("lava", "lava"))
	second := waitResult(t, e)

	if e.apply(first) {
		t.Error("Expected stale batch to be discarded")
	}
	if !e.apply(second) {
		t.Fatal("Expected latest batch to be applied")
	}
	if want := []stats.Entry{{Cause: "lava", Count: 2}}; !reflect.DeepEqual(e.state.Ranked, want) {
		t.Errorf("Ranked = %v; want %v", e.state.Ranked, want)
	}
}

func TestSessionsRoot(t *testing.T) {
	file := &fstest.MapFile{Data: []byte("<Stats/>")}

	tests := []struct {
		name     string
		dropped  fstest.MapFS
		wantName string
		wantFile string
	}{
		{"files", fstest.MapFS{"a_stats.xml": file}, "dropped files", "a_stats.xml"},
		{"folder", fstest.MapFS{"sessions/a_stats.xml": file}, "sessions", "a_stats.xml"},
		{"mixed", fstest.MapFS{"x/a_stats.xml": file, "y/b_stats.xml": file}, "dropped files", "x/a_stats.xml"},
	}
	for _, tt := range tests {
		fsys, name, err := sessionsRoot(tt.dropped)
		if err != nil {
			t.Fatalf("%s: sessionsRoot failed: %v", tt.name, err)
		}
		if name != tt.wantName {
			t.Errorf("%s: name = %q; want %q", tt.name, name, tt.wantName)
		}
		if _, err := fs.Stat(fsys, tt.wantFile); err != nil {
			t.Errorf("%s: expected %s in chosen root: %v", tt.name, tt.wantFile, err)
		}
	}
}

func TestPanelLines(t *testing.T) {
	ranked := []stats.Entry{{Cause: "lava", Count: 5}, {Cause: "acid", Count: 3}, {Cause: "fire", Count: 2}, {Cause: "worm", Count: 1}}

	if got := panelLines(ranked, 10); len(got) != 4 {
		t.Errorf("panelLines(10) = %v; want all 4 lines", got)
	}
	want := []string{"Lava: 5", "Acid: 3", "... and 2 more"}
	if got := panelLines(ranked, 3); !reflect.DeepEqual(got, want) {
		t.Errorf("panelLines(3) = %v; want %v", got, want)
	}
	if got := panelLines(nil, 3); !reflect.DeepEqual(got, []string{stats.Placeholder}) {
		t.Errorf("panelLines(nil) = %v; want placeholder", got)
	}
}

func TestSaveRequiresMap(t *testing.T) {
	e := newTestEngine(false)
	e.ExportPath = t.TempDir() + "/noita_map.png"
	e.Save()
	if e.message != "Nothing to save yet" {
		t.Errorf("message = %q; want refusal", e.message)
	}
}
