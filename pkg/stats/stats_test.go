package stats

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/sudorandom/noita-deathmap/pkg/sessions"
)

func TestRank(t *testing.T) {
	got := Rank(Tally{"fire": 3, "acid": 3, "lava": 5})
	want := []Entry{{"lava", 5}, {"acid", 3}, {"fire", 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v; want %v", got, want)
	}
}

func TestRankCaseSensitive(t *testing.T) {
	got := Rank(Tally{"acid": 1, "Acid": 1, "| fire imp": 1, " worm": 1})
	want := []Entry{{" worm", 1}, {"Acid", 1}, {"acid", 1}, {"| fire imp", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v; want %v", got, want)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(Tally{}); len(got) != 0 {
		t.Errorf("Rank(empty) = %v; want empty", got)
	}
}

func TestAggregate(t *testing.T) {
	records := []sessions.Record{
		{X: 1, Y: 1, Cause: "acid"},
		{X: 2, Y: 2, Cause: "acid"},
		{X: 3, Y: 3, Cause: "Acid"},
		{X: 4, Y: 4, Cause: "| fire imp"},
	}
	tally := Aggregate(records)
	want := Tally{"acid": 2, "Acid": 1, "| fire imp": 1}
	if !reflect.DeepEqual(tally, want) {
		t.Errorf("Aggregate() = %v; want %v", tally, want)
	}
	if tally.Total() != len(records) {
		t.Errorf("Total() = %d; want %d", tally.Total(), len(records))
	}
}

func TestAggregateRankIdempotent(t *testing.T) {
	records := []sessions.Record{
		{X: 1, Y: 1, Cause: "lava"},
		{X: 1, Y: 1, Cause: "acid"},
		{X: 1, Y: 1, Cause: "fire"},
		{X: 1, Y: 1, Cause: "acid"},
		{X: 1, Y: 1, Cause: "fire"},
	}
	first := Rank(Aggregate(records))
	second := Rank(Aggregate(records))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Rank(Aggregate()) not idempotent: %v vs %v", first, second)
	}
}

func TestFormatCause(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"| fire imp", "Fire imp"},
		{"acid", "Acid"},
		{"  ||  worm | bite", "Worm | bite"},
		{"Already", "Already"},
		{"|||", ""},
		{"", ""},
		{"élan", "Élan"},
		{"\t\n|lava", "Lava"},
		{"\uFEFF| worm", "Worm"},
	}
	for _, tt := range tests {
		if got := FormatCause(tt.raw); got != tt.want {
			t.Errorf("FormatCause(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLines(t *testing.T) {
	if got := Lines(nil); !reflect.DeepEqual(got, []string{Placeholder}) {
		t.Errorf("Lines(nil) = %v; want placeholder", got)
	}

	ranked := Rank(Tally{"| fire imp": 1, "acid": 1})
	want := []string{"Acid: 1", "Fire imp: 1"}
	if got := Lines(ranked); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v; want %v", got, want)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []Entry{{"lava", 5}, {"acid", 3}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "Death Reason Statistics\nLava: 5\nAcid: 3\n"
	if buf.String() != want {
		t.Errorf("Write() = %q; want %q", buf.String(), want)
	}
}

func TestAggregateTrimmedCauses(t *testing.T) {
	var records []sessions.Record
	for _, cause := range []string{"acid ", "acid", "\tacid"} {
		raw := []byte(`<Stats><stats death_pos.x="1" death_pos.y="2" killed_by="` + cause + `"/></Stats>`)
		r, ok := sessions.Extract(raw)
		if !ok {
			t.Fatalf("Extract(%q) rejected", cause)
		}
		records = append(records, r)
	}
	want := Tally{"acid": 3}
	if got := Aggregate(records); !reflect.DeepEqual(got, want) {
		t.Errorf("Aggregate() = %v; want %v", got, want)
	}
}
