// Package stats tallies and ranks causes of death.
package stats

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sudorandom/noita-deathmap/pkg/sessions"
)

const (
	Heading     = "Death Reason Statistics"
	Placeholder = "No statistics available yet..."
)

// Tally maps a raw killed_by value to the number of deaths it caused.
type Tally map[string]int

// Entry is one row of a ranked tally.
type Entry struct {
	Cause string
	Count int
}

// Aggregate counts records per raw cause. Causes are not normalized, so only
// byte-identical values are merged.
func Aggregate(records []sessions.Record) Tally {
	t := make(Tally)
	for _, r := range records {
		t[r.Cause]++
	}
	return t
}

// Total returns the sum of all counts.
func (t Tally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Rank orders the tally by count descending, then by raw cause ascending.
func Rank(t Tally) []Entry {
	ranked := make([]Entry, 0, len(t))
	for cause, count := range t {
		ranked = append(ranked, Entry{Cause: cause, Count: count})
	}
	slices.SortFunc(ranked, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Cause, b.Cause)
	})
	return ranked
}

// FormatCause is the display form of a raw cause: leading whitespace and pipes are
// stripped and the first remaining character is upper-cased.
func FormatCause(raw string) string {
	cleaned := strings.TrimLeftFunc(raw, func(r rune) bool {
		return r == '|' || r == '\uFEFF' || unicode.IsSpace(r)
	})
	if cleaned == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(cleaned)
	return cases.Upper(language.Und).String(cleaned[:size]) + cleaned[size:]
}

// Lines renders ranked entries for display, or the placeholder when there are none.
func Lines(ranked []Entry) []string {
	if len(ranked) == 0 {
		return []string{Placeholder}
	}
	lines := make([]string, len(ranked))
	for i, e := range ranked {
		lines[i] = fmt.Sprintf("%s: %d", FormatCause(e.Cause), e.Count)
	}
	return lines
}

// Write prints the heading followed by Lines.
func Write(w io.Writer, ranked []Entry) error {
	if _, err := fmt.Fprintln(w, Heading); err != nil {
		return err
	}
	for _, line := range Lines(ranked) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
