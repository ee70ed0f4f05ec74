// Package sessions extracts death records from Noita session statistics files.
package sessions

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrMalformed         = errors.New("malformed stats document")
	ErrMissingCoordinate = errors.New("missing or zero death coordinate")
	ErrMissingCause      = errors.New("missing killed_by")
)

// Record is one death event in world coordinates.
type Record struct {
	X, Y  float64
	Cause string
}

type statsDocument struct {
	XMLName xml.Name `xml:"Stats"`
	Stats   struct {
		DeathX   *string `xml:"death_pos.x,attr"`
		DeathY   *string `xml:"death_pos.y,attr"`
		KilledBy *string `xml:"killed_by,attr"`
	} `xml:"stats"`
}

// Extract parses a session stats document. Documents that fail to parse or miss any of
// the death fields are reported with ok == false.
func Extract(raw []byte) (Record, bool) {
	r, err := ExtractReason(raw)
	return r, err == nil
}

// ExtractReason is Extract with the rejection reason.
//
// Attribute values are trimmed before use. A coordinate of exactly zero is treated the
// same as an absent one, so deaths at x == 0 or y == 0 are always dropped. Infinite
// coordinates are kept; they count towards statistics but are never plotted.
func ExtractReason(raw []byte) (Record, error) {
	var doc statsDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	x, ok := parseCoordinate(doc.Stats.DeathX)
	if !ok {
		return Record{}, ErrMissingCoordinate
	}
	y, ok := parseCoordinate(doc.Stats.DeathY)
	if !ok {
		return Record{}, ErrMissingCoordinate
	}

	if doc.Stats.KilledBy == nil {
		return Record{}, ErrMissingCause
	}
	cause := trimValue(*doc.Stats.KilledBy)
	if cause == "" {
		return Record{}, ErrMissingCause
	}
	return Record{X: x, Y: y, Cause: cause}, nil
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func trimValue(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// parseCoordinate accepts decimal and exponent forms plus the exact spellings
// "Infinity", "+Infinity" and "-Infinity". Values too large for a float64 become
// infinities; zero and NaN are rejected.
func parseCoordinate(attr *string) (float64, bool) {
	if attr == nil {
		return 0, false
	}
	s := trimValue(*attr)
	unsigned := s
	if unsigned != "" && (unsigned[0] == '+' || unsigned[0] == '-') {
		unsigned = unsigned[1:]
	}
	switch strings.ToLower(unsigned) {
	case "inf", "infinity":
		if unsigned != "Infinity" {
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !(errors.Is(err, strconv.ErrRange) && math.IsInf(v, 0)) {
		return 0, false
	}
	if v == 0 || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
