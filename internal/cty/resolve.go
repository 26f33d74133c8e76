package cty

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MatchSource says which list a resolution came from.
type MatchSource string

const (
	MatchException MatchSource = "exception"
	MatchPrefix    MatchSource = "prefix"
)

// ResolvedEntity is the outcome of a successful Resolve. Optional values are
// nil when the matching prefix record does not carry them.
type ResolvedEntity struct {
	Callsign  string      `json:"callsign"`
	ADIF      *int        `json:"adif,omitempty"`
	Name      string      `json:"name"`
	Continent string      `json:"continent,omitempty"`
	CQZone    *int        `json:"cq_zone,omitempty"`
	Latitude  *float64    `json:"latitude,omitempty"`
	Longitude *float64    `json:"longitude,omitempty"`
	Source    MatchSource `json:"source"`
}

// Resolve finds the entity for call at the given instant.
//
// Exceptions are checked first, by exact callsign. Otherwise the callsign is
// cut back one character at a time, longest first, and each fragment is
// looked up in the prefix list. Within one list, records are tried in file
// order and the first whose window contains at wins, so an earlier record
// takes precedence over a later one with the same text.
//
// ok is false when nothing matches; that is an unknown entity, not an error.
func (t *Table) Resolve(call string, at time.Time) (ResolvedEntity, bool) {
	if call == "" {
		return ResolvedEntity{}, false
	}
	at = at.UTC()

	for i := range t.Exceptions {
		e := &t.Exceptions[i]
		if !strings.EqualFold(e.Call, call) || !e.Contains(at) {
			continue
		}
		return ResolvedEntity{
			Callsign:  e.Call,
			ADIF:      intPtr(e.ADIF),
			Name:      DisplayName(e.Entity),
			Continent: e.Continent,
			CQZone:    intPtr(e.CQZone),
			Latitude:  floatPtr(e.Latitude),
			Longitude: floatPtr(e.Longitude),
			Source:    MatchException,
		}, true
	}

	for _, fragment := range Fragments(call) {
		for i := range t.Prefixes {
			p := &t.Prefixes[i]
			if !strings.EqualFold(p.Call, fragment) || !p.Contains(at) {
				continue
			}
			return ResolvedEntity{
				Callsign:  p.Call,
				ADIF:      copyInt(p.ADIF),
				Name:      DisplayName(p.Entity),
				Continent: p.Continent,
				CQZone:    copyInt(p.CQZone),
				Latitude:  copyFloat(p.Latitude),
				Longitude: copyFloat(p.Longitude),
				Source:    MatchPrefix,
			}, true
		}
	}

	return ResolvedEntity{}, false
}

// Fragments returns the left-anchored prefixes of call, longest first:
// EC1AIJ, EC1AI, EC1A, EC1, EC, E.
func Fragments(call string) []string {
	out := make([]string, 0, len(call))
	for i := len(call); i > 0; i-- {
		if i < len(call) && !utf8.RuneStart(call[i]) {
			continue
		}
		out = append(out, call[:i])
	}
	return out
}

// DisplayName capitalises each word of an entity name and lowercases "of":
// "BOSNIA-HERZEGOVINA" -> "Bosnia-herzegovina", "ISLE OF MAN" -> "Isle of Man".
func DisplayName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		if strings.EqualFold(w, "of") {
			words[i] = "of"
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(*v)
}
