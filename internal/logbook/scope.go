// Package logbook answers "how many times have I worked this?" against a
// remote or local logbook.
package logbook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind selects what a Scope counts contacts with.
type Kind string

const (
	KindCountry Kind = "country"
	KindGrid    Kind = "grid"
)

// ErrBadResponse marks a count source reply that could not be used.
var ErrBadResponse = errors.New("logbook: bad response")

// Scope is one count query: a country or grid, optionally narrowed to a
// band and then to a mode. Band 0 means any band; Mode is ignored when Band
// is 0.
type Scope struct {
	Kind Kind
	DXCC int
	Grid string
	Band int
	Mode string
}

// CountryScope narrows a country query. Pass band 0 for any band and an
// empty mode for any mode.
func CountryScope(dxcc, band int, mode string) Scope {
	return Scope{Kind: KindCountry, DXCC: dxcc, Band: band, Mode: mode}
}

// GridScope narrows a grid query. Grids longer than four characters are
// cut to their square.
func GridScope(grid string, band int, mode string) Scope {
	grid = strings.ToUpper(grid)
	if len(grid) > 4 {
		grid = grid[:4]
	}
	return Scope{Kind: KindGrid, Grid: grid, Band: band, Mode: mode}
}

// Value is the country id or grid the scope counts.
func (s Scope) Value() string {
	if s.Kind == KindGrid {
		return s.Grid
	}
	return strconv.Itoa(s.DXCC)
}

// Path renders the scope suffix used by the logbook API: "all", "20m" or
// "20m/FT8".
func (s Scope) Path() string {
	if s.Band <= 0 {
		return "all"
	}
	if s.Mode == "" {
		return BandName(s.Band)
	}
	return BandName(s.Band) + "/" + s.Mode
}

func (s Scope) String() string {
	return fmt.Sprintf("%s %s %s", s.Kind, s.Value(), s.Path())
}

// BandName is the API form of a band in meters.
func BandName(band int) string {
	return strconv.Itoa(band) + "m"
}

// CountSource counts logged contacts matching a scope.
type CountSource interface {
	CountContacts(ctx context.Context, scope Scope) (int, error)
}
