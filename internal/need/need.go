// Package need grades a heard station against the logbook: is its country
// or grid new on any band, on this band, or on this band and mode?
package need

import (
	"context"
	"fmt"

	"ft8spotter/go-spotter/internal/logbook"
)

// Label names the most significant tier a Grade carries.
type Label string

const (
	LabelNewCountry         Label = "new_country"
	LabelNewCountryBand     Label = "new_country_band"
	LabelNewCountryBandMode Label = "new_country_band_mode"
	LabelNewGrid            Label = "new_grid"
	LabelNewGridBand        Label = "new_grid_band"
	LabelNewGridBandMode    Label = "new_grid_band_mode"
	LabelNone               Label = "none"
)

// Labels lists every label in priority order.
var Labels = []Label{
	LabelNewCountry,
	LabelNewCountryBand,
	LabelNewCountryBandMode,
	LabelNewGrid,
	LabelNewGridBand,
	LabelNewGridBandMode,
	LabelNone,
}

// Grade is the result of a classification. At most one country tier and
// one grid tier are set. The zero value means nothing is needed.
type Grade struct {
	CountryAnyBand  bool `json:"country_any_band"`
	CountryBand     bool `json:"country_band"`
	CountryBandMode bool `json:"country_band_mode"`
	GridAnyBand     bool `json:"grid_any_band"`
	GridBand        bool `json:"grid_band"`
	GridBandMode    bool `json:"grid_band_mode"`
}

// Label returns the highest priority tier set, country tiers before grid
// tiers and coarse before fine.
func (g Grade) Label() Label {
	switch {
	case g.CountryAnyBand:
		return LabelNewCountry
	case g.CountryBand:
		return LabelNewCountryBand
	case g.CountryBandMode:
		return LabelNewCountryBandMode
	case g.GridAnyBand:
		return LabelNewGrid
	case g.GridBand:
		return LabelNewGridBand
	case g.GridBandMode:
		return LabelNewGridBandMode
	default:
		return LabelNone
	}
}

// Needed reports whether any tier is set.
func (g Grade) Needed() bool {
	return g != Grade{}
}

// Query describes one heard station. DXCC is nil when the entity could not
// be resolved; Grid is empty when none was heard.
type Query struct {
	DXCC *int
	Grid string
	Band int
	Mode string
}

// Classifier issues tiered count queries. It does not retry; wrap the
// source in logbook.Retrying for that.
type Classifier struct {
	source logbook.CountSource
}

// New returns a classifier backed by source.
func New(source logbook.CountSource) *Classifier {
	return &Classifier{source: source}
}

// Classify grades q. Each family stops at the first tier with no contacts,
// so a new country never triggers the band or mode queries.
func (c *Classifier) Classify(ctx context.Context, q Query) (Grade, error) {
	var g Grade

	if q.DXCC != nil {
		tier, err := c.firstUnworked(ctx,
			logbook.CountryScope(*q.DXCC, 0, ""),
			logbook.CountryScope(*q.DXCC, q.Band, ""),
			logbook.CountryScope(*q.DXCC, q.Band, q.Mode),
		)
		if err != nil {
			return Grade{}, err
		}
		g.CountryAnyBand = tier == 0
		g.CountryBand = tier == 1
		g.CountryBandMode = tier == 2
	}

	if len(q.Grid) >= 4 {
		tier, err := c.firstUnworked(ctx,
			logbook.GridScope(q.Grid, 0, ""),
			logbook.GridScope(q.Grid, q.Band, ""),
			logbook.GridScope(q.Grid, q.Band, q.Mode),
		)
		if err != nil {
			return Grade{}, err
		}
		g.GridAnyBand = tier == 0
		g.GridBand = tier == 1
		g.GridBandMode = tier == 2
	}

	return g, nil
}

// firstUnworked returns the index of the first scope with a zero count, or
// -1 when all have contacts.
func (c *Classifier) firstUnworked(ctx context.Context, scopes ...logbook.Scope) (int, error) {
	for i, scope := range scopes {
		n, err := c.source.CountContacts(ctx, scope)
		if err != nil {
			return -1, fmt.Errorf("classify %s: %w", scope, err)
		}
		if n == 0 {
			return i, nil
		}
	}
	return -1, nil
}
