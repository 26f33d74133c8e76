// Package cty holds the Club Log country file (cty.xml) and resolves
// callsigns to DXCC entities against it.
package cty

import "time"

// Window is an optional validity period. A nil bound is open.
type Window struct {
	Start *time.Time `xml:"start" json:"start,omitempty"`
	End   *time.Time `xml:"end" json:"end,omitempty"`
}

// Contains reports whether at lies in [Start, End).
func (w Window) Contains(at time.Time) bool {
	if w.Start != nil && at.Before(*w.Start) {
		return false
	}
	if w.End != nil && !at.Before(*w.End) {
		return false
	}
	return true
}

// Entity is a DXCC entity, current or deleted.
type Entity struct {
	ADIF           int        `xml:"adif" json:"adif"`
	Name           string     `xml:"name" json:"name"`
	Prefix         string     `xml:"prefix" json:"prefix"`
	Deleted        bool       `xml:"deleted" json:"deleted"`
	CQZone         int        `xml:"cqz" json:"cq_zone"`
	Continent      string     `xml:"cont" json:"continent"`
	Longitude      float64    `xml:"long" json:"longitude"`
	Latitude       float64    `xml:"lat" json:"latitude"`
	Whitelist      *bool      `xml:"whitelist" json:"whitelist,omitempty"`
	WhitelistStart *time.Time `xml:"whitelist_start" json:"whitelist_start,omitempty"`
	WhitelistEnd   *time.Time `xml:"whitelist_end" json:"whitelist_end,omitempty"`
	Window
}

// Exception maps one full callsign to an entity, overriding its prefix.
type Exception struct {
	Record    int     `xml:"record,attr" json:"record"`
	Call      string  `xml:"call" json:"call"`
	Entity    string  `xml:"entity" json:"entity"`
	ADIF      int     `xml:"adif" json:"adif"`
	CQZone    int     `xml:"cqz" json:"cq_zone"`
	Continent string  `xml:"cont" json:"continent"`
	Longitude float64 `xml:"long" json:"longitude"`
	Latitude  float64 `xml:"lat" json:"latitude"`
	Window
}

// Prefix maps a callsign prefix to an entity. The same prefix text appears
// several times when it has been reallocated, each with its own window.
type Prefix struct {
	Record    int      `xml:"record,attr" json:"record"`
	Call      string   `xml:"call" json:"call"`
	Entity    string   `xml:"entity" json:"entity"`
	ADIF      *int     `xml:"adif" json:"adif,omitempty"`
	CQZone    *int     `xml:"cqz" json:"cq_zone,omitempty"`
	Continent string   `xml:"cont" json:"continent,omitempty"`
	Longitude *float64 `xml:"long" json:"longitude,omitempty"`
	Latitude  *float64 `xml:"lat" json:"latitude,omitempty"`
	Window
}

// ZoneException overrides the CQ zone of a callsign for a period.
type ZoneException struct {
	Record int    `xml:"record,attr" json:"record"`
	Call   string `xml:"call" json:"call"`
	Zone   int    `xml:"zone" json:"zone"`
	Window
}

// InvalidOperation flags a callsign whose operation did not count for DXCC
// during a period. Loaded but not consulted by Resolve.
type InvalidOperation struct {
	Record int    `xml:"record,attr" json:"record"`
	Call   string `xml:"call" json:"call"`
	Window
}

// Table is one loaded country file. Slices keep file order, which Resolve
// relies on. A Table is never modified after Load returns it.
type Table struct {
	Updated           time.Time
	Entities          []Entity
	Exceptions        []Exception
	Prefixes          []Prefix
	InvalidOperations []InvalidOperation
	ZoneExceptions    []ZoneException
}

// Entity returns the first entity record with the given ADIF number.
func (t *Table) Entity(adif int) (Entity, bool) {
	for _, e := range t.Entities {
		if e.ADIF == adif {
			return e, true
		}
	}
	return Entity{}, false
}
