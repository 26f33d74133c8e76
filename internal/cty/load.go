package cty

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrEmptyTable is returned when a document parses but defines no entities
// or no prefixes. Such a table cannot resolve anything.
var ErrEmptyTable = errors.New("cty: table has no entities or prefixes")

// sections maps each list element to the record element it holds.
var sections = map[string]string{
	"entities":           "entity",
	"exceptions":         "exception",
	"prefixes":           "prefix",
	"invalid_operations": "invalid",
	"zone_exceptions":    "zone_exception",
}

// LoadFile reads a cty.xml file, gzip-compressed or not.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cty file: %w", err)
	}
	defer f.Close()

	t, err := LoadCompressed(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// LoadCompressed is Load for input that may be gzip-compressed, as served
// by the Club Log download endpoint.
func LoadCompressed(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		defer zr.Close()
		return Load(zr)
	}
	return Load(br)
}

// Load parses a Club Log cty.xml document. Records keep document order.
func Load(r io.Reader) (*Table, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	t := &Table{}
	sawRoot := false
	section := ""

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}

		switch se := tok.(type) {
		case xml.StartElement:
			if !sawRoot {
				if se.Name.Local != "clublog" {
					return nil, fmt.Errorf("unexpected root element <%s>", se.Name.Local)
				}
				sawRoot = true
				if err := t.parseDate(se); err != nil {
					return nil, err
				}
				continue
			}

			if _, ok := sections[se.Name.Local]; ok && section == "" {
				section = se.Name.Local
				continue
			}
			if section == "" || sections[section] != se.Name.Local {
				if err := decoder.Skip(); err != nil {
					return nil, fmt.Errorf("skip <%s>: %w", se.Name.Local, err)
				}
				continue
			}
			if err := t.decodeRecord(decoder, &se, section); err != nil {
				return nil, err
			}

		case xml.EndElement:
			if se.Name.Local == section {
				section = ""
			}
		}
	}

	if !sawRoot {
		return nil, errors.New("no clublog element found")
	}
	if len(t.Entities) == 0 || len(t.Prefixes) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

func (t *Table) parseDate(root xml.StartElement) error {
	for _, attr := range root.Attr {
		if attr.Name.Local != "date" {
			continue
		}
		updated, err := time.Parse(time.RFC3339, attr.Value)
		if err != nil {
			return fmt.Errorf("parse clublog date: %w", err)
		}
		t.Updated = updated.UTC()
	}
	return nil
}

func (t *Table) decodeRecord(decoder *xml.Decoder, se *xml.StartElement, section string) error {
	switch section {
	case "entities":
		var e Entity
		if err := decoder.DecodeElement(&e, se); err != nil {
			return fmt.Errorf("decode entity %d: %w", len(t.Entities)+1, err)
		}
		t.Entities = append(t.Entities, e)
	case "exceptions":
		var e Exception
		if err := decoder.DecodeElement(&e, se); err != nil {
			return fmt.Errorf("decode exception %d: %w", len(t.Exceptions)+1, err)
		}
		if e.Call == "" {
			return fmt.Errorf("exception record %d has no call", e.Record)
		}
		t.Exceptions = append(t.Exceptions, e)
	case "prefixes":
		var p Prefix
		if err := decoder.DecodeElement(&p, se); err != nil {
			return fmt.Errorf("decode prefix %d: %w", len(t.Prefixes)+1, err)
		}
		if p.Call == "" {
			return fmt.Errorf("prefix record %d has no call", p.Record)
		}
		t.Prefixes = append(t.Prefixes, p)
	case "invalid_operations":
		var op InvalidOperation
		if err := decoder.DecodeElement(&op, se); err != nil {
			return fmt.Errorf("decode invalid operation %d: %w", len(t.InvalidOperations)+1, err)
		}
		t.InvalidOperations = append(t.InvalidOperations, op)
	case "zone_exceptions":
		var z ZoneException
		if err := decoder.DecodeElement(&z, se); err != nil {
			return fmt.Errorf("decode zone exception %d: %w", len(t.ZoneExceptions)+1, err)
		}
		t.ZoneExceptions = append(t.ZoneExceptions, z)
	}
	return nil
}
