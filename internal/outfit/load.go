package outfit

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// tableFile is the on-disk shape of a tables override, e.g.
//
//	{"pants": {"options": [{"name": "thermal jeans", "below": 50}, {"name": "jeans", "min": 50}]}, ...}
//
// max is inclusive and below is exclusive; at most one may be set. An omitted
// bound is open.
type tableFile map[Category]struct {
	AllowGaps bool `json:"allowGaps"`
	Options   []struct {
		Name  string   `json:"name"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
		Below *float64 `json:"below"`
	} `json:"options"`
}

// ParseTables decodes and validates JSON range tables.
func ParseTables(data []byte) (Tables, error) {
	var raw tableFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}

	tables := make(Tables, len(raw))
	for c, rt := range raw {
		t := Table{AllowGaps: rt.AllowGaps}
		for _, ro := range rt.Options {
			r := Range{Min: math.Inf(-1), Max: math.Inf(1)}
			if ro.Min != nil {
				r.Min = *ro.Min
			}
			switch {
			case ro.Max != nil && ro.Below != nil:
				return nil, fmt.Errorf("%s: %w: option %q sets both max and below", c, ErrMalformedTable, ro.Name)
			case ro.Max != nil:
				r.Max = *ro.Max
			case ro.Below != nil:
				r.Max = Below(*ro.Below)
			}
			t.Options = append(t.Options, Option{Name: ro.Name, Range: r})
		}
		tables[c] = t
	}

	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

// LoadTables reads range tables from a JSON file.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	return ParseTables(data)
}
