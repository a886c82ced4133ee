package outfit

import (
	"fmt"
	"math"
	"strings"
)

// Category is one clothing slot.
type Category string

const (
	Pants     Category = "pants"
	Shirt     Category = "shirt"
	Outerwear Category = "outerwear"
	Shoes     Category = "shoes"
	Socks     Category = "socks"
	Gloves    Category = "gloves"
)

// Categories lists every category in presentation order.
var Categories = []Category{Pants, Shirt, Outerwear, Shoes, Socks, Gloves}

// Unknown is recorded for a category when no option covers the temperature.
const Unknown = "unknown"

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Outfit holds the chosen option for every category.
type Outfit struct {
	Pants     string `json:"pants"`
	Shirt     string `json:"shirt"`
	Outerwear string `json:"outerwear"`
	Shoes     string `json:"shoes"`
	Socks     string `json:"socks"`
	Gloves    string `json:"gloves"`
}

// Item returns the option chosen for c.
func (o Outfit) Item(c Category) string {
	switch c {
	case Pants:
		return o.Pants
	case Shirt:
		return o.Shirt
	case Outerwear:
		return o.Outerwear
	case Shoes:
		return o.Shoes
	case Socks:
		return o.Socks
	case Gloves:
		return o.Gloves
	default:
		return ""
	}
}

func (o *Outfit) set(c Category, option string) {
	switch c {
	case Pants:
		o.Pants = option
	case Shirt:
		o.Shirt = option
	case Outerwear:
		o.Outerwear = option
	case Shoes:
		o.Shoes = option
	case Socks:
		o.Socks = option
	case Gloves:
		o.Gloves = option
	}
}

// Lines renders one "<category>: <option>" line per category.
func (o Outfit) Lines() []string {
	lines := make([]string, 0, len(Categories))
	for _, c := range Categories {
		lines = append(lines, fmt.Sprintf("%s: %s", c, o.Item(c)))
	}
	return lines
}

func (o Outfit) String() string {
	return strings.Join(o.Lines(), "\n")
}

// Classify returns the first option in table's declared order whose range
// contains temp. ok is false when no option matches.
func Classify(temp float64, table Table) (option string, ok bool) {
	if math.IsNaN(temp) {
		return "", false
	}
	for _, opt := range table.Options {
		if opt.Range.Contains(temp) {
			return opt.Name, true
		}
	}
	return "", false
}

// Build classifies temp against every category's table. Categories with no
// table or no matching option are set to Unknown.
func Build(temp float64, tables Tables) Outfit {
	var o Outfit
	for _, c := range Categories {
		choice := Unknown
		if t, ok := tables[c]; ok {
			if name, ok := Classify(temp, t); ok {
				choice = name
			}
		}
		o.set(c, choice)
	}
	return o
}

// Builder builds outfits against a validated, private copy of the tables.
type Builder struct {
	tables Tables
}

// NewBuilder validates tables and returns a Builder that owns a copy of them.
func NewBuilder(tables Tables) (*Builder, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Builder{tables: tables.clone()}, nil
}

// Build returns the outfit for temp (°F).
func (b *Builder) Build(temp float64) Outfit {
	return Build(temp, b.tables)
}

// Tables returns a copy of the builder's tables.
func (b *Builder) Tables() Tables {
	return b.tables.clone()
}
