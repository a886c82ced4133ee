package outfit

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrMalformedTable is returned when a range table breaks the
// disjoint-and-exhaustive invariant.
var ErrMalformedTable = errors.New("malformed range table")

// Below returns the largest float64 less than x. It closes a band just
// under the next band's Min so the two share no value and leave none out.
func Below(x float64) float64 {
	return math.Nextafter(x, math.Inf(-1))
}

// Range is an inclusive temperature interval. Min and Max may be infinite.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether Min <= t <= Max.
func (r Range) Contains(t float64) bool {
	return r.Min <= t && t <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", formatBound(r.Min), formatBound(r.Max))
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	default:
		return fmt.Sprintf("%g", v)
	}
}

// Option is one named choice within a category, bound to a temperature range.
type Option struct {
	Name  string
	Range Range
}

// Table is the range table for a single category. Options are kept in
// declared order; Classify returns the first match in that order.
//
// AllowGaps marks tables that intentionally do not cover the whole real
// line (no gloves above 40°F, for example); temperatures in a gap classify
// as Unknown.
type Table struct {
	Options   []Option
	AllowGaps bool
}

// Validate checks that options are well-formed and pairwise disjoint and,
// unless AllowGaps is set, that they cover every temperature: each Min must
// be the float64 immediately after the previous Max.
func (t Table) Validate() error {
	if len(t.Options) == 0 {
		return fmt.Errorf("%w: no options", ErrMalformedTable)
	}

	seen := make(map[string]struct{}, len(t.Options))
	for _, opt := range t.Options {
		if opt.Name == "" {
			return fmt.Errorf("%w: option with empty name", ErrMalformedTable)
		}
		if _, dup := seen[opt.Name]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrMalformedTable, opt.Name)
		}
		seen[opt.Name] = struct{}{}

		if math.IsNaN(opt.Range.Min) || math.IsNaN(opt.Range.Max) {
			return fmt.Errorf("%w: option %q has a NaN bound", ErrMalformedTable, opt.Name)
		}
		if opt.Range.Min > opt.Range.Max {
			return fmt.Errorf("%w: option %q has min above max %s", ErrMalformedTable, opt.Name, opt.Range)
		}
	}

	sorted := make([]Option, len(t.Options))
	copy(sorted, t.Options)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Min < sorted[j].Range.Min
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Range.Min <= prev.Range.Max {
			return fmt.Errorf("%w: %q %s overlaps %q %s",
				ErrMalformedTable, prev.Name, prev.Range, cur.Name, cur.Range)
		}
		if !t.AllowGaps && cur.Range.Min != math.Nextafter(prev.Range.Max, math.Inf(1)) {
			return fmt.Errorf("%w: gap between %q %s and %q %s",
				ErrMalformedTable, prev.Name, prev.Range, cur.Name, cur.Range)
		}
	}

	if !t.AllowGaps {
		if lo := sorted[0].Range.Min; !math.IsInf(lo, -1) {
			return fmt.Errorf("%w: nothing covers temperatures below %g", ErrMalformedTable, lo)
		}
		if hi := sorted[len(sorted)-1].Range.Max; !math.IsInf(hi, 1) {
			return fmt.Errorf("%w: nothing covers temperatures above %g", ErrMalformedTable, hi)
		}
	}

	return nil
}

// Tables maps every category to its range table.
type Tables map[Category]Table

// Validate checks that every category has exactly one valid table.
func (ts Tables) Validate() error {
	for c := range ts {
		if !c.IsValid() {
			return fmt.Errorf("%w: unknown category %q", ErrMalformedTable, c)
		}
	}
	for _, c := range Categories {
		t, ok := ts[c]
		if !ok {
			return fmt.Errorf("%w: missing table for %s", ErrMalformedTable, c)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", c, err)
		}
	}
	return nil
}

// clone returns a deep copy so callers never share option slices.
func (ts Tables) clone() Tables {
	out := make(Tables, len(ts))
	for c, t := range ts {
		opts := make([]Option, len(t.Options))
		copy(opts, t.Options)
		out[c] = Table{Options: opts, AllowGaps: t.AllowGaps}
	}
	return out
}

// DefaultTables returns a fresh copy of the built-in clothing tables (°F).
func DefaultTables() Tables {
	inf := math.Inf(1)
	return Tables{
		Pants: {Options: []Option{
			{Name: "thermal jeans", Range: Range{Min: -inf, Max: Below(50)}},
			{Name: "jeans", Range: Range{Min: 50, Max: Below(80)}},
			{Name: "shorts", Range: Range{Min: 80, Max: inf}},
		}},
		Shirt: {Options: []Option{
			{Name: "long sleeve shirt", Range: Range{Min: -inf, Max: Below(50)}},
			{Name: "T-shirt", Range: Range{Min: 50, Max: inf}},
		}},
		Outerwear: {AllowGaps: true, Options: []Option{
			{Name: "heavy jacket", Range: Range{Min: -inf, Max: Below(30)}},
			{Name: "light jacket", Range: Range{Min: 30, Max: Below(50)}},
			{Name: "hoodie", Range: Range{Min: 50, Max: 70}},
		}},
		Shoes: {Options: []Option{
			{Name: "boots", Range: Range{Min: -inf, Max: Below(30)}},
			{Name: "sneakers", Range: Range{Min: 30, Max: Below(74)}},
			{Name: "slippers", Range: Range{Min: 74, Max: inf}},
		}},
		Socks: {Options: []Option{
			{Name: "long warm socks", Range: Range{Min: -inf, Max: Below(50)}},
			{Name: "socks", Range: Range{Min: 50, Max: inf}},
		}},
		Gloves: {AllowGaps: true, Options: []Option{
			{Name: "gloves", Range: Range{Min: -inf, Max: 40}},
		}},
	}
}
