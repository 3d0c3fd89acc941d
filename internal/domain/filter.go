package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Range is an optional closed interval. A nil bound is open.
type Range[T cmp.Ordered] struct {
	Min *T `json:"min,omitempty"`
	Max *T `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r Range[T]) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Finite reports whether every present bound is a finite number.
func (r Range[T]) Finite() bool {
	return (r.Min == nil || finite(*r.Min)) && (r.Max == nil || finite(*r.Max))
}

// Valid reports whether the bounds are finite and min <= max when both are
// present.
func (r Range[T]) Valid() bool {
	if !r.Finite() {
		return false
	}
	return r.Min == nil || r.Max == nil || *r.Min <= *r.Max
}

func finite[T cmp.Ordered](v T) bool {
	switch f := any(v).(type) {
	case float64:
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	case float32:
		return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
	}
	return true
}

// Contains reports whether v lies within the range.
func (r Range[T]) Contains(v T) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// FilterSet holds the structured predicates of a search. Every member is
// optional; empty categorical sets impose no constraint.
type FilterSet struct {
	Price  Range[int64]   `json:"price"`
	Weight Range[float64] `json:"weight"`

	Types     []string `json:"types,omitempty"`
	Colors    []string `json:"colors,omitempty"`
	Cuts      []string `json:"cuts,omitempty"`
	Clarities []string `json:"clarities,omitempty"`
	Origins   []string `json:"origins,omitempty"`

	InStockOnly      bool `json:"in_stock_only,omitempty"`
	HasMedia         bool `json:"has_media,omitempty"`
	HasCertification bool `json:"has_certification,omitempty"`
	HasPrice         bool `json:"has_price,omitempty"`
}

// Values returns the categorical set filtering attr.
func (f FilterSet) Values(attr Attribute) []string {
	switch attr {
	case AttrType:
		return f.Types
	case AttrColor:
		return f.Colors
	case AttrCut:
		return f.Cuts
	case AttrClarity:
		return f.Clarities
	case AttrOrigin:
		return f.Origins
	}
	return nil
}

// Canonical returns a copy whose categorical sets are lower-cased, sorted
// and free of blanks and duplicates, so logically equal filter sets compare
// and encode equal.
func (f FilterSet) Canonical() FilterSet {
	out := f
	out.Types = canonicalSet(f.Types)
	out.Colors = canonicalSet(f.Colors)
	out.Cuts = canonicalSet(f.Cuts)
	out.Clarities = canonicalSet(f.Clarities)
	out.Origins = canonicalSet(f.Origins)
	return out
}

func canonicalSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
