// Package filter compiles structured filter sets into predicates shared by
// every matching tier and storage engine.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// Field names a filterable record attribute.
type Field string

// Filterable fields, in the order clauses are emitted.
const (
	FieldPrice            Field = "price_minor"
	FieldWeight           Field = "weight_carats"
	FieldType             Field = "type"
	FieldColor            Field = "color"
	FieldCut              Field = "cut"
	FieldClarity          Field = "clarity"
	FieldOrigin           Field = "origin"
	FieldInStock          Field = "in_stock"
	FieldMediaCount       Field = "media_count"
	FieldHasCertification Field = "has_certification"
)

// Op is a clause comparison operator.
type Op string

const (
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLte Op = "<="
	OpIn  Op = "IN"
	OpEq  Op = "="
)

// Clause is one atomic condition. Value is int64 for price and media
// count, float64 for weight, []string for categorical sets and bool for
// flags.
type Clause struct {
	Field Field
	Op    Op
	Value any

	// Invariant marks the display policy clauses that every predicate
	// carries regardless of the caller's filters.
	Invariant bool
}

func (c Clause) String() string {
	if values, ok := c.Value.([]string); ok {
		return fmt.Sprintf("%s %s (%s)", c.Field, c.Op, strings.Join(values, ","))
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Predicate is an ordered conjunction of clauses.
type Predicate struct {
	Clauses []Clause
}

// String renders the predicate for logs.
func (p Predicate) String() string {
	parts := make([]string, len(p.Clauses))
	for i, c := range p.Clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Invariants returns the display policy clauses of the predicate.
func (p Predicate) Invariants() []Clause {
	var out []Clause
	for _, c := range p.Clauses {
		if c.Invariant {
			out = append(out, c)
		}
	}
	return out
}

// Matches evaluates the predicate against a record's attributes.
func (p Predicate) Matches(a domain.Attributes) bool {
	for _, c := range p.Clauses {
		if !c.matches(a) {
			return false
		}
	}
	return true
}

func (c Clause) matches(a domain.Attributes) bool {
	switch c.Field {
	case FieldPrice:
		return compare(a.PriceMinor, c.Op, c.Value.(int64))
	case FieldMediaCount:
		return compare(int64(a.MediaCount), c.Op, c.Value.(int64))
	case FieldWeight:
		return compare(a.WeightCarats, c.Op, c.Value.(float64))
	case FieldType, FieldColor, FieldCut, FieldClarity, FieldOrigin:
		_, found := slices.BinarySearch(c.Value.([]string), a.Code(domain.Attribute(c.Field)))
		return found
	case FieldInStock:
		return a.InStock == c.Value.(bool)
	case FieldHasCertification:
		return a.HasCertification == c.Value.(bool)
	}
	return false
}

func compare[T int64 | float64](v T, op Op, bound T) bool {
	switch op {
	case OpGt:
		return v > bound
	case OpGte:
		return v >= bound
	case OpLte:
		return v <= bound
	case OpEq:
		return v == bound
	}
	return false
}
