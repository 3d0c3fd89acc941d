package filter

import (
	"github.com/utafrali/catalogsearch/internal/domain"
)

// Compiler turns filter sets into predicates, validating categorical values
// against the attribute catalog.
type Compiler struct {
	catalog *domain.Catalog
}

// NewCompiler creates a compiler over catalog.
func NewCompiler(catalog *domain.Catalog) *Compiler {
	return &Compiler{catalog: catalog}
}

// Compile validates fs and returns its predicate. The result always carries
// price > 0 and media_count > 0; the HasPrice and HasMedia flags are
// subsumed by them. Compiling equal filter sets yields equal predicates.
func (c *Compiler) Compile(fs domain.FilterSet) (Predicate, error) {
	fs = fs.Canonical()

	if !fs.Weight.Finite() {
		return Predicate{}, domain.NonFiniteFilterBound("weight")
	}
	if !fs.Price.Valid() {
		return Predicate{}, domain.InvalidFilterRange("price", *fs.Price.Min, *fs.Price.Max)
	}
	if !fs.Weight.Valid() {
		return Predicate{}, domain.InvalidFilterRange("weight", *fs.Weight.Min, *fs.Weight.Max)
	}
	for _, attr := range domain.CategoricalAttributes() {
		for _, v := range fs.Values(attr) {
			if !c.catalog.Has(attr, v) {
				return Predicate{}, domain.UnknownEnumValue(attr, v)
			}
		}
	}

	clauses := []Clause{{Field: FieldPrice, Op: OpGt, Value: int64(0), Invariant: true}}
	if fs.Price.Min != nil {
		clauses = append(clauses, Clause{Field: FieldPrice, Op: OpGte, Value: *fs.Price.Min})
	}
	if fs.Price.Max != nil {
		clauses = append(clauses, Clause{Field: FieldPrice, Op: OpLte, Value: *fs.Price.Max})
	}
	if fs.Weight.Min != nil {
		clauses = append(clauses, Clause{Field: FieldWeight, Op: OpGte, Value: *fs.Weight.Min})
	}
	if fs.Weight.Max != nil {
		clauses = append(clauses, Clause{Field: FieldWeight, Op: OpLte, Value: *fs.Weight.Max})
	}
	for _, attr := range domain.CategoricalAttributes() {
		if values := fs.Values(attr); len(values) > 0 {
			clauses = append(clauses, Clause{Field: Field(attr), Op: OpIn, Value: values})
		}
	}
	if fs.InStockOnly {
		clauses = append(clauses, Clause{Field: FieldInStock, Op: OpEq, Value: true})
	}
	clauses = append(clauses, Clause{Field: FieldMediaCount, Op: OpGt, Value: int64(0), Invariant: true})
	if fs.HasCertification {
		clauses = append(clauses, Clause{Field: FieldHasCertification, Op: OpEq, Value: true})
	}

	return Predicate{Clauses: clauses}, nil
}
