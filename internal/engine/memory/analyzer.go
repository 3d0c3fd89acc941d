package memory

import (
	"math"
	"strings"
	"unicode"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
)

// tokenize lower-cases s and splits it into runs of letters and digits.
// English tokens get crude plural folding so "emeralds" matches "emerald".
func tokenize(s string, locale domain.Locale) []string {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if locale == domain.LocaleEN {
		for i, t := range tokens {
			if len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") {
				tokens[i] = t[:len(t)-1]
			}
		}
	}
	return tokens
}

// projection is the searchable text of one record in one locale.
type projection struct {
	identifier  map[string]int
	category    map[string]int
	description map[string]int
	length      int

	typeName  string
	colorName string
	name      string
	desc      string
}

func project(p *domain.Product, locale domain.Locale, catalog *domain.Catalog) projection {
	typeName, _ := catalog.Label(domain.AttrType, p.Attributes.Type, locale)
	colorName, _ := catalog.Label(domain.AttrColor, p.Attributes.Color, locale)
	tr := p.Translation(locale)

	pr := projection{
		typeName:  typeName,
		colorName: colorName,
		name:      tr.Name,
		desc:      tr.Description,
	}
	pr.identifier, pr.length = termCounts(pr.length, tokenize(p.SKU, locale))
	pr.category, pr.length = termCounts(pr.length, tokenize(typeName+" "+colorName, locale))
	pr.description, pr.length = termCounts(pr.length, tokenize(tr.Name+" "+tr.Description, locale))
	return pr
}

func termCounts(length int, tokens []string) (map[string]int, int) {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts, length + len(tokens)
}

// rank scores the projection against the query terms. ok is false unless
// every term occurs in some field.
func (pr projection) rank(terms []string) (float64, bool) {
	raw := 0.0
	for _, t := range terms {
		id, cat, desc := pr.identifier[t], pr.category[t], pr.description[t]
		if id+cat+desc == 0 {
			return 0, false
		}
		raw += engine.WeightIdentifier*float64(id) +
			engine.WeightCategory*float64(cat) +
			engine.WeightDescription*float64(desc)
	}
	return raw / (1 + math.Log(float64(max(pr.length, 1)))), true
}

// similarityFields are the strings fuzzy matching compares against.
func (pr projection) similarityFields(sku string) []string {
	fields := []string{sku}
	if pr.typeName != "" {
		fields = append(fields, pr.typeName)
		if pr.colorName != "" {
			fields = append(fields, pr.typeName+" "+pr.colorName)
		}
	}
	return fields
}
