package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attribute names a categorical attribute domain.
type Attribute string

// Categorical attributes, in the order filters and vocabularies list them.
const (
	AttrType    Attribute = "type"
	AttrColor   Attribute = "color"
	AttrCut     Attribute = "cut"
	AttrClarity Attribute = "clarity"
	AttrOrigin  Attribute = "origin"
)

// CategoricalAttributes returns every categorical attribute in canonical order.
func CategoricalAttributes() []Attribute {
	return []Attribute{AttrType, AttrColor, AttrCut, AttrClarity, AttrOrigin}
}

// AttributeValue is one member of a categorical domain.
type AttributeValue struct {
	Code   string            `yaml:"code"`
	Labels map[Locale]string `yaml:"labels"`
}

// Catalog holds the enumerated domains of the categorical attributes and
// their translated labels. It is read-only after construction.
type Catalog struct {
	domains map[Attribute][]AttributeValue
	index   map[Attribute]map[string]AttributeValue
}

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = mustLoadCatalog(catalogYAML)

// DefaultCatalog returns the attribute catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog parses a YAML attribute catalog keyed by attribute name.
func LoadCatalog(data []byte) (*Catalog, error) {
	var raw map[Attribute][]AttributeValue
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse attribute catalog: %w", err)
	}

	c := &Catalog{
		domains: make(map[Attribute][]AttributeValue, len(raw)),
		index:   make(map[Attribute]map[string]AttributeValue, len(raw)),
	}
	for _, attr := range CategoricalAttributes() {
		values := raw[attr]
		if len(values) == 0 {
			return nil, fmt.Errorf("parse attribute catalog: domain %q is empty", attr)
		}
		idx := make(map[string]AttributeValue, len(values))
		for _, v := range values {
			if v.Code == "" {
				return nil, fmt.Errorf("parse attribute catalog: %s value without code", attr)
			}
			if _, dup := idx[v.Code]; dup {
				return nil, fmt.Errorf("parse attribute catalog: duplicate %s code %q", attr, v.Code)
			}
			idx[v.Code] = v
		}
		c.domains[attr] = values
		c.index[attr] = idx
	}
	return c, nil
}

// Has reports whether code belongs to the attribute's domain.
func (c *Catalog) Has(attr Attribute, code string) bool {
	_, ok := c.index[attr][code]
	return ok
}

// Codes returns the attribute's domain in declaration order.
func (c *Catalog) Codes(attr Attribute) []string {
	values := c.domains[attr]
	codes := make([]string, 0, len(values))
	for _, v := range values {
		codes = append(codes, v.Code)
	}
	return codes
}

// Label returns the translated label of code. ok is false when the code is
// unknown or has no label in locale; callers must not fall back to the code.
func (c *Catalog) Label(attr Attribute, code string, locale Locale) (string, bool) {
	v, ok := c.index[attr][code]
	if !ok {
		return "", false
	}
	label, ok := v.Labels[locale]
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

// Labels returns every translated label of the attribute's domain in locale,
// skipping values that are not translated into it.
func (c *Catalog) Labels(attr Attribute, locale Locale) []string {
	values := c.domains[attr]
	labels := make([]string, 0, len(values))
	for _, v := range values {
		if label, ok := v.Labels[locale]; ok && label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}
