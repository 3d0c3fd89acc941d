package domain

import "time"

// Attributes are the filterable fields of a catalog record.
type Attributes struct {
	Type             string  `json:"type"`
	Color            string  `json:"color"`
	Cut              string  `json:"cut,omitempty"`
	Clarity          string  `json:"clarity,omitempty"`
	Origin           string  `json:"origin,omitempty"`
	PriceMinor       int64   `json:"price_minor"`
	Currency         string  `json:"currency"`
	WeightCarats     float64 `json:"weight_carats"`
	InStock          bool    `json:"in_stock"`
	MediaCount       int     `json:"media_count"`
	HasCertification bool    `json:"has_certification"`
}

// Code returns the record's code for a categorical attribute.
func (a Attributes) Code(attr Attribute) string {
	switch attr {
	case AttrType:
		return a.Type
	case AttrColor:
		return a.Color
	case AttrCut:
		return a.Cut
	case AttrClarity:
		return a.Clarity
	case AttrOrigin:
		return a.Origin
	}
	return ""
}

// Listable reports whether the record passes the display policy: a price
// of zero means unlisted, and a record without media is not ready.
func (a Attributes) Listable() bool {
	return a.PriceMinor > 0 && a.MediaCount > 0
}

// Translation is the locale-specific descriptive text of a record.
type Translation struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Product is a catalog record as the search index stores it.
type Product struct {
	ID           string                 `json:"id"`
	SKU          string                 `json:"sku"`
	Attributes   Attributes             `json:"attributes"`
	Translations map[Locale]Translation `json:"translations"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Translation returns the record's text in locale, falling back to the
// default locale when it is not translated.
func (p *Product) Translation(locale Locale) Translation {
	if t, ok := p.Translations[locale]; ok {
		return t
	}
	return p.Translations[DefaultLocale]
}
