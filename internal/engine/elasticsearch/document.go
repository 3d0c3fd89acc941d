package elasticsearch

import (
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// localized is the per-locale searchable projection of a record.
type localized struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TypeName    string `json:"type_name,omitempty"`
	ColorName   string `json:"color_name,omitempty"`
}

// document is the indexed form of a product.
type document struct {
	ID               string    `json:"id"`
	SKU              string    `json:"sku"`
	Type             string    `json:"type"`
	Color            string    `json:"color"`
	Cut              string    `json:"cut,omitempty"`
	Clarity          string    `json:"clarity,omitempty"`
	Origin           string    `json:"origin,omitempty"`
	PriceMinor       int64     `json:"price_minor"`
	Currency         string    `json:"currency"`
	WeightCarats     float64   `json:"weight_carats"`
	InStock          bool      `json:"in_stock"`
	MediaCount       int       `json:"media_count"`
	HasCertification bool      `json:"has_certification"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	EN *localized `json:"en,omitempty"`
	RU *localized `json:"ru,omitempty"`
}

// newDocument projects p into every supported locale using the catalog's
// translated labels. Missing labels stay empty; codes are never indexed as
// text.
func newDocument(p *domain.Product, catalog *domain.Catalog) document {
	a := p.Attributes
	doc := document{
		ID:               p.ID,
		SKU:              p.SKU,
		Type:             a.Type,
		Color:            a.Color,
		Cut:              a.Cut,
		Clarity:          a.Clarity,
		Origin:           a.Origin,
		PriceMinor:       a.PriceMinor,
		Currency:         a.Currency,
		WeightCarats:     a.WeightCarats,
		InStock:          a.InStock,
		MediaCount:       a.MediaCount,
		HasCertification: a.HasCertification,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, l := range domain.SupportedLocales() {
		tr := p.Translation(l)
		typeName, _ := catalog.Label(domain.AttrType, a.Type, l)
		colorName, _ := catalog.Label(domain.AttrColor, a.Color, l)
		doc.setLocalized(l, &localized{
			Name:        tr.Name,
			Description: tr.Description,
			TypeName:    typeName,
			ColorName:   colorName,
		})
	}
	return doc
}

func (d *document) setLocalized(l domain.Locale, v *localized) {
	switch l {
	case domain.LocaleEN:
		d.EN = v
	case domain.LocaleRU:
		d.RU = v
	}
}

func (d *document) localized(l domain.Locale) localized {
	var v *localized
	switch l {
	case domain.LocaleRU:
		v = d.RU
	default:
		v = d.EN
	}
	if v == nil {
		return localized{}
	}
	return *v
}

// candidate converts a hit into a candidate record in locale.
func (d *document) candidate(l domain.Locale) domain.CandidateRecord {
	loc := d.localized(l)
	return domain.CandidateRecord{
		ID:          d.ID,
		SKU:         d.SKU,
		Name:        loc.Name,
		Description: loc.Description,
		TypeName:    loc.TypeName,
		ColorName:   loc.ColorName,
		Attributes: domain.Attributes{
			Type:             d.Type,
			Color:            d.Color,
			Cut:              d.Cut,
			Clarity:          d.Clarity,
			Origin:           d.Origin,
			PriceMinor:       d.PriceMinor,
			Currency:         d.Currency,
			WeightCarats:     d.WeightCarats,
			InStock:          d.InStock,
			MediaCount:       d.MediaCount,
			HasCertification: d.HasCertification,
		},
		CreatedAt: d.CreatedAt,
	}
}
