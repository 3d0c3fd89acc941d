package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
)

// skuPrefixes maps gemstone types to the two-letter SKU prefix used by the
// catalog team. Unlisted types fall back to their first two letters.
var skuPrefixes = map[string]string{
	"emerald":     "EM",
	"ruby":        "RB",
	"sapphire":    "SP",
	"diamond":     "DM",
	"alexandrite": "AL",
	"spinel":      "SN",
	"tourmaline":  "TM",
	"garnet":      "GT",
	"topaz":       "TZ",
	"tanzanite":   "TN",
}

var qualityWords = []string{"Fine", "Vivid", "Classic", "Royal", "Select", "Heirloom"}

// generator produces a deterministic synthetic catalog: the same seed
// always yields the same products and IDs.
type generator struct {
	catalog *domain.Catalog
	rng     *rand.Rand
	seed    uint64
	now     time.Time
	counts  map[string]int
}

func newGenerator(catalog *domain.Catalog, seed uint64, now time.Time) *generator {
	return &generator{
		catalog: catalog,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), // #nosec G404 -- synthetic data
		seed:    seed,
		now:     now,
		counts:  make(map[string]int),
	}
}

// seedNamespace scopes generated product IDs.
var seedNamespace = uuid.MustParse("6f1d2c3a-5b4e-4a9f-8c7d-0e1f2a3b4c5d")

// productID derives a stable UUID from the seed and product index.
func (g *generator) productID(index int) string {
	return uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%d:%d", g.seed, index))).String()
}

func (g *generator) pick(attr domain.Attribute) string {
	codes := g.catalog.Codes(attr)
	return codes[g.rng.IntN(len(codes))]
}

func (g *generator) next(index int) service.IndexProductInput {
	gemType := g.pick(domain.AttrType)
	color := g.pick(domain.AttrColor)
	cut := g.pick(domain.AttrCut)
	clarity := g.pick(domain.AttrClarity)
	origin := g.pick(domain.AttrOrigin)

	prefix, ok := skuPrefixes[gemType]
	if !ok {
		prefix = strings.ToUpper(gemType[:2])
	}
	g.counts[prefix]++

	carats := 0.3 + g.rng.Float64()*4.7
	carats = float64(int(carats*100)) / 100

	// One in twenty stones is unpriced and therefore not listable.
	var price int64
	if g.rng.IntN(20) != 0 {
		price = int64(carats * float64(50_000+g.rng.IntN(400_000)))
	}

	created := g.now.Add(-time.Duration(g.rng.IntN(365*24)) * time.Hour)

	return service.IndexProductInput{
		ID:               g.productID(index),
		SKU:              fmt.Sprintf("%s-%05d", prefix, g.counts[prefix]),
		Type:             gemType,
		Color:            color,
		Cut:              cut,
		Clarity:          clarity,
		Origin:           origin,
		PriceMinor:       price,
		Currency:         "USD",
		WeightCarats:     carats,
		InStock:          g.rng.IntN(4) != 0,
		MediaCount:       g.rng.IntN(5),
		HasCertification: g.rng.IntN(3) == 0,
		Translations:     g.translations(gemType, color, cut, origin, carats),
		CreatedAt:        &created,
	}
}

func (g *generator) translations(gemType, color, cut, origin string, carats float64) map[string]service.TranslationInput {
	out := make(map[string]service.TranslationInput, 2)
	for _, locale := range domain.SupportedLocales() {
		typeLabel, ok := g.catalog.Label(domain.AttrType, gemType, locale)
		if !ok {
			continue
		}
		colorLabel, _ := g.catalog.Label(domain.AttrColor, color, locale)
		cutLabel, _ := g.catalog.Label(domain.AttrCut, cut, locale)
		originLabel, _ := g.catalog.Label(domain.AttrOrigin, origin, locale)

		name := strings.TrimSpace(strings.Join([]string{originLabel, colorLabel, typeLabel}, " "))
		if locale == domain.LocaleEN {
			name = qualityWords[g.rng.IntN(len(qualityWords))] + " " + name
		}
		out[string(locale)] = service.TranslationInput{
			Name:        strings.Join(strings.Fields(name), " "),
			Description: strings.TrimSpace(fmt.Sprintf("%.2f ct %s", carats, cutLabel)),
		}
	}
	return out
}

// generate returns n products.
func (g *generator) generate(n int) []service.IndexProductInput {
	products := make([]service.IndexProductInput, n)
	for i := range products {
		products[i] = g.next(i)
	}
	return products
}

// batches splits products into chunks of at most size.
func batches(products []service.IndexProductInput, size int) [][]service.IndexProductInput {
	var out [][]service.IndexProductInput
	for start := 0; start < len(products); start += size {
		end := min(start+size, len(products))
		out = append(out, products[start:end])
	}
	return out
}
