package memory

import (
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
)

type sampleRow struct {
	id, sku                          string
	typ, color, cut, clarity, origin string
	price                            int64
	weight                           float64
	inStock                          bool
	media                            int
	certified                        bool
	en, enDesc, ru, ruDesc           string
}

var sampleRows = []sampleRow{
	{"8f0c6c1e-0001-4c59-9a51-1d7f2f0e0001", "EM-0001", "emerald", "green", "octagon", "vs", "colombia", 450000, 1.2, true, 3, true,
		"Colombian Emerald", "Vivid green stone with a classic octagon step cut", "Колумбийский изумруд", "Яркий зелёный камень, огранка октагон"},
	{"8f0c6c1e-0002-4c59-9a51-1d7f2f0e0002", "EM-0002", "emerald", "green", "oval", "si", "zambia", 180000, 0.9, true, 2, false,
		"Zambian Emerald Oval", "Deep bluish green oval", "Замбийский изумруд", "Глубокий зелёный овал"},
	{"8f0c6c1e-0003-4c59-9a51-1d7f2f0e0003", "EM-0003", "emerald", "green", "cushion", "i", "brazil", 0, 2.3, false, 1, false,
		"Brazilian Emerald Cushion", "Awaiting appraisal", "Бразильский изумруд", "Ожидает оценки"},
	{"8f0c6c1e-0004-4c59-9a51-1d7f2f0e0004", "RB-0001", "ruby", "red", "oval", "vs", "myanmar", 320000, 1.1, true, 4, true,
		"Burmese Ruby", "Pigeon blood red oval from Mogok", "Бирманский рубин", "Овал цвета голубиной крови"},
	{"8f0c6c1e-0005-4c59-9a51-1d7f2f0e0005", "RB-0002", "ruby", "red", "cushion", "si", "mozambique", 4200, 0.7, true, 2, false,
		"Mozambique Ruby", "Bright red cushion", "Мозамбикский рубин", "Яркий красный кушон"},
	{"8f0c6c1e-0006-4c59-9a51-1d7f2f0e0006", "RB-0003", "ruby", "pink", "round", "i", "thailand", 2500, 0.5, false, 0, false,
		"Pink Ruby Round", "Photos pending", "Розовый рубин", "Фото готовятся"},
	{"8f0c6c1e-0007-4c59-9a51-1d7f2f0e0007", "RB-0004", "ruby", "red", "pear", "si", "madagascar", 1500, 0.6, true, 1, false,
		"Ruby Pear", "Small pear shaped red stone", "Рубин груша", "Небольшой красный камень"},
	{"8f0c6c1e-0008-4c59-9a51-1d7f2f0e0008", "SP-0001", "sapphire", "blue", "round", "vvs", "sri_lanka", 270000, 2.1, false, 3, true,
		"Ceylon Sapphire", "Cornflower blue round", "Цейлонский сапфир", "Васильково-синий круг"},
	{"8f0c6c1e-0009-4c59-9a51-1d7f2f0e0009", "SP-0002", "sapphire", "yellow", "oval", "vs", "madagascar", 4800, 1.5, true, 2, false,
		"Yellow Sapphire", "Canary yellow oval", "Жёлтый сапфир", "Канареечно-жёлтый овал"},
	{"8f0c6c1e-0010-4c59-9a51-1d7f2f0e0010", "AL-0001", "alexandrite", "green", "cushion", "vvs", "russia", 650000, 1.0, true, 2, true,
		"Ural Alexandrite", "Green by day, red by candlelight", "Уральский александрит", "Зелёный днём, красный при свечах"},
	{"8f0c6c1e-0011-4c59-9a51-1d7f2f0e0011", "SN-0001", "spinel", "pink", "cushion", "vs", "tanzania", 90000, 1.4, true, 1, false,
		"Mahenge Spinel", "Neon pink cushion", "Шпинель Махенге", "Неоново-розовый кушон"},
}

// SampleProducts returns a small gemstone catalog for local development
// and tests. Records are created an hour apart, newest first, ending at
// now. EM-0003 has no price and RB-0003 no media, so neither is listable.
func SampleProducts(now time.Time) []domain.Product {
	products := make([]domain.Product, 0, len(sampleRows))
	for i, r := range sampleRows {
		created := now.Add(-time.Duration(i) * time.Hour).UTC()
		products = append(products, domain.Product{
			ID:  r.id,
			SKU: r.sku,
			Attributes: domain.Attributes{
				Type:             r.typ,
				Color:            r.color,
				Cut:              r.cut,
				Clarity:          r.clarity,
				Origin:           r.origin,
				PriceMinor:       r.price,
				Currency:         "USD",
				WeightCarats:     r.weight,
				InStock:          r.inStock,
				MediaCount:       r.media,
				HasCertification: r.certified,
			},
			Translations: map[domain.Locale]domain.Translation{
				domain.LocaleEN: {Name: r.en, Description: r.enDesc},
				domain.LocaleRU: {Name: r.ru, Description: r.ruDesc},
			},
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	return products
}
