package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for catalog documents.
const DefaultIndexName = "catalog_products"

// buildIndexMapping returns the JSON mapping for the catalog index. Each
// locale gets an object with language-analyzed text and a trigram subfield
// on the category names used to fetch fuzzy candidates.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "trigram_analyzer": {
          "type": "custom",
          "tokenizer": "trigram_tokenizer",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "trigram_tokenizer": {
          "type": "ngram",
          "min_gram": 3,
          "max_gram": 3,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "sku":               { "type": "text", "analyzer": "standard", "fields": { "keyword": { "type": "keyword" }, "trigram": { "type": "text", "analyzer": "trigram_analyzer" } } },
      "type":              { "type": "keyword" },
      "color":             { "type": "keyword" },
      "cut":               { "type": "keyword" },
      "clarity":           { "type": "keyword" },
      "origin":            { "type": "keyword" },
      "price_minor":       { "type": "long" },
      "currency":          { "type": "keyword" },
      "weight_carats":     { "type": "double" },
      "in_stock":          { "type": "boolean" },
      "media_count":       { "type": "integer" },
      "has_certification": { "type": "boolean" },
      "created_at":        { "type": "date" },
      "updated_at":        { "type": "date" },
      "en": { "properties": {
        "name":        { "type": "text", "analyzer": "english" },
        "description": { "type": "text", "analyzer": "english" },
        "type_name":   { "type": "text", "analyzer": "english", "fields": { "trigram": { "type": "text", "analyzer": "trigram_analyzer" } } },
        "color_name":  { "type": "text", "analyzer": "english", "fields": { "trigram": { "type": "text", "analyzer": "trigram_analyzer" } } }
      } },
      "ru": { "properties": {
        "name":        { "type": "text", "analyzer": "russian" },
        "description": { "type": "text", "analyzer": "russian" },
        "type_name":   { "type": "text", "analyzer": "russian", "fields": { "trigram": { "type": "text", "analyzer": "trigram_analyzer" } } },
        "color_name":  { "type": "text", "analyzer": "russian", "fields": { "trigram": { "type": "text", "analyzer": "trigram_analyzer" } } }
      } }
    }
  }
}`
}
