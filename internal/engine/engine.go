package engine

import (
	"context"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/filter"
)

// Field weights of the per-locale searchable projection.
const (
	WeightIdentifier  = 1.0
	WeightCategory    = 0.4
	WeightDescription = 0.1
)

// Request is one matcher round trip.
type Request struct {
	// Text is normalized query text. Empty text asks Lexical for browse
	// mode: every record passing Predicate, with rank 0.
	Text      string
	Locale    domain.Locale
	Predicate filter.Predicate
	Sort      string
	Offset    int
	Limit     int

	// Threshold is the minimum similarity a Similar candidate must reach.
	Threshold float64
}

// Page is an ordered slice of candidates and the total number of matches.
type Page struct {
	Candidates []domain.CandidateRecord
	TotalCount int
}

// Searcher is the query capability of a storage engine. Pages are ordered
// the way ranking.Compare orders them, so that pagination applied in
// storage agrees with the final ranking.
type Searcher interface {
	// Lexical runs a weighted multi-field full-text search over the
	// locale's projection (identifier, translated category names,
	// translated descriptive text), setting LexicalRank to the weighted
	// raw rank divided by 1 + ln(document length).
	Lexical(ctx context.Context, req Request) (*Page, error)

	// Similar scores req.Text by trigram similarity against the
	// identifier, the translated type name and the translated
	// "type color" name, keeping candidates at or above req.Threshold.
	Similar(ctx context.Context, req Request) (*Page, error)

	// Identifiers returns up to limit identifiers of listable records.
	Identifiers(ctx context.Context, limit int) ([]string, error)
}

// Indexer is implemented by engines that accept catalog writes.
type Indexer interface {
	// Index adds or updates a single product in the search index.
	Index(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the search index by its ID.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or updates multiple products in the search index.
	BulkIndex(ctx context.Context, products []domain.Product) error
}

// Pinger is implemented by engines with a remote backend.
type Pinger interface {
	Ping(ctx context.Context) error
}
