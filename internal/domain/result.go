package domain

import (
	"time"

	"github.com/utafrali/catalogsearch/pkg/pagination"
)

// Tier names the matching strategy that produced a response.
type Tier string

const (
	TierExact Tier = "exact"
	TierFuzzy Tier = "fuzzy"
	TierEmpty Tier = "empty"
)

// Outcome is the terminal state of a search.
type Outcome string

const (
	OutcomeExactHit             Outcome = "exact_hit"
	OutcomeFuzzyHit             Outcome = "fuzzy_hit"
	OutcomeEmptyWithSuggestions Outcome = "empty_with_suggestions"
	OutcomeEmptyNoSuggestions   Outcome = "empty_no_suggestions"
)

// CandidateRecord is a matched record in the requested locale.
type CandidateRecord struct {
	ID              string     `json:"id"`
	SKU             string     `json:"sku"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	TypeName        string     `json:"type_name,omitempty"`
	ColorName       string     `json:"color_name,omitempty"`
	Attributes      Attributes `json:"attributes"`
	LexicalRank     float64    `json:"lexical_rank"`
	SimilarityScore float64    `json:"similarity_score"`
	CreatedAt       time.Time  `json:"created_at"`
}

// RankedResult is a candidate with its final score and absolute 1-based
// position in the result set.
type RankedResult struct {
	CandidateRecord
	Tier     Tier    `json:"tier"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// SuggestionSource names the vocabulary a suggestion came from.
type SuggestionSource string

const (
	SourceIdentifier SuggestionSource = "identifier"
	SourceType       SuggestionSource = "type"
	SourceColor      SuggestionSource = "color"
	SourceCut        SuggestionSource = "cut"
	SourceClarity    SuggestionSource = "clarity"
	SourceOrigin     SuggestionSource = "origin"
)

// SourceFor maps a categorical attribute to its suggestion source.
func SourceFor(attr Attribute) SuggestionSource {
	return SuggestionSource(attr)
}

// SuggestionCandidate is a "did you mean" term with its similarity to the
// query.
type SuggestionCandidate struct {
	Text   string           `json:"text"`
	Score  float64          `json:"score"`
	Source SuggestionSource `json:"source"`
}

// ResultPage is one materialized page of ranked results. It is what the
// result cache stores.
type ResultPage struct {
	Results    []RankedResult `json:"results"`
	TotalCount int            `json:"total_count"`
	Tier       Tier           `json:"tier"`
}

// SearchResponse is returned to the presentation layer.
type SearchResponse struct {
	Results     []RankedResult        `json:"results"`
	Pagination  pagination.Meta       `json:"pagination"`
	Tier        Tier                  `json:"tier"`
	Outcome     Outcome               `json:"outcome"`
	Suggestions []SuggestionCandidate `json:"suggestions"`
	Cached      bool                  `json:"cached"`
	TookMs      int64                 `json:"took_ms"`
}
