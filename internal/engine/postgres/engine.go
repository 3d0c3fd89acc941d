// Package postgres implements engine.Searcher on PostgreSQL full-text
// search (tsvector, ts_rank) and the pg_trgm extension.
//
// The engine reads two relations that the catalog maintains:
//
//	products(id, sku, type_code, color_code, cut_code, clarity_code,
//	         origin_code, price_minor, currency, weight_carats, in_stock,
//	         media_count, has_certification, created_at)
//	product_search(product_id, locale, document, type_name, color_name,
//	               name, description)
//
// product_search holds one row per record and locale. Its document is
// weighted A for the identifier, B for the translated category names and
// D for the translated name and description.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/filter"
	"github.com/utafrali/catalogsearch/pkg/database"
)

// DBTX is the subset of *pgxpool.Pool the engine uses.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// rankWeights are the ts_rank weights for labels {D, C, B, A}: description
// 0.1, unused C 0, category 0.4, identifier 1.0.
const rankWeights = "{0.1, 0, 0.4, 1.0}"

// rankNormalization 1 divides the rank by 1 + ln(document length).
const rankNormalization = 1

var textSearchConfigs = map[domain.Locale]string{
	domain.LocaleEN: "english",
	domain.LocaleRU: "russian",
}

var columns = map[filter.Field]string{
	filter.FieldPrice:            "p.price_minor",
	filter.FieldWeight:           "p.weight_carats",
	filter.FieldType:             "p.type_code",
	filter.FieldColor:            "p.color_code",
	filter.FieldCut:              "p.cut_code",
	filter.FieldClarity:          "p.clarity_code",
	filter.FieldOrigin:           "p.origin_code",
	filter.FieldInStock:          "p.in_stock",
	filter.FieldMediaCount:       "p.media_count",
	filter.FieldHasCertification: "p.has_certification",
}

const candidateColumns = `p.id, p.sku, s.name,
		COALESCE(s.description, '') AS description,
		COALESCE(s.type_name, '') AS type_name,
		COALESCE(s.color_name, '') AS color_name,
		p.type_code, p.color_code,
		COALESCE(p.cut_code, '') AS cut_code,
		COALESCE(p.clarity_code, '') AS clarity_code,
		COALESCE(p.origin_code, '') AS origin_code,
		p.price_minor, p.currency, p.weight_carats, p.in_stock, p.media_count,
		p.has_certification, p.created_at`

// Engine is a PostgreSQL-backed implementation of engine.Searcher.
type Engine struct {
	db DBTX
}

var (
	_ engine.Searcher = (*Engine)(nil)
	_ engine.Pinger   = (*Engine)(nil)
)

// New creates an engine over db.
func New(db DBTX) *Engine {
	return &Engine{db: db}
}

// Ping checks whether the database is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// queryBuilder accumulates positional arguments.
type queryBuilder struct {
	conditions []string
	args       []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conditions = append(b.conditions, cond)
}

func (b *queryBuilder) predicate(p filter.Predicate) error {
	for _, c := range p.Clauses {
		col, ok := columns[c.Field]
		if !ok {
			return fmt.Errorf("postgres: unsupported filter field %q", c.Field)
		}
		switch c.Op {
		case filter.OpIn:
			b.where(fmt.Sprintf("%s = ANY(%s)", col, b.arg(c.Value)))
		case filter.OpGt, filter.OpGte, filter.OpLte, filter.OpEq:
			b.where(fmt.Sprintf("%s %s %s", col, c.Op, b.arg(c.Value)))
		default:
			return fmt.Errorf("postgres: unsupported operator %q", c.Op)
		}
	}
	return nil
}

func (b *queryBuilder) whereClause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conditions, " AND ")
}

func orderBy(sort, scoreColumn string) string {
	var keys []string
	switch sort {
	case domain.SortPriceAsc:
		keys = append(keys, "price_minor ASC")
	case domain.SortPriceDesc:
		keys = append(keys, "price_minor DESC")
	case domain.SortNewest:
		keys = append(keys, "created_at DESC")
	}
	keys = append(keys, scoreColumn+" DESC", "created_at DESC", "id ASC")
	return "ORDER BY " + strings.Join(keys, ", ")
}

func limitClause(b *queryBuilder, req engine.Request) string {
	limit := "ALL"
	if req.Limit > 0 {
		limit = b.arg(req.Limit)
	}
	return fmt.Sprintf("LIMIT %s OFFSET %s", limit, b.arg(max(req.Offset, 0)))
}

func textSearchConfig(locale domain.Locale) string {
	if cfg, ok := textSearchConfigs[locale]; ok {
		return cfg
	}
	return "simple"
}

// Lexical implements engine.Searcher.
func (e *Engine) Lexical(ctx context.Context, req engine.Request) (*engine.Page, error) {
	b := &queryBuilder{}
	locale := b.arg(string(req.Locale))

	rank := "0::float8"
	if req.Text != "" {
		tsquery := fmt.Sprintf("plainto_tsquery(%s::regconfig, %s)", b.arg(textSearchConfig(req.Locale)), b.arg(req.Text))
		rank = fmt.Sprintf("ts_rank('%s', s.document, %s, %d)", rankWeights, tsquery, rankNormalization)
		b.where("s.document @@ " + tsquery)
	}
	if err := b.predicate(req.Predicate); err != nil {
		return nil, err
	}

	body := fmt.Sprintf(`
		SELECT %s,
			%s AS score
		FROM products p
		JOIN product_search s ON s.product_id = p.id AND s.locale = %s
		%s`,
		candidateColumns, rank, locale, b.whereClause(),
	)

	return e.pagedSelect(ctx, "search.lexical", b, body, req, func(c *domain.CandidateRecord, score float64) {
		c.LexicalRank = score
	})
}

// Similar implements engine.Searcher.
func (e *Engine) Similar(ctx context.Context, req engine.Request) (*engine.Page, error) {
	if req.Text == "" {
		return &engine.Page{}, nil
	}

	b := &queryBuilder{}
	text := b.arg(req.Text)
	locale := b.arg(string(req.Locale))
	if err := b.predicate(req.Predicate); err != nil {
		return nil, err
	}
	threshold := b.arg(req.Threshold)

	body := fmt.Sprintf(`
		SELECT * FROM (
			SELECT %s,
				GREATEST(
					similarity(p.sku, %[2]s),
					similarity(s.type_name, %[2]s),
					similarity(s.type_name || ' ' || s.color_name, %[2]s)
				) AS score
			FROM products p
			JOIN product_search s ON s.product_id = p.id AND s.locale = %[3]s
			%[4]s
		) scored
		WHERE score >= %[5]s AND score > 0`,
		candidateColumns, text, locale, b.whereClause(), threshold,
	)

	return e.pagedSelect(ctx, "search.similar", b, body, req, func(c *domain.CandidateRecord, score float64) {
		c.SimilarityScore = score
	})
}

// maxIdentifiers caps Identifiers when the caller passes no limit.
const maxIdentifiers = 10000

// Identifiers implements engine.Searcher.
func (e *Engine) Identifiers(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT sku
		FROM products
		WHERE price_minor > 0 AND media_count > 0 AND sku <> ''
		ORDER BY sku
		LIMIT $1`
	if limit <= 0 {
		limit = maxIdentifiers
	}

	ctx, end := database.TraceQuery(ctx, "search.identifiers", query)
	rows, err := e.db.Query(ctx, query, limit)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			end(err)
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ids = append(ids, sku)
	}

	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("iterate identifiers: %w", err)
	}
	return ids, nil
}

// pagedSelect reads one page of the rows selected by body. body must expose
// a score column and use only the arguments already bound in b.
func (e *Engine) pagedSelect(
	ctx context.Context,
	op string,
	b *queryBuilder,
	body string,
	req engine.Request,
	setScore func(*domain.CandidateRecord, float64),
) (*engine.Page, error) {
	matchArgs := b.args[:len(b.args):len(b.args)]
	query := fmt.Sprintf(`
		SELECT *, count(*) OVER() AS total_count
		FROM (%s) matched
		%s
		%s`,
		body, orderBy(req.Sort, "score"), limitClause(b, req),
	)

	page, err := e.queryPage(ctx, op, query, b.args, setScore)
	if err != nil {
		return nil, err
	}
	if len(page.Candidates) == 0 && req.Offset > 0 {
		// Past the last page the window count has no row to travel on.
		total, err := e.count(ctx, op+".count", body, matchArgs)
		if err != nil {
			return nil, err
		}
		page.TotalCount = total
	}
	return page, nil
}

func (e *Engine) count(ctx context.Context, op, body string, args []any) (int, error) {
	query := fmt.Sprintf("SELECT count(*) FROM (%s) matched", body)

	ctx, end := database.TraceQuery(ctx, op, query)
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		end(err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var total int
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			end(err)
			return 0, fmt.Errorf("%s: scan count: %w", op, err)
		}
	}

	err = rows.Err()
	end(err)
	if err != nil {
		return 0, fmt.Errorf("%s: iterate rows: %w", op, err)
	}
	return total, nil
}

func (e *Engine) queryPage(
	ctx context.Context,
	op, query string,
	args []any,
	setScore func(*domain.CandidateRecord, float64),
) (*engine.Page, error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	page := &engine.Page{Candidates: []domain.CandidateRecord{}}
	for rows.Next() {
		var (
			c     domain.CandidateRecord
			score float64
		)
		a := &c.Attributes
		if err := rows.Scan(
			&c.ID, &c.SKU, &c.Name, &c.Description, &c.TypeName, &c.ColorName,
			&a.Type, &a.Color, &a.Cut, &a.Clarity, &a.Origin,
			&a.PriceMinor, &a.Currency, &a.WeightCarats, &a.InStock, &a.MediaCount,
			&a.HasCertification, &c.CreatedAt,
			&score, &page.TotalCount,
		); err != nil {
			end(err)
			return nil, fmt.Errorf("%s: scan candidate: %w", op, err)
		}
		setScore(&c, score)
		page.Candidates = append(page.Candidates, c)
	}

	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("%s: iterate rows: %w", op, err)
	}
	return page, nil
}
