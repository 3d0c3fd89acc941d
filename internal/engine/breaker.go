package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/pkg/breaker"
)

// Breaker guards a Searcher with a circuit breaker. Every failure, including
// a rejected call while the circuit is open, is reported as
// domain.ErrStorageUnavailable. Cancelled calls do not count as failures.
type Breaker struct {
	inner Searcher
	cb    *gobreaker.CircuitBreaker[any]
}

var _ Searcher = (*Breaker)(nil)

// NewBreaker wraps inner.
func NewBreaker(inner Searcher, cfg breaker.Config, logger *slog.Logger) *Breaker {
	return &Breaker{
		inner: inner,
		cb:    breaker.New[any](cfg, logger, countsAsSuccess),
	}
}

func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// Lexical implements Searcher.
func (b *Breaker) Lexical(ctx context.Context, req Request) (*Page, error) {
	return execute(b, func() (*Page, error) { return b.inner.Lexical(ctx, req) })
}

// Similar implements Searcher.
func (b *Breaker) Similar(ctx context.Context, req Request) (*Page, error) {
	return execute(b, func() (*Page, error) { return b.inner.Similar(ctx, req) })
}

// Identifiers implements Searcher.
func (b *Breaker) Identifiers(ctx context.Context, limit int) ([]string, error) {
	return execute(b, func() ([]string, error) { return b.inner.Identifiers(ctx, limit) })
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, domain.StorageUnavailable(err)
	}
	return res.(T), nil
}
