package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(eventID string) *Event {
	return &Event{
		EventID:     eventID,
		EventType:   "product.updated",
		AggregateID: "prod-123",
	}
}

type failingIdempotencyStore struct{}

func (failingIdempotencyStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("store unavailable")
}

func (failingIdempotencyStore) Add(context.Context, string) error {
	return errors.New("store unavailable")
}

func countingHandler(calls *int32, err error) Handler {
	return func(ctx context.Context, event *Event) error {
		atomic.AddInt32(calls, 1)
		return err
	}
}

func TestMemoryIdempotencyStore_AddContainsExpire(t *testing.T) {
	store := NewMemoryIdempotencyStore(10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-1"))
	got, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, got)

	got, _ = store.Contains(ctx, "unknown")
	assert.False(t, got)

	assert.Eventually(t, func() bool {
		ok, _ := store.Contains(ctx, "evt-1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryIdempotencyStore_BoundedSize(t *testing.T) {
	store := NewMemoryIdempotencyStore(2, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Add(ctx, id))
	}

	assert.Equal(t, 2, store.Len())
	oldest, _ := store.Contains(ctx, "a")
	assert.False(t, oldest)
}

func TestIdempotentHandler_DuplicateSkipped(t *testing.T) {
	var calls int32
	handler := IdempotentHandler(NewMemoryIdempotencyStore(10, time.Minute), countingHandler(&calls, nil), testLogger())
	dups := consumerDuplicates.WithLabelValues("product.updated")
	before := testutil.ToFloat64(dups)

	require.NoError(t, handler(context.Background(), testEvent("evt-dup")))
	require.NoError(t, handler(context.Background(), testEvent("evt-dup")))
	require.NoError(t, handler(context.Background(), testEvent("evt-other")))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, before+1, testutil.ToFloat64(dups))
}

func TestIdempotentHandler_EmptyEventIDPassesThrough(t *testing.T) {
	var calls int32
	handler := IdempotentHandler(NewMemoryIdempotencyStore(10, time.Minute), countingHandler(&calls, nil), testLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, handler(context.Background(), testEvent("")))
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(10, time.Minute)
	handlerErr := errors.New("index failed")
	var calls int32
	handler := IdempotentHandler(store, countingHandler(&calls, handlerErr), testLogger())

	assert.ErrorIs(t, handler(context.Background(), testEvent("evt-err")), handlerErr)
	assert.ErrorIs(t, handler(context.Background(), testEvent("evt-err")), handlerErr)

	exists, err := store.Contains(context.Background(), "evt-err")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotentHandler_StoreErrorFailsOpen(t *testing.T) {
	var calls int32
	handler := IdempotentHandler(failingIdempotencyStore{}, countingHandler(&calls, nil), testLogger())

	require.NoError(t, handler(context.Background(), testEvent("evt-store-fail")))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
