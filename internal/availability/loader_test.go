package availability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"byronhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSource blocks its first call until the context is cancelled.
type blockingSource struct {
	calls   atomic.Int32
	records []model.Reservation
	err     error
}

func (s *blockingSource) ReservationsForSpace(ctx context.Context, _ model.ID) ([]model.Reservation, error) {
	if s.calls.Add(1) == 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.records, s.err
}

func TestLoader_Load(t *testing.T) {
	src := &blockingSource{records: []model.Reservation{reservation(1, "2025-05-01T09:00:00Z", 30)}}
	src.calls.Store(1) // skip the blocking call
	l := NewLoader(src, NewResolver(nil))

	var got Map
	require.NoError(t, l.Load(context.Background(), "A0.5", func(m Map) { got = m }))
	assert.Contains(t, got, "1/5/2025")
	assert.Equal(t, uint64(1), l.Generation())
}

func TestLoader_FetchError(t *testing.T) {
	boom := errors.New("boom")
	src := &blockingSource{err: boom}
	src.calls.Store(1)
	l := NewLoader(src, NewResolver(nil))

	applied := false
	err := l.Load(context.Background(), "A0.5", func(Map) { applied = true })
	assert.ErrorIs(t, err, boom)
	assert.False(t, applied)
}

func TestLoader_SupersededLoadIsDiscarded(t *testing.T) {
	src := &blockingSource{records: []model.Reservation{reservation(1, "2025-05-01T09:00:00Z", 30)}}
	l := NewLoader(src, NewResolver(nil))

	var firstApplied atomic.Bool
	firstErr := make(chan error, 1)
	go func() {
		firstErr <- l.Load(context.Background(), "A0.5", func(Map) { firstApplied.Store(true) })
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	var second Map
	require.NoError(t, l.Load(context.Background(), "A1.2", func(m Map) { second = m }))
	assert.NotNil(t, second)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(time.Second):
		t.Fatal("first load did not return")
	}
	assert.False(t, firstApplied.Load())
}

func TestLoader_Teardown(t *testing.T) {
	src := &blockingSource{}
	l := NewLoader(src, NewResolver(nil))

	var applied atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- l.Load(context.Background(), "A0.5", func(Map) { applied.Store(true) })
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	l.Teardown()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(time.Second):
		t.Fatal("load did not return after teardown")
	}
	assert.False(t, applied.Load())
	assert.ErrorIs(t, l.Load(context.Background(), "A0.5", nil), ErrTornDown)
}
