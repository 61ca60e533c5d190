package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"byronhub/internal/metrics"
	"byronhub/internal/model"
)

var (
	// ErrStale is returned for a fetch that was superseded by a newer Load
	// or whose loader was torn down. Callers drop it silently.
	ErrStale = errors.New("availability result is stale")
	// ErrTornDown is returned by Load after Teardown.
	ErrTornDown = errors.New("loader torn down")
)

// ReservationSource fetches reservation records. An empty spaceID means
// every space.
type ReservationSource interface {
	ReservationsForSpace(ctx context.Context, spaceID model.ID) ([]model.Reservation, error)
}

// Loader fetches and resolves availability for one view. Each Load cancels
// the previous fetch; only the latest result is ever applied.
type Loader struct {
	source   ReservationSource
	resolver *Resolver

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	tornDown   bool
}

// NewLoader binds a loader to its source.
func NewLoader(source ReservationSource, resolver *Resolver) *Loader {
	return &Loader{source: source, resolver: resolver}
}

// Load fetches reservations of spaceID and hands the resolved map to apply,
// unless a newer Load started or the loader was torn down meanwhile. apply
// runs under the loader lock so it cannot race with Teardown.
func (l *Loader) Load(ctx context.Context, spaceID model.ID, apply func(Map)) error {
	l.mu.Lock()
	if l.tornDown {
		l.mu.Unlock()
		return ErrTornDown
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	records, err := l.source.ReservationsForSpace(ctx, spaceID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tornDown || gen != l.generation {
		metrics.IncStaleLoad()
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("fetch reservations: %w", err)
	}
	if apply != nil {
		apply(l.resolver.Resolve(records))
	}
	return nil
}

// Generation returns the number of Load calls started so far.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Teardown cancels the in-flight fetch and rejects later loads.
func (l *Loader) Teardown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tornDown = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
