package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultRetryInterval = time.Minute

// FailoverStore serves from primary and switches to fallback while primary is
// failing. After retryInterval it probes primary again on the next call.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown        atomic.Bool
	mu            sync.Mutex
	lastCheck     time.Time
	retryInterval time.Duration
}

// NewFailoverStore wires primary and fallback stores.
func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		logger:        logger,
		retryInterval: defaultRetryInterval,
	}
}

func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) >= s.retryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FailoverStore) markDown(op string, err error) {
	if !s.isDown.Swap(true) {
		s.logger.Warn().Err(err).Str("op", op).Msg("primary store failed, switching to fallback")
	}
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

func (s *FailoverStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("primary store recovered")
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string, out any) (bool, error) {
	if s.usePrimary() {
		found, err := s.primary.Get(ctx, key, out)
		if err == nil {
			s.markUp()
			return found, nil
		}
		s.markDown("get", err)
	}
	return s.fallback.Get(ctx, key, out)
}

func (s *FailoverStore) Set(ctx context.Context, key string, value any) error {
	if s.usePrimary() {
		err := s.primary.Set(ctx, key, value)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown("set", err)
	}
	return s.fallback.Set(ctx, key, value)
}

func (s *FailoverStore) Remove(ctx context.Context, key string) error {
	if s.usePrimary() {
		err := s.primary.Remove(ctx, key)
		if err == nil {
			s.markUp()
			// keep fallback from resurrecting the key after a later failover
			_ = s.fallback.Remove(ctx, key)
			return nil
		}
		s.markDown("remove", err)
	}
	return s.fallback.Remove(ctx, key)
}
