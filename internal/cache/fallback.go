package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"github.com/kapu/discord-dispatch-bot/internal/util"
	"go.uber.org/zap"
)

// FallbackBusyStore serves busy flags from primary and switches to the
// in-process secondary while primary keeps failing. Flags written during an
// outage live only in this process. Releases the primary missed are kept and
// replayed before it is trusted again.
type FallbackBusyStore struct {
	primary   emitter.BusyStore
	secondary emitter.BusyStore
	breaker   *util.CircuitBreaker
	logger    *zap.Logger

	mu       sync.Mutex
	released map[string]struct{}
}

func NewFallbackBusyStore(primary emitter.BusyStore, ttl time.Duration, breaker *util.CircuitBreaker, logger *zap.Logger) *FallbackBusyStore {
	return &FallbackBusyStore{
		primary:   primary,
		secondary: emitter.NewMemoryBusyStore(ttl),
		breaker:   breaker,
		logger:    logger,
		released:  make(map[string]struct{}),
	}
}

func (s *FallbackBusyStore) IsBusy(ctx context.Context, key string) (bool, error) {
	if s.breaker.CanExecute() && s.replayReleases(ctx) {
		busy, err := s.primary.IsBusy(ctx, key)
		if err == nil {
			s.breaker.RecordSuccess()
			return busy || s.secondaryBusy(ctx, key), nil
		}
		s.breaker.RecordFailure()
		s.logger.Warn("Busy store unavailable, using local state", zap.String("key", key), zap.Error(err))
	}
	return s.secondary.IsBusy(ctx, key)
}

func (s *FallbackBusyStore) SetBusy(ctx context.Context, key string, busy bool) error {
	// local state mirrors every write
	if err := s.secondary.SetBusy(ctx, key, busy); err != nil {
		return err
	}

	s.mu.Lock()
	if busy {
		delete(s.released, key)
	} else {
		s.released[key] = struct{}{}
	}
	s.mu.Unlock()

	if !s.breaker.CanExecute() {
		return nil
	}
	if !busy {
		s.replayReleases(ctx)
		return nil
	}
	if err := s.primary.SetBusy(ctx, key, true); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("Busy store unavailable, kept local state", zap.String("key", key), zap.Error(err))
		return nil
	}
	s.breaker.RecordSuccess()
	return nil
}

// PendingReleases reports how many releases still have to reach primary.
func (s *FallbackBusyStore) PendingReleases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.released)
}

// replayReleases deletes every missed release from primary and reports
// whether primary is now consistent with local state.
func (s *FallbackBusyStore) replayReleases(ctx context.Context) bool {
	// held across the deletes so an acquire cannot land between them
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.released {
		if err := s.primary.SetBusy(ctx, key, false); err != nil {
			s.breaker.RecordFailure()
			s.logger.Warn("Busy store unavailable, release deferred", zap.String("key", key), zap.Error(err))
			return false
		}
		s.breaker.RecordSuccess()
		delete(s.released, key)
	}
	return true
}

func (s *FallbackBusyStore) secondaryBusy(ctx context.Context, key string) bool {
	busy, _ := s.secondary.IsBusy(ctx, key)
	return busy
}
