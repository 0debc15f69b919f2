package emitter

import (
	"context"
	"strings"
	"sync"
	"time"
)

// BusyKey identifies one user's interaction with one component on one
// message.
func BusyKey(interactionID, messageID, userID string) string {
	return strings.Join([]string{interactionID, messageID, userID}, "|")
}

func busyKeyOf(i Interaction) string {
	return BusyKey(i.CustomID(), i.MessageID(), i.UserID())
}

// BusyStore records in-flight interactions. A missing key means not busy.
type BusyStore interface {
	IsBusy(ctx context.Context, key string) (bool, error)
	SetBusy(ctx context.Context, key string, busy bool) error
}

// MemoryBusyStore keeps busy flags in process memory. A positive ttl
// releases entries whose holder never cleared them.
type MemoryBusyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryBusyStore(ttl time.Duration) *MemoryBusyStore {
	return &MemoryBusyStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryBusyStore) IsBusy(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.ttl > 0 && s.now().Sub(since) >= s.ttl {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryBusyStore) SetBusy(_ context.Context, key string, busy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if busy {
		s.entries[key] = s.now()
	} else {
		delete(s.entries, key)
	}
	return nil
}
