package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process. Expired entries are skipped on read
// and swept by the janitor.
type MemoryStore struct {
	mu      sync.RWMutex
	regions map[Region]map[string]memoryEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore starts a janitor sweeping expired entries every interval.
// A non-positive interval disables the janitor.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		regions: make(map[Region]map[string]memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if interval > 0 {
		go s.janitor(interval)
	}

	return s
}

func (s *MemoryStore) Get(_ context.Context, region Region, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.regions[region][key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

func (s *MemoryStore) Put(_ context.Context, region Region, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.regions[region]
	if !ok {
		entries = make(map[string]memoryEntry)
		s.regions[region] = entries
	}
	entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

func (s *MemoryStore) EvictRegion(_ context.Context, region Region) error {
	s.mu.Lock()
	delete(s.regions, region)
	s.mu.Unlock()

	return nil
}

// Len counts live entries of a region.
func (s *MemoryStore) Len(region Region) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, entry := range s.regions[region] {
		if now.Before(entry.expiresAt) {
			n++
		}
	}

	return n
}

func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for region, entries := range s.regions {
		for key, entry := range entries {
			if !now.Before(entry.expiresAt) {
				delete(entries, key)
			}
		}
		if len(entries) == 0 {
			delete(s.regions, region)
		}
	}
}
