// Package memory holds in-process implementations of the repositories. They
// back the memory storage driver and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type managerKey struct {
	eventID uint
	userID  uint
}

// Store is the shared state behind every memory repository. One RWMutex
// guards all maps; per-event mutexes serialize ledger sections.
type Store struct {
	mu sync.RWMutex

	lastID uint
	now    func() time.Time

	users          map[uint]domain.User
	events         map[uint]domain.Event
	managers       map[managerKey]domain.EventRole
	participations map[uint]domain.Participation
	polls          map[uint]domain.Poll
	votes          map[uint]map[uint][]uint // poll -> user -> option ids

	lockMu     sync.Mutex
	eventLocks map[uint]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		now:            time.Now,
		users:          make(map[uint]domain.User),
		events:         make(map[uint]domain.Event),
		managers:       make(map[managerKey]domain.EventRole),
		participations: make(map[uint]domain.Participation),
		polls:          make(map[uint]domain.Poll),
		votes:          make(map[uint]map[uint][]uint),
		eventLocks:     make(map[uint]*sync.Mutex),
	}
}

// nextID must be called with mu held for writing.
func (s *Store) nextID() uint {
	s.lastID++
	return s.lastID
}

func (s *Store) eventLock(eventID uint) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.eventLocks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.eventLocks[eventID] = l
	}

	return l
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) Events() *EventRepository {
	return &EventRepository{s: s}
}

func (s *Store) Participations() *ParticipationRepository {
	return &ParticipationRepository{s: s}
}

func (s *Store) Polls() *PollRepository {
	return &PollRepository{s: s}
}
