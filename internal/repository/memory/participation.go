package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository"
)

type ParticipationRepository struct {
	s *Store
}

// WithinEventLock runs fn while holding the event's ledger mutex. Inserts
// are buffered and only become visible when fn returns nil.
func (r *ParticipationRepository) WithinEventLock(ctx context.Context, eventID uint, fn repository.LedgerFunc) error {
	lock := r.s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.RLock()
	event, ok := r.s.events[eventID]
	r.s.mu.RUnlock()
	if !ok {
		return domain.ErrEventNotFound
	}

	ledger := &memLedger{s: r.s, eventID: eventID}
	if err := fn(ctx, event, ledger); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range ledger.pending {
		r.s.participations[p.ID] = p
	}

	return nil
}

func (r *ParticipationRepository) CountByEvents(_ context.Context, eventIDs []uint) (map[uint]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uint]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = struct{}{}
	}

	counts := make(map[uint]int, len(eventIDs))
	for _, p := range r.s.participations {
		if _, ok := wanted[p.EventID]; ok {
			counts[p.EventID]++
		}
	}

	return counts, nil
}

func (r *ParticipationRepository) FindByEvent(_ context.Context, eventID uint) ([]domain.Participation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Participation, 0)
	for _, p := range r.s.participations {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *ParticipationRepository) Find(_ context.Context, eventID, userID uint) (domain.Participation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if p, ok := r.s.findParticipation(eventID, userID); ok {
		return p, nil
	}

	return domain.Participation{}, domain.ErrParticipationNotFound
}

func (r *ParticipationRepository) RegisteredEventIDs(_ context.Context, userID uint, eventIDs []uint) (map[uint]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	registered := make(map[uint]bool, len(eventIDs))
	for _, eventID := range eventIDs {
		if _, ok := r.s.findParticipation(eventID, userID); ok {
			registered[eventID] = true
		}
	}

	return registered, nil
}

func (r *ParticipationRepository) DeleteUsers(_ context.Context, eventID uint, userIDs []uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	targets := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		targets[id] = struct{}{}
	}

	var removed int64
	for id, p := range r.s.participations {
		if p.EventID != eventID {
			continue
		}
		if _, ok := targets[p.UserID]; ok {
			delete(r.s.participations, id)
			removed++
		}
	}

	return removed, nil
}

func (r *ParticipationRepository) MarkCheckedIn(_ context.Context, eventID, userID uint, at time.Time) (domain.Participation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.findParticipation(eventID, userID)
	if !ok {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	if p.IsCheckedIn() {
		return domain.Participation{}, domain.ErrAlreadyCheckedIn
	}

	p.CheckedInAt = &at
	r.s.participations[p.ID] = p

	return p, nil
}

// findParticipation must be called with mu held.
func (s *Store) findParticipation(eventID, userID uint) (domain.Participation, bool) {
	for _, p := range s.participations {
		if p.EventID == eventID && p.UserID == userID {
			return p, true
		}
	}

	return domain.Participation{}, false
}

type memLedger struct {
	s       *Store
	eventID uint
	pending []domain.Participation
}

func (l *memLedger) Count(_ context.Context) (int, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return l.s.countParticipants(l.eventID) + len(l.pending), nil
}

func (l *memLedger) JoinedUserIDs(_ context.Context, userIDs []uint) ([]uint, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	joined := make([]uint, 0)
	for _, userID := range userIDs {
		if _, ok := l.s.findParticipation(l.eventID, userID); ok || l.isPending(userID) {
			joined = append(joined, userID)
		}
	}

	return joined, nil
}

func (l *memLedger) Insert(_ context.Context, userIDs []uint, joinedAt time.Time) ([]domain.Participation, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	seen := make(map[uint]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			return nil, domain.ErrAlreadyJoined
		}
		seen[userID] = struct{}{}
		if _, ok := l.s.findParticipation(l.eventID, userID); ok || l.isPending(userID) {
			return nil, domain.ErrAlreadyJoined
		}
	}

	inserted := make([]domain.Participation, 0, len(userIDs))
	for _, userID := range userIDs {
		p := domain.Participation{
			ID:       l.s.nextID(),
			EventID:  l.eventID,
			UserID:   userID,
			JoinedAt: joinedAt,
		}
		inserted = append(inserted, p)
	}
	l.pending = append(l.pending, inserted...)

	return inserted, nil
}

func (l *memLedger) isPending(userID uint) bool {
	for _, p := range l.pending {
		if p.UserID == userID {
			return true
		}
	}

	return false
}
