package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type EventRepository struct {
	s *Store
}

func (r *EventRepository) Create(_ context.Context, event domain.Event) (domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event.ID = r.s.nextID()
	now := r.s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = domain.EventStatusUpcoming
	}
	r.s.events[event.ID] = event
	r.s.managers[managerKey{eventID: event.ID, userID: event.CreatedBy}] = domain.RoleManage

	return event, nil
}

func (r *EventRepository) FindByID(_ context.Context, id uint) (domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	event, ok := r.s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}

	return event, nil
}

func (r *EventRepository) FindByJoinToken(_ context.Context, token string) (domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, event := range r.s.events {
		if event.JoinToken == token {
			return event, nil
		}
	}

	return domain.Event{}, domain.ErrEventNotFound
}

// Update holds the event's ledger lock so capacity changes and joins are ordered.
func (r *EventRepository) Update(_ context.Context, id uint, mutate func(event *domain.Event, participants int) error) (domain.Event, error) {
	lock := r.s.eventLock(id)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}

	next := current
	if err := mutate(&next, r.s.countParticipants(id)); err != nil {
		return domain.Event{}, err
	}
	next.ID = current.ID
	next.JoinToken = current.JoinToken
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.s.now()
	r.s.events[id] = next

	return next, nil
}

func (r *EventRepository) List(_ context.Context, q domain.EventQuery, now time.Time) ([]domain.Event, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	matched := make([]domain.Event, 0)
	for _, event := range r.s.events {
		if q.ManagedBy != 0 {
			if _, ok := r.s.managers[managerKey{eventID: event.ID, userID: q.ManagedBy}]; !ok {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(event.Title), search) &&
			!strings.Contains(strings.ToLower(event.Location), search) {
			continue
		}
		if q.Status != "" && event.DisplayStatus(now) != q.Status {
			continue
		}
		matched = append(matched, event)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch q.SortBy {
		case domain.EventSortCreatedAt:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		case domain.EventSortTitle:
			less, equal = a.Title < b.Title, a.Title == b.Title
		default:
			less, equal = a.StartTime.Before(b.StartTime), a.StartTime.Equal(b.StartTime)
		}
		if equal {
			return a.ID < b.ID
		}
		if q.Desc {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Size > 0 && start+q.Size < end {
		end = start + q.Size
	}

	return append([]domain.Event(nil), matched[start:end]...), total, nil
}

func (r *EventRepository) CountByDisplayStatus(_ context.Context, now time.Time) (domain.EventCounters, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var counters domain.EventCounters
	for _, event := range r.s.events {
		counters.Add(event.DisplayStatus(now), 1)
	}

	return counters, nil
}

func (r *EventRepository) CountManagedBy(_ context.Context, userID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for key := range r.s.managers {
		if key.userID == userID {
			n++
		}
	}

	return n, nil
}

func (r *EventRepository) FindManagers(_ context.Context, eventIDs []uint) ([]domain.EventManager, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uint]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = struct{}{}
	}

	managers := make([]domain.EventManager, 0)
	for key, role := range r.s.managers {
		if _, ok := wanted[key.eventID]; ok {
			managers = append(managers, domain.EventManager{EventID: key.eventID, UserID: key.userID, Role: role})
		}
	}
	sort.Slice(managers, func(i, j int) bool {
		if managers[i].EventID != managers[j].EventID {
			return managers[i].EventID < managers[j].EventID
		}
		return managers[i].UserID < managers[j].UserID
	})

	return managers, nil
}

func (r *EventRepository) FindRoles(_ context.Context, eventID uint, userIDs []uint) (map[uint]domain.EventRole, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	roles := make(map[uint]domain.EventRole, len(userIDs))
	for _, userID := range userIDs {
		if role, ok := r.s.managers[managerKey{eventID: eventID, userID: userID}]; ok {
			roles[userID] = role
		}
	}

	return roles, nil
}

func (r *EventRepository) UpsertManager(_ context.Context, m domain.EventManager) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[m.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	r.s.managers[managerKey{eventID: m.EventID, userID: m.UserID}] = m.Role

	return nil
}

// countParticipants must be called with mu held.
func (s *Store) countParticipants(eventID uint) int {
	n := 0
	for _, p := range s.participations {
		if p.EventID == eventID {
			n++
		}
	}

	return n
}
