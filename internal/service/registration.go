package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository"
)

var (
	ErrAlreadyJoined         = repository.ErrAlreadyJoined
	ErrParticipationNotFound = repository.ErrParticipationNotFound
	ErrEventFull             = domain.ErrEventFull
	ErrCapacityExceeded      = domain.ErrCapacityExceeded
	ErrEventNotUpcoming      = domain.ErrEventNotUpcoming
	ErrEventStarted          = domain.ErrEventStarted
)

type ParticipationRepository interface {
	WithinEventLock(ctx context.Context, eventID uint, fn repository.LedgerFunc) error
	CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int, error)
	FindByEvent(ctx context.Context, eventID uint) ([]domain.Participation, error)
	Find(ctx context.Context, eventID, userID uint) (domain.Participation, error)
	RegisteredEventIDs(ctx context.Context, userID uint, eventIDs []uint) (map[uint]bool, error)
	DeleteUsers(ctx context.Context, eventID uint, userIDs []uint) (int64, error)
	MarkCheckedIn(ctx context.Context, eventID, userID uint, at time.Time) (domain.Participation, error)
}

type RegistrationService struct {
	events         EventRepository
	participations ParticipationRepository
	users          UserRepository
	cache          *cache.Cache
	now            func() time.Time
}

func NewRegistrationService(
	events EventRepository,
	participations ParticipationRepository,
	users UserRepository,
	c *cache.Cache,
) *RegistrationService {
	return &RegistrationService{
		events:         events,
		participations: participations,
		users:          users,
		cache:          c,
		now:            time.Now,
	}
}

// Join registers userID on the event behind token. The duplicate, capacity
// and status rules are checked in that order inside the event's lock.
func (s *RegistrationService) Join(ctx context.Context, token string, userID uint) (domain.Participation, error) {
	event, err := s.events.FindByJoinToken(ctx, token)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("s.events.FindByJoinToken -> %w", err)
	}

	var joined domain.Participation
	err = s.participations.WithinEventLock(ctx, event.ID, func(ctx context.Context, event domain.Event, ledger repository.Ledger) error {
		existing, err := ledger.JoinedUserIDs(ctx, []uint{userID})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrAlreadyJoined
		}

		count, err := ledger.Count(ctx)
		if err != nil {
			return err
		}
		if !event.Admits(count + 1) {
			return ErrEventFull
		}

		now := s.now()
		if event.DisplayStatus(now) != domain.EventStatusUpcoming {
			return ErrEventNotUpcoming
		}

		inserted, err := ledger.Insert(ctx, []uint{userID}, now)
		if err != nil {
			return err
		}
		joined = inserted[0]

		return nil
	})
	if err != nil {
		return domain.Participation{}, fmt.Errorf("s.participations.WithinEventLock -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.ParticipationRegions...)

	return joined, nil
}

func openForStaff(event domain.Event, now time.Time) error {
	if event.IsCancelled() {
		return ErrEventCancelled
	}
	if event.HasStarted(now) {
		return ErrEventStarted
	}

	return nil
}

// AddParticipants registers the users behind emails on behalf of a staff
// member. Users already registered are skipped; the rest are inserted
// together or not at all.
func (s *RegistrationService) AddParticipants(ctx context.Context, eventID uint, emails []string, actor domain.Principal) ([]domain.Participant, error) {
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleStaff); err != nil {
		return nil, err
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if err = openForStaff(event, s.now()); err != nil {
		return nil, err
	}

	if len(emails) == 0 {
		return []domain.Participant{}, nil
	}

	users, err := s.users.FindByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("s.users.FindByEmails -> %w", err)
	}
	byID := usersByID(users)

	var inserted []domain.Participation
	err = s.participations.WithinEventLock(ctx, eventID, func(ctx context.Context, event domain.Event, ledger repository.Ledger) error {
		now := s.now()
		if err := openForStaff(event, now); err != nil {
			return err
		}

		candidates := make([]uint, 0, len(users))
		for _, u := range users {
			candidates = append(candidates, u.ID)
		}
		joined, err := ledger.JoinedUserIDs(ctx, candidates)
		if err != nil {
			return err
		}
		skip := make(map[uint]struct{}, len(joined))
		for _, id := range joined {
			skip[id] = struct{}{}
		}

		fresh := make([]uint, 0, len(candidates))
		for _, id := range candidates {
			if _, ok := skip[id]; !ok {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			return nil
		}

		count, err := ledger.Count(ctx)
		if err != nil {
			return err
		}
		if !event.Admits(count + len(fresh)) {
			return ErrCapacityExceeded
		}

		inserted, err = ledger.Insert(ctx, fresh, now)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("s.participations.WithinEventLock -> %w", err)
	}

	if len(inserted) > 0 {
		s.cache.Evict(context.WithoutCancel(ctx), cache.ParticipationRegions...)
	}

	participants := make([]domain.Participant, 0, len(inserted))
	for _, p := range inserted {
		participants = append(participants, domain.NewParticipant(p, byID[p.UserID]))
	}

	return participants, nil
}

// RemoveParticipants removes the targets the actor outranks. Targets the
// actor may not remove are skipped, not reported as errors.
func (s *RegistrationService) RemoveParticipants(ctx context.Context, eventID uint, userIDs []uint, actor domain.Principal) (domain.RemovalResult, error) {
	targets := make([]uint, 0, len(userIDs))
	seen := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	result := domain.RemovalResult{Requested: len(targets)}

	roles, err := s.events.FindRoles(ctx, eventID, append([]uint{actor.UserID}, targets...))
	if err != nil {
		return domain.RemovalResult{}, fmt.Errorf("s.events.FindRoles -> %w", err)
	}
	actorRole := roles[actor.UserID]
	if actorRole == domain.RoleNone && !actor.IsAdmin() {
		return domain.RemovalResult{}, ErrInsufficientRole
	}

	if _, err = s.events.FindByID(ctx, eventID); err != nil {
		return domain.RemovalResult{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	allowed := make([]uint, 0, len(targets))
	for _, id := range targets {
		if actorRole.CanRemove(roles[id]) {
			allowed = append(allowed, id)
		}
	}
	if len(allowed) == 0 {
		return result, nil
	}

	result.Removed, err = s.participations.DeleteUsers(ctx, eventID, allowed)
	if err != nil {
		return domain.RemovalResult{}, fmt.Errorf("s.participations.DeleteUsers -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.ParticipationRegions...)

	return result, nil
}

func (s *RegistrationService) CancelMyRegistration(ctx context.Context, eventID, userID uint) error {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if event.DisplayStatus(s.now()) != domain.EventStatusUpcoming {
		return ErrEventNotUpcoming
	}

	if _, err = s.participations.Find(ctx, eventID, userID); err != nil {
		return fmt.Errorf("s.participations.Find -> %w", err)
	}

	removed, err := s.participations.DeleteUsers(ctx, eventID, []uint{userID})
	if err != nil {
		return fmt.Errorf("s.participations.DeleteUsers -> %w", err)
	}
	if removed == 0 {
		return ErrParticipationNotFound
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.ParticipationRegions...)

	return nil
}

// GetParticipants lists the event's participants in join order.
func (s *RegistrationService) GetParticipants(ctx context.Context, eventID uint, actor domain.Principal) ([]domain.Participant, error) {
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleStaff); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("event:%d", eventID)

	return cache.GetOrLoad(ctx, s.cache, cache.RegionParticipantsByEvent, key, func(ctx context.Context) ([]domain.Participant, error) {
		if _, err := s.events.FindByID(ctx, eventID); err != nil {
			return nil, fmt.Errorf("s.events.FindByID -> %w", err)
		}

		rows, err := s.participations.FindByEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("s.participations.FindByEvent -> %w", err)
		}

		ids := make([]uint, 0, len(rows))
		for _, p := range rows {
			ids = append(ids, p.UserID)
		}
		users, err := s.users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("s.users.FindByIDs -> %w", err)
		}
		byID := usersByID(users)

		participants := make([]domain.Participant, 0, len(rows))
		for _, p := range rows {
			u, ok := byID[p.UserID]
			if !ok {
				u = domain.User{ID: p.UserID}
			}
			participants = append(participants, domain.NewParticipant(p, u))
		}

		return participants, nil
	})
}
