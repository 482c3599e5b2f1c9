package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var (
	ErrEventNotFound    = domain.ErrEventNotFound
	ErrEventCancelled   = domain.ErrEventCancelled
	ErrCapacityTooLow   = domain.ErrCapacityTooLow
	ErrNotFound         = domain.ErrNotFound
	ErrConflict         = domain.ErrConflict
	ErrForbidden        = domain.ErrForbidden
	ErrValidation       = domain.ErrValidation
	ErrInvalidEventTime = domain.Invalidf("end time must be after start time")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type EventRepository interface {
	RoleFinder
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	FindByJoinToken(ctx context.Context, token string) (domain.Event, error)
	Update(ctx context.Context, id uint, mutate func(event *domain.Event, participants int) error) (domain.Event, error)
	List(ctx context.Context, q domain.EventQuery, now time.Time) ([]domain.Event, int64, error)
	CountByDisplayStatus(ctx context.Context, now time.Time) (domain.EventCounters, error)
	CountManagedBy(ctx context.Context, userID uint) (int64, error)
	FindManagers(ctx context.Context, eventIDs []uint) ([]domain.EventManager, error)
	UpsertManager(ctx context.Context, m domain.EventManager) error
}

type EventService struct {
	events         EventRepository
	participations ParticipationRepository
	users          UserRepository
	cache          *cache.Cache
	qr             QREncoder
	publicURL      string
	now            func() time.Time
}

func NewEventService(
	events EventRepository,
	participations ParticipationRepository,
	users UserRepository,
	c *cache.Cache,
	qr QREncoder,
	publicURL string,
) *EventService {
	return &EventService{
		events:         events,
		participations: participations,
		users:          users,
		cache:          c,
		qr:             qr,
		publicURL:      strings.TrimRight(publicURL, "/"),
		now:            time.Now,
	}
}

func validateSchedule(e domain.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return domain.Invalidf("title is required")
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidEventTime
	}
	if e.MaxParticipants != nil && *e.MaxParticipants < 1 {
		return domain.Invalidf("max participants must be at least 1")
	}

	return nil
}

// CreateEvent stores a new upcoming event and makes its creator a MANAGE manager.
func (s *EventService) CreateEvent(ctx context.Context, input domain.Event, actor domain.Principal) (domain.Event, error) {
	if err := validateSchedule(input); err != nil {
		return domain.Event{}, err
	}

	input.ID = 0
	input.Status = domain.EventStatusUpcoming
	input.JoinToken = uuid.NewString()
	input.CreatedBy = actor.UserID

	created, err := s.events.Create(ctx, input)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.Create -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.EventRegions...)

	return created, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, eventID uint, changes domain.Event, actor domain.Principal) (domain.Event, error) {
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleManage); err != nil {
		return domain.Event{}, err
	}
	if err := validateSchedule(changes); err != nil {
		return domain.Event{}, err
	}

	updated, err := s.events.Update(ctx, eventID, func(e *domain.Event, participants int) error {
		if e.IsCancelled() {
			return ErrEventCancelled
		}
		if changes.MaxParticipants != nil && *changes.MaxParticipants < participants {
			return ErrCapacityTooLow
		}

		e.Title = changes.Title
		e.Description = changes.Description
		e.Location = changes.Location
		e.StartTime = changes.StartTime
		e.EndTime = changes.EndTime
		e.MaxParticipants = changes.MaxParticipants
		e.Banner = changes.Banner
		e.URLDocs = changes.URLDocs

		return nil
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.Update -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.EventRegions...)

	return updated, nil
}

// CancelEvent moves the event to CANCELLED. A cancelled event stays cancelled.
func (s *EventService) CancelEvent(ctx context.Context, eventID uint, actor domain.Principal) (domain.Event, error) {
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleManage); err != nil {
		return domain.Event{}, err
	}

	cancelled, err := s.events.Update(ctx, eventID, func(e *domain.Event, _ int) error {
		if e.IsCancelled() {
			return ErrEventCancelled
		}
		e.Status = domain.EventStatusCancelled

		return nil
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.Update -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.ParticipationRegions...)

	return cancelled, nil
}

func (s *EventService) AssignManager(ctx context.Context, eventID uint, email string, role domain.EventRole, actor domain.Principal) (domain.ManagerView, error) {
	if role != domain.RoleStaff && role != domain.RoleManage {
		return domain.ManagerView{}, domain.Invalidf("role must be STAFF or MANAGE")
	}
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleManage); err != nil {
		return domain.ManagerView{}, err
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return domain.ManagerView{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.ManagerView{}, fmt.Errorf("s.users.FindByEmail -> %w", err)
	}

	err = s.events.UpsertManager(ctx, domain.EventManager{EventID: eventID, UserID: user.ID, Role: role})
	if err != nil {
		return domain.ManagerView{}, fmt.Errorf("s.events.UpsertManager -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.EventRegions...)

	return domain.ManagerView{User: user.Summary(), Role: role.String()}, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID uint, viewer domain.Principal) (domain.EventDetail, error) {
	key := fmt.Sprintf("event:%d:viewer:%d", eventID, viewer.UserID)

	return cache.GetOrLoad(ctx, s.cache, cache.RegionEventDetail, key, func(ctx context.Context) (domain.EventDetail, error) {
		event, err := s.events.FindByID(ctx, eventID)
		if err != nil {
			return domain.EventDetail{}, fmt.Errorf("s.events.FindByID -> %w", err)
		}

		summaries, managers, err := s.summarize(ctx, []domain.Event{event}, viewer.UserID)
		if err != nil {
			return domain.EventDetail{}, err
		}

		userIDs := make([]uint, 0, len(managers))
		for _, m := range managers {
			userIDs = append(userIDs, m.UserID)
		}
		users, err := s.users.FindByIDs(ctx, userIDs)
		if err != nil {
			return domain.EventDetail{}, fmt.Errorf("s.users.FindByIDs -> %w", err)
		}
		byID := usersByID(users)

		detail := domain.EventDetail{
			EventSummary: summaries[0],
			Managers:     make([]domain.ManagerView, 0, len(managers)),
		}
		for _, m := range managers {
			if m.UserID == viewer.UserID {
				detail.MyRole = m.Role.String()
			}
			u, ok := byID[m.UserID]
			if !ok {
				u = domain.User{ID: m.UserID}
			}
			detail.Managers = append(detail.Managers, domain.ManagerView{User: u.Summary(), Role: m.Role.String()})
		}

		return detail, nil
	})
}

// ListEvents returns one page of events with per-status counters for the
// whole catalog and the number of events the viewer manages.
func (s *EventService) ListEvents(ctx context.Context, q domain.EventQuery, viewer domain.Principal) (domain.EventPage, error) {
	q = normalizeQuery(q)
	q.ManagedBy = 0
	key := fmt.Sprintf("%s:viewer:%d", q.CacheKey(), viewer.UserID)

	return cache.GetOrLoad(ctx, s.cache, cache.RegionEventList, key, func(ctx context.Context) (domain.EventPage, error) {
		now := s.now()

		page, err := s.page(ctx, q, viewer.UserID, now)
		if err != nil {
			return domain.EventPage{}, err
		}

		counters, err := s.events.CountByDisplayStatus(ctx, now)
		if err != nil {
			return domain.EventPage{}, fmt.Errorf("s.events.CountByDisplayStatus -> %w", err)
		}
		managed, err := s.events.CountManagedBy(ctx, viewer.UserID)
		if err != nil {
			return domain.EventPage{}, fmt.Errorf("s.events.CountManagedBy -> %w", err)
		}
		counters.Managed = &managed
		page.Counters = &counters

		return page, nil
	})
}

func (s *EventService) ListManagedEvents(ctx context.Context, q domain.EventQuery, viewer domain.Principal) (domain.EventPage, error) {
	q = normalizeQuery(q)
	q.ManagedBy = viewer.UserID

	return cache.GetOrLoad(ctx, s.cache, cache.RegionManagedEvents, q.CacheKey(), func(ctx context.Context) (domain.EventPage, error) {
		return s.page(ctx, q, viewer.UserID, s.now())
	})
}

// JoinQR renders the join link of the event as a PNG QR code.
func (s *EventService) JoinQR(ctx context.Context, eventID uint, actor domain.Principal) ([]byte, error) {
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleStaff); err != nil {
		return nil, err
	}

	return cache.GetOrLoad(ctx, s.cache, cache.RegionQRImage, fmt.Sprintf("join:%d", eventID), func(ctx context.Context) ([]byte, error) {
		event, err := s.events.FindByID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("s.events.FindByID -> %w", err)
		}

		return s.qr.Encode(fmt.Sprintf("%s/join/%s", s.publicURL, event.JoinToken))
	})
}

func (s *EventService) page(ctx context.Context, q domain.EventQuery, viewerID uint, now time.Time) (domain.EventPage, error) {
	events, total, err := s.events.List(ctx, q, now)
	if err != nil {
		return domain.EventPage{}, fmt.Errorf("s.events.List -> %w", err)
	}

	summaries, _, err := s.summarize(ctx, events, viewerID)
	if err != nil {
		return domain.EventPage{}, err
	}

	return domain.EventPage{
		Items:      summaries,
		Page:       q.Page,
		Size:       q.Size,
		TotalItems: total,
		TotalPages: domain.TotalPages(total, q.Size),
	}, nil
}

// summarize decorates events with participant counts, the viewer's
// registration flag and the creator. It also returns every manager row.
func (s *EventService) summarize(ctx context.Context, events []domain.Event, viewerID uint) ([]domain.EventSummary, []domain.EventManager, error) {
	if len(events) == 0 {
		return []domain.EventSummary{}, nil, nil
	}

	ids := make([]uint, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	counts, err := s.participations.CountByEvents(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("s.participations.CountByEvents -> %w", err)
	}
	registered, err := s.participations.RegisteredEventIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("s.participations.RegisteredEventIDs -> %w", err)
	}
	managers, err := s.events.FindManagers(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("s.events.FindManagers -> %w", err)
	}

	creatorIDs := make([]uint, 0, len(events))
	for _, e := range events {
		creatorIDs = append(creatorIDs, e.CreatedBy)
	}
	users, err := s.users.FindByIDs(ctx, creatorIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("s.users.FindByIDs -> %w", err)
	}
	byID := usersByID(users)

	now := s.now()
	summaries := make([]domain.EventSummary, 0, len(events))
	for _, e := range events {
		summary := domain.EventSummary{
			Event:               e,
			DisplayStatus:       e.DisplayStatus(now),
			CurrentParticipants: counts[e.ID],
			IsRegistered:        registered[e.ID],
		}
		if u, ok := byID[e.CreatedBy]; ok {
			manager := u.Summary()
			summary.Manager = &manager
		}
		summaries = append(summaries, summary)
	}

	return summaries, managers, nil
}

func normalizeQuery(q domain.EventQuery) domain.EventQuery {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	switch q.SortBy {
	case domain.EventSortStartTime, domain.EventSortCreatedAt, domain.EventSortTitle:
	default:
		q.SortBy = domain.EventSortStartTime
	}
	q.Search = strings.TrimSpace(q.Search)

	return q
}
