package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository/dao"
)

var (
	ErrEventNotFound = dao.ErrEventNotFound
)

type EventDAO interface {
	InsertWithManager(ctx context.Context, event dao.Event, role string) (dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	FindByJoinToken(ctx context.Context, token string) (dao.Event, error)
	UpdateLocked(ctx context.Context, id uint, mutate func(event *dao.Event, participants int64) error) (dao.Event, error)
	List(ctx context.Context, f dao.EventFilter, now time.Time) ([]dao.Event, int64, error)
	CountByDisplayStatus(ctx context.Context, now time.Time) ([]dao.StatusCount, error)
	CountManagedBy(ctx context.Context, userID uint) (int64, error)
	FindManagers(ctx context.Context, eventIDs []uint) ([]dao.EventManager, error)
	FindManagerRoles(ctx context.Context, eventID uint, userIDs []uint) ([]dao.EventManager, error)
	UpsertManager(ctx context.Context, m dao.EventManager) error
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

// Create stores the event and makes its creator a MANAGE manager.
func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.InsertWithManager(ctx, eventDomainToDao(event), domain.RoleManage.String())
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.InsertWithManager -> %w", err)
	}

	return eventDaoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return eventDaoToDomain(found), nil
}

func (r *EventRepository) FindByJoinToken(ctx context.Context, token string) (domain.Event, error) {
	found, err := r.dao.FindByJoinToken(ctx, token)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByJoinToken -> %w", err)
	}

	return eventDaoToDomain(found), nil
}

// Update applies mutate to the locked event. The join token and creator are
// not writable through here.
func (r *EventRepository) Update(ctx context.Context, id uint, mutate func(event *domain.Event, participants int) error) (domain.Event, error) {
	updated, err := r.dao.UpdateLocked(ctx, id, func(row *dao.Event, participants int64) error {
		event := eventDaoToDomain(*row)
		if err := mutate(&event, int(participants)); err != nil {
			return err
		}

		next := eventDomainToDao(event)
		next.ID = row.ID
		next.JoinToken = row.JoinToken
		next.CreatedBy = row.CreatedBy
		next.CreatedAt = row.CreatedAt
		*row = next

		return nil
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.UpdateLocked -> %w", err)
	}

	return eventDaoToDomain(updated), nil
}

func (r *EventRepository) List(ctx context.Context, q domain.EventQuery, now time.Time) ([]domain.Event, int64, error) {
	rows, total, err := r.dao.List(ctx, dao.EventFilter{
		Offset:    q.Offset(),
		Limit:     q.Size,
		SortBy:    q.SortBy,
		Desc:      q.Desc,
		Status:    string(q.Status),
		Search:    q.Search,
		ManagedBy: q.ManagedBy,
	}, now)
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.List -> %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventDaoToDomain(row))
	}

	return events, total, nil
}

func (r *EventRepository) CountByDisplayStatus(ctx context.Context, now time.Time) (domain.EventCounters, error) {
	rows, err := r.dao.CountByDisplayStatus(ctx, now)
	if err != nil {
		return domain.EventCounters{}, fmt.Errorf("r.dao.CountByDisplayStatus -> %w", err)
	}

	var counters domain.EventCounters
	for _, row := range rows {
		counters.Add(domain.EventStatus(row.DisplayStatus), row.Total)
	}

	return counters, nil
}

func (r *EventRepository) CountManagedBy(ctx context.Context, userID uint) (int64, error) {
	total, err := r.dao.CountManagedBy(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountManagedBy -> %w", err)
	}

	return total, nil
}

func (r *EventRepository) FindManagers(ctx context.Context, eventIDs []uint) ([]domain.EventManager, error) {
	rows, err := r.dao.FindManagers(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindManagers -> %w", err)
	}

	managers := make([]domain.EventManager, 0, len(rows))
	for _, row := range rows {
		managers = append(managers, managerDaoToDomain(row))
	}

	return managers, nil
}

// FindRoles maps each user holding a role on the event to it. Users without
// a role are absent from the map.
func (r *EventRepository) FindRoles(ctx context.Context, eventID uint, userIDs []uint) (map[uint]domain.EventRole, error) {
	rows, err := r.dao.FindManagerRoles(ctx, eventID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindManagerRoles -> %w", err)
	}

	roles := make(map[uint]domain.EventRole, len(rows))
	for _, row := range rows {
		roles[row.UserID] = managerDaoToDomain(row).Role
	}

	return roles, nil
}

func (r *EventRepository) UpsertManager(ctx context.Context, m domain.EventManager) error {
	err := r.dao.UpsertManager(ctx, dao.EventManager{
		EventID: m.EventID,
		UserID:  m.UserID,
		Role:    m.Role.String(),
	})
	if err != nil {
		return fmt.Errorf("r.dao.UpsertManager -> %w", err)
	}

	return nil
}

func managerDaoToDomain(m dao.EventManager) domain.EventManager {
	role, err := domain.ParseEventRole(m.Role)
	if err != nil {
		role = domain.RoleNone
	}

	return domain.EventManager{
		EventID: m.EventID,
		UserID:  m.UserID,
		Role:    role,
	}
}

func eventDomainToDao(e domain.Event) dao.Event {
	return dao.Event{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Location:        e.Location,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		MaxParticipants: e.MaxParticipants,
		Status:          string(e.Status),
		JoinToken:       e.JoinToken,
		Banner:          e.Banner,
		URLDocs:         e.URLDocs,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func eventDaoToDomain(e dao.Event) domain.Event {
	return domain.Event{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Location:        e.Location,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		MaxParticipants: e.MaxParticipants,
		Status:          domain.EventStatus(e.Status),
		JoinToken:       e.JoinToken,
		Banner:          e.Banner,
		URLDocs:         e.URLDocs,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}
