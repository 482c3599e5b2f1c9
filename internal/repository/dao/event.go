package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var (
	ErrEventNotFound = domain.ErrEventNotFound
)

type Event struct {
	ID uint `gorm:"primaryKey"`

	Title           string `gorm:"not null"`
	Description     string
	Location        string
	StartTime       time.Time `gorm:"not null;index"`
	EndTime         time.Time `gorm:"not null"`
	MaxParticipants *int
	Status          string `gorm:"not null;default:UPCOMING;index"`
	JoinToken       string `gorm:"not null;uniqueIndex"`
	Banner          string
	URLDocs         string
	CreatedBy       uint `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type EventManager struct {
	ID uint `gorm:"primaryKey"`

	EventID uint   `gorm:"not null;uniqueIndex:idx_event_managers_event_user"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_event_managers_event_user;index"`
	Role    string `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// EventFilter mirrors domain.EventQuery for the SQL side.
type EventFilter struct {
	Offset    int
	Limit     int
	SortBy    string
	Desc      bool
	Status    string
	Search    string
	ManagedBy uint
}

type StatusCount struct {
	DisplayStatus string
	Total         int64
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

// InsertWithManager creates the event and grants its creator the given role.
func (d *EventDAO) InsertWithManager(ctx context.Context, event Event, role string) (Event, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		return tx.Create(&EventManager{EventID: event.ID, UserID: event.CreatedBy, Role: role}).Error
	})
	if err != nil {
		return Event{}, err
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByJoinToken(ctx context.Context, token string) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, "join_token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

// UpdateLocked loads the event row FOR UPDATE together with its participant
// count, lets mutate change it and saves the result in the same transaction.
func (d *EventDAO) UpdateLocked(ctx context.Context, id uint, mutate func(event *Event, participants int64) error) (Event, error) {
	var event Event

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}

			return result.Error
		}

		var participants int64
		if err := tx.Model(&Participation{}).Where("event_id = ?", id).Count(&participants).Error; err != nil {
			return err
		}

		if err := mutate(&event, participants); err != nil {
			return err
		}

		return tx.Save(&event).Error
	})
	if err != nil {
		return Event{}, err
	}

	return event, nil
}

func (d *EventDAO) List(ctx context.Context, f EventFilter, now time.Time) ([]Event, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&Event{})
		if f.ManagedBy != 0 {
			db = db.Where("id IN (?)", d.db.Model(&EventManager{}).Select("event_id").Where("user_id = ?", f.ManagedBy))
		}
		if f.Search != "" {
			like := "%" + f.Search + "%"
			db = db.Where("(title ILIKE ? OR location ILIKE ?)", like, like)
		}

		return withDisplayStatus(db, f.Status, now)
	}

	var total int64
	if err := d.db.WithContext(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []Event
	result := d.db.WithContext(ctx).Scopes(scope).
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortColumn(f.SortBy)}, Desc: f.Desc}).
		Order("id").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&events)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return events, total, nil
}

// CountByDisplayStatus groups every event by the status clients would see at now.
func (d *EventDAO) CountByDisplayStatus(ctx context.Context, now time.Time) ([]StatusCount, error) {
	cancelled := string(domain.EventStatusCancelled)
	completed := string(domain.EventStatusCompleted)

	var rows []StatusCount
	result := d.db.WithContext(ctx).Model(&Event{}).
		Select(`CASE
			WHEN status = ? THEN ?
			WHEN status = ? OR end_time < ? THEN ?
			WHEN start_time > ? THEN ?
			ELSE ? END AS display_status, count(*) AS total`,
			cancelled, cancelled,
			completed, now, completed,
			now, string(domain.EventStatusUpcoming),
			string(domain.EventStatusOngoing),
		).
		Group("display_status").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

func (d *EventDAO) CountManagedBy(ctx context.Context, userID uint) (int64, error) {
	var total int64

	result := d.db.WithContext(ctx).Model(&EventManager{}).Where("user_id = ?", userID).Count(&total)
	if result.Error != nil {
		return 0, result.Error
	}

	return total, nil
}

func (d *EventDAO) FindManagers(ctx context.Context, eventIDs []uint) ([]EventManager, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	var managers []EventManager
	result := d.db.WithContext(ctx).Where("event_id IN ?", eventIDs).Order("event_id, id").Find(&managers)
	if result.Error != nil {
		return nil, result.Error
	}

	return managers, nil
}

// FindManagerRoles returns the manager rows of the given users for one event.
func (d *EventDAO) FindManagerRoles(ctx context.Context, eventID uint, userIDs []uint) ([]EventManager, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var managers []EventManager
	result := d.db.WithContext(ctx).Where("event_id = ? AND user_id IN ?", eventID, userIDs).Find(&managers)
	if result.Error != nil {
		return nil, result.Error
	}

	return managers, nil
}

func (d *EventDAO) UpsertManager(ctx context.Context, m EventManager) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&m).Error
}

func withDisplayStatus(db *gorm.DB, status string, now time.Time) *gorm.DB {
	cancelled := string(domain.EventStatusCancelled)
	completed := string(domain.EventStatusCompleted)

	switch domain.EventStatus(status) {
	case domain.EventStatusCancelled:
		return db.Where("status = ?", cancelled)
	case domain.EventStatusCompleted:
		return db.Where("status <> ? AND (status = ? OR end_time < ?)", cancelled, completed, now)
	case domain.EventStatusUpcoming:
		return db.Where("status NOT IN ? AND start_time > ?", []string{cancelled, completed}, now)
	case domain.EventStatusOngoing:
		return db.Where("status NOT IN ? AND start_time <= ? AND end_time >= ?", []string{cancelled, completed}, now, now)
	default:
		return db
	}
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case domain.EventSortCreatedAt, domain.EventSortTitle:
		return sortBy
	default:
		return domain.EventSortStartTime
	}
}
