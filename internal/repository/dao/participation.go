package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

const participationUniqueIndex = "idx_participations_event_user"

var (
	ErrParticipationNotFound = domain.ErrParticipationNotFound
	ErrAlreadyJoined         = domain.ErrAlreadyJoined
	ErrAlreadyCheckedIn      = domain.ErrAlreadyCheckedIn
)

type Participation struct {
	ID uint `gorm:"primaryKey"`

	EventID     uint      `gorm:"not null;uniqueIndex:idx_participations_event_user"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_participations_event_user;index"`
	JoinedAt    time.Time `gorm:"not null"`
	CheckedInAt *time.Time
}

type eventCount struct {
	EventID uint
	Total   int64
}

type ParticipationDAO struct {
	db *gorm.DB
}

func NewParticipationDAO(db *gorm.DB) *ParticipationDAO {
	return &ParticipationDAO{
		db: db,
	}
}

// WithinEventLock runs fn in a transaction holding the event row FOR UPDATE.
// Every check-and-insert on the event's ledger goes through here, so
// concurrent joins on one event are serialized by the database.
func (d *ParticipationDAO) WithinEventLock(ctx context.Context, eventID uint, fn func(tx *ParticipationDAO, event Event) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event Event
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}

			return result.Error
		}

		return fn(&ParticipationDAO{db: tx}, event)
	})
}

func (d *ParticipationDAO) CountByEvent(ctx context.Context, eventID uint) (int64, error) {
	var total int64

	result := d.db.WithContext(ctx).Model(&Participation{}).Where("event_id = ?", eventID).Count(&total)
	if result.Error != nil {
		return 0, result.Error
	}

	return total, nil
}

func (d *ParticipationDAO) CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []eventCount
	result := d.db.WithContext(ctx).Model(&Participation{}).
		Select("event_id, count(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	for _, row := range rows {
		counts[row.EventID] = row.Total
	}

	return counts, nil
}

func (d *ParticipationDAO) FindByEvent(ctx context.Context, eventID uint) ([]Participation, error) {
	var participations []Participation

	result := d.db.WithContext(ctx).Where("event_id = ?", eventID).Order("joined_at, id").Find(&participations)
	if result.Error != nil {
		return nil, result.Error
	}

	return participations, nil
}

func (d *ParticipationDAO) Find(ctx context.Context, eventID, userID uint) (Participation, error) {
	var p Participation

	result := d.db.WithContext(ctx).First(&p, "event_id = ? AND user_id = ?", eventID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Participation{}, ErrParticipationNotFound
		}

		return Participation{}, result.Error
	}

	return p, nil
}

// FindJoinedUserIDs returns the subset of userIDs already registered for the event.
func (d *ParticipationDAO) FindJoinedUserIDs(ctx context.Context, eventID uint, userIDs []uint) ([]uint, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var joined []uint
	result := d.db.WithContext(ctx).Model(&Participation{}).
		Where("event_id = ? AND user_id IN ?", eventID, userIDs).
		Pluck("user_id", &joined)
	if result.Error != nil {
		return nil, result.Error
	}

	return joined, nil
}

// FindRegisteredEventIDs returns the subset of eventIDs the user joined.
func (d *ParticipationDAO) FindRegisteredEventIDs(ctx context.Context, userID uint, eventIDs []uint) ([]uint, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	var registered []uint
	result := d.db.WithContext(ctx).Model(&Participation{}).
		Where("user_id = ? AND event_id IN ?", userID, eventIDs).
		Pluck("event_id", &registered)
	if result.Error != nil {
		return nil, result.Error
	}

	return registered, nil
}

func (d *ParticipationDAO) InsertMany(ctx context.Context, participations []Participation) ([]Participation, error) {
	if len(participations) == 0 {
		return nil, nil
	}

	if err := d.db.WithContext(ctx).Create(&participations).Error; err != nil {
		if isUniqueViolation(err, participationUniqueIndex) {
			return nil, ErrAlreadyJoined
		}

		return nil, err
	}

	return participations, nil
}

func (d *ParticipationDAO) DeleteUsers(ctx context.Context, eventID uint, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	result := d.db.WithContext(ctx).Where("event_id = ? AND user_id IN ?", eventID, userIDs).Delete(&Participation{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// MarkCheckedIn sets checked_in_at only if it is still null.
func (d *ParticipationDAO) MarkCheckedIn(ctx context.Context, eventID, userID uint, at time.Time) (Participation, error) {
	var p Participation

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Participation{}).
			Where("event_id = ? AND user_id = ? AND checked_in_at IS NULL", eventID, userID).
			Update("checked_in_at", at)
		if result.Error != nil {
			return result.Error
		}

		found := tx.First(&p, "event_id = ? AND user_id = ?", eventID, userID)
		if found.Error != nil {
			if errors.Is(found.Error, gorm.ErrRecordNotFound) {
				return ErrParticipationNotFound
			}

			return found.Error
		}

		if result.RowsAffected == 0 {
			return ErrAlreadyCheckedIn
		}

		return nil
	})
	if err != nil {
		return Participation{}, err
	}

	return p, nil
}
