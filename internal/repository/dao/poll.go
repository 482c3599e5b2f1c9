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
	ErrPollNotFound   = domain.ErrPollNotFound
	ErrOptionNotFound = domain.ErrOptionNotFound
	ErrPollClosed     = domain.ErrPollClosed
)

type Poll struct {
	ID uint `gorm:"primaryKey"`

	EventID   uint   `gorm:"not null;index"`
	Title     string `gorm:"not null"`
	Type      string `gorm:"not null;default:SINGLE"`
	Closed    bool   `gorm:"not null;default:false"`
	StartTime *time.Time
	EndTime   *time.Time
	CreatedBy uint

	Options []Option `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Option struct {
	ID uint `gorm:"primaryKey"`

	PollID   uint   `gorm:"not null;index"`
	Content  string `gorm:"not null"`
	ImageURL string
}

type Vote struct {
	ID uint `gorm:"primaryKey"`

	PollID   uint `gorm:"not null;uniqueIndex:idx_votes_poll_user_option;index:idx_votes_poll_option,priority:1"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_votes_poll_user_option"`
	OptionID uint `gorm:"not null;uniqueIndex:idx_votes_poll_user_option;index:idx_votes_poll_option,priority:2"`

	CreatedAt time.Time `gorm:"not null"`
}

// PollFields are the mutable poll columns.
type PollFields struct {
	Title     string
	Type      string
	StartTime *time.Time
	EndTime   *time.Time
}

type optionCount struct {
	OptionID uint
	Total    int
}

type PollDAO struct {
	db *gorm.DB
}

func NewPollDAO(db *gorm.DB) *PollDAO {
	return &PollDAO{
		db: db,
	}
}

func withOrderedOptions(db *gorm.DB) *gorm.DB {
	return db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

// Insert creates the poll together with its options.
func (d *PollDAO) Insert(ctx context.Context, poll Poll) (Poll, error) {
	if err := d.db.WithContext(ctx).Create(&poll).Error; err != nil {
		return Poll{}, err
	}

	return poll, nil
}

func (d *PollDAO) FindByID(ctx context.Context, id uint) (Poll, error) {
	var poll Poll

	result := d.db.WithContext(ctx).Scopes(withOrderedOptions).First(&poll, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Poll{}, ErrPollNotFound
		}

		return Poll{}, result.Error
	}

	return poll, nil
}

func (d *PollDAO) FindByEvent(ctx context.Context, eventID uint) ([]Poll, error) {
	var polls []Poll

	result := d.db.WithContext(ctx).Scopes(withOrderedOptions).Where("event_id = ?", eventID).Order("id").Find(&polls)
	if result.Error != nil {
		return nil, result.Error
	}

	return polls, nil
}

func (d *PollDAO) CountVotesByOption(ctx context.Context, pollID uint) (map[uint]int, error) {
	var rows []optionCount

	result := d.db.WithContext(ctx).Model(&Vote{}).
		Select("option_id, count(*) AS total").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.OptionID] = row.Total
	}

	return counts, nil
}

func (d *PollDAO) CountVoters(ctx context.Context, pollID uint) (int64, error) {
	var total int64

	result := d.db.WithContext(ctx).Model(&Vote{}).Where("poll_id = ?", pollID).Distinct("user_id").Count(&total)
	if result.Error != nil {
		return 0, result.Error
	}

	return total, nil
}

func (d *PollDAO) FindVotedOptionIDs(ctx context.Context, pollID, userID uint) ([]uint, error) {
	var ids []uint

	result := d.db.WithContext(ctx).Model(&Vote{}).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		Order("option_id").
		Pluck("option_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}

	return ids, nil
}

// ReplaceVotes swaps the user's vote rows for the poll in one transaction.
// The poll row is share-locked so a concurrent close waits for the vote, and
// an advisory lock on (poll, user) orders concurrent submissions of one user.
func (d *PollDAO) ReplaceVotes(ctx context.Context, pollID, userID uint, optionIDs []uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll Poll
		result := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&poll, pollID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrPollNotFound
			}

			return result.Error
		}
		if poll.Closed {
			return ErrPollClosed
		}

		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", voteLockKey(pollID, userID)).Error; err != nil {
			return err
		}

		var known int64
		if err := tx.Model(&Option{}).Where("poll_id = ? AND id IN ?", pollID, optionIDs).Count(&known).Error; err != nil {
			return err
		}
		if int(known) != len(optionIDs) {
			return ErrOptionNotFound
		}

		if err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).Delete(&Vote{}).Error; err != nil {
			return err
		}

		votes := make([]Vote, 0, len(optionIDs))
		for _, optionID := range optionIDs {
			votes = append(votes, Vote{PollID: pollID, UserID: userID, OptionID: optionID})
		}

		return tx.Create(&votes).Error
	})
}

func (d *PollDAO) Close(ctx context.Context, pollID uint) (Poll, error) {
	result := d.db.WithContext(ctx).Model(&Poll{}).Where("id = ?", pollID).Update("closed", true)
	if result.Error != nil {
		return Poll{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Poll{}, ErrPollNotFound
	}

	return d.FindByID(ctx, pollID)
}

// Update rewrites the poll fields and the listed options. Every option must
// belong to the poll or nothing is written.
func (d *PollDAO) Update(ctx context.Context, pollID uint, fields PollFields, options []Option) (Poll, error) {
	var poll Poll

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&poll, pollID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrPollNotFound
			}

			return result.Error
		}

		for _, o := range options {
			updated := tx.Model(&Option{}).
				Where("id = ? AND poll_id = ?", o.ID, pollID).
				Updates(map[string]any{"content": o.Content, "image_url": o.ImageURL})
			if updated.Error != nil {
				return updated.Error
			}
			if updated.RowsAffected == 0 {
				return ErrOptionNotFound
			}
		}

		poll.Title = fields.Title
		poll.Type = fields.Type
		poll.StartTime = fields.StartTime
		poll.EndTime = fields.EndTime
		if err := tx.Omit(clause.Associations).Save(&poll).Error; err != nil {
			return err
		}

		poll = Poll{}
		return tx.Scopes(withOrderedOptions).First(&poll, pollID).Error
	})
	if err != nil {
		return Poll{}, err
	}

	return poll, nil
}

func voteLockKey(pollID, userID uint) int64 {
	return int64(pollID)<<32 | int64(userID&0xffffffff)
}
