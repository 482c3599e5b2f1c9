package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository/dao"
)

var (
	ErrParticipationNotFound = dao.ErrParticipationNotFound
	ErrAlreadyJoined         = dao.ErrAlreadyJoined
	ErrAlreadyCheckedIn      = dao.ErrAlreadyCheckedIn
)

// Ledger is one event's participation set as seen from inside its exclusive
// section. Reads observe every insert committed before the section started.
type Ledger interface {
	Count(ctx context.Context) (int, error)
	JoinedUserIDs(ctx context.Context, userIDs []uint) ([]uint, error)
	Insert(ctx context.Context, userIDs []uint, joinedAt time.Time) ([]domain.Participation, error)
}

// LedgerFunc runs inside an event's exclusive section with the event as
// locked. Returning an error discards every insert made through ledger.
type LedgerFunc func(ctx context.Context, event domain.Event, ledger Ledger) error

type ParticipationDAO interface {
	WithinEventLock(ctx context.Context, eventID uint, fn func(tx *dao.ParticipationDAO, event dao.Event) error) error
	CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int64, error)
	FindByEvent(ctx context.Context, eventID uint) ([]dao.Participation, error)
	Find(ctx context.Context, eventID, userID uint) (dao.Participation, error)
	FindRegisteredEventIDs(ctx context.Context, userID uint, eventIDs []uint) ([]uint, error)
	DeleteUsers(ctx context.Context, eventID uint, userIDs []uint) (int64, error)
	MarkCheckedIn(ctx context.Context, eventID, userID uint, at time.Time) (dao.Participation, error)
}

type ParticipationRepository struct {
	dao ParticipationDAO
}

func NewParticipationRepository(dao ParticipationDAO) *ParticipationRepository {
	return &ParticipationRepository{
		dao: dao,
	}
}

func (r *ParticipationRepository) WithinEventLock(ctx context.Context, eventID uint, fn LedgerFunc) error {
	err := r.dao.WithinEventLock(ctx, eventID, func(tx *dao.ParticipationDAO, event dao.Event) error {
		return fn(ctx, eventDaoToDomain(event), &sqlLedger{tx: tx, eventID: eventID})
	})
	if err != nil {
		return fmt.Errorf("r.dao.WithinEventLock -> %w", err)
	}

	return nil
}

func (r *ParticipationRepository) CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int, error) {
	rows, err := r.dao.CountByEvents(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.CountByEvents -> %w", err)
	}

	counts := make(map[uint]int, len(rows))
	for id, n := range rows {
		counts[id] = int(n)
	}

	return counts, nil
}

func (r *ParticipationRepository) FindByEvent(ctx context.Context, eventID uint) ([]domain.Participation, error) {
	rows, err := r.dao.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	return participationsDaoToDomain(rows), nil
}

func (r *ParticipationRepository) Find(ctx context.Context, eventID, userID uint) (domain.Participation, error) {
	found, err := r.dao.Find(ctx, eventID, userID)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("r.dao.Find -> %w", err)
	}

	return participationDaoToDomain(found), nil
}

func (r *ParticipationRepository) RegisteredEventIDs(ctx context.Context, userID uint, eventIDs []uint) (map[uint]bool, error) {
	ids, err := r.dao.FindRegisteredEventIDs(ctx, userID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRegisteredEventIDs -> %w", err)
	}

	registered := make(map[uint]bool, len(ids))
	for _, id := range ids {
		registered[id] = true
	}

	return registered, nil
}

func (r *ParticipationRepository) DeleteUsers(ctx context.Context, eventID uint, userIDs []uint) (int64, error) {
	n, err := r.dao.DeleteUsers(ctx, eventID, userIDs)
	if err != nil {
		return 0, fmt.Errorf("r.dao.DeleteUsers -> %w", err)
	}

	return n, nil
}

func (r *ParticipationRepository) MarkCheckedIn(ctx context.Context, eventID, userID uint, at time.Time) (domain.Participation, error) {
	updated, err := r.dao.MarkCheckedIn(ctx, eventID, userID, at)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("r.dao.MarkCheckedIn -> %w", err)
	}

	return participationDaoToDomain(updated), nil
}

type sqlLedger struct {
	tx      *dao.ParticipationDAO
	eventID uint
}

func (l *sqlLedger) Count(ctx context.Context) (int, error) {
	n, err := l.tx.CountByEvent(ctx, l.eventID)
	if err != nil {
		return 0, fmt.Errorf("l.tx.CountByEvent -> %w", err)
	}

	return int(n), nil
}

func (l *sqlLedger) JoinedUserIDs(ctx context.Context, userIDs []uint) ([]uint, error) {
	ids, err := l.tx.FindJoinedUserIDs(ctx, l.eventID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("l.tx.FindJoinedUserIDs -> %w", err)
	}

	return ids, nil
}

func (l *sqlLedger) Insert(ctx context.Context, userIDs []uint, joinedAt time.Time) ([]domain.Participation, error) {
	rows := make([]dao.Participation, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, dao.Participation{EventID: l.eventID, UserID: userID, JoinedAt: joinedAt})
	}

	inserted, err := l.tx.InsertMany(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("l.tx.InsertMany -> %w", err)
	}

	return participationsDaoToDomain(inserted), nil
}

func participationsDaoToDomain(rows []dao.Participation) []domain.Participation {
	out := make([]domain.Participation, 0, len(rows))
	for _, row := range rows {
		out = append(out, participationDaoToDomain(row))
	}

	return out
}

func participationDaoToDomain(p dao.Participation) domain.Participation {
	return domain.Participation{
		ID:          p.ID,
		EventID:     p.EventID,
		UserID:      p.UserID,
		JoinedAt:    p.JoinedAt,
		CheckedInAt: p.CheckedInAt,
	}
}
