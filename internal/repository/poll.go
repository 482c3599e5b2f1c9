package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository/dao"
)

var (
	ErrPollNotFound   = dao.ErrPollNotFound
	ErrOptionNotFound = dao.ErrOptionNotFound
	ErrPollClosed     = dao.ErrPollClosed
)

type PollDAO interface {
	Insert(ctx context.Context, poll dao.Poll) (dao.Poll, error)
	FindByID(ctx context.Context, id uint) (dao.Poll, error)
	FindByEvent(ctx context.Context, eventID uint) ([]dao.Poll, error)
	CountVotesByOption(ctx context.Context, pollID uint) (map[uint]int, error)
	CountVoters(ctx context.Context, pollID uint) (int64, error)
	FindVotedOptionIDs(ctx context.Context, pollID, userID uint) ([]uint, error)
	ReplaceVotes(ctx context.Context, pollID, userID uint, optionIDs []uint) error
	Close(ctx context.Context, pollID uint) (dao.Poll, error)
	Update(ctx context.Context, pollID uint, fields dao.PollFields, options []dao.Option) (dao.Poll, error)
}

type PollRepository struct {
	dao PollDAO
}

func NewPollRepository(dao PollDAO) *PollRepository {
	return &PollRepository{
		dao: dao,
	}
}

func (r *PollRepository) Create(ctx context.Context, poll domain.Poll) (domain.Poll, error) {
	row := dao.Poll{
		EventID:   poll.EventID,
		Title:     poll.Title,
		Type:      string(poll.Type),
		StartTime: poll.StartTime,
		EndTime:   poll.EndTime,
		CreatedBy: poll.CreatedBy,
	}
	for _, o := range poll.Options {
		row.Options = append(row.Options, dao.Option{Content: o.Content, ImageURL: o.ImageURL})
	}

	created, err := r.dao.Insert(ctx, row)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return pollDaoToDomain(created), nil
}

func (r *PollRepository) FindByID(ctx context.Context, id uint) (domain.Poll, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return pollDaoToDomain(found), nil
}

func (r *PollRepository) FindByEvent(ctx context.Context, eventID uint) ([]domain.Poll, error) {
	rows, err := r.dao.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	polls := make([]domain.Poll, 0, len(rows))
	for _, row := range rows {
		polls = append(polls, pollDaoToDomain(row))
	}

	return polls, nil
}

func (r *PollRepository) Tally(ctx context.Context, pollID uint) (domain.VoteTally, error) {
	perOption, err := r.dao.CountVotesByOption(ctx, pollID)
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("r.dao.CountVotesByOption -> %w", err)
	}

	voters, err := r.dao.CountVoters(ctx, pollID)
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("r.dao.CountVoters -> %w", err)
	}

	total := 0
	for _, n := range perOption {
		total += n
	}

	return domain.VoteTally{
		PerOption:   perOption,
		TotalVotes:  total,
		TotalVoters: int(voters),
	}, nil
}

func (r *PollRepository) VotedOptionIDs(ctx context.Context, pollID, userID uint) ([]uint, error) {
	ids, err := r.dao.FindVotedOptionIDs(ctx, pollID, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindVotedOptionIDs -> %w", err)
	}

	return ids, nil
}

func (r *PollRepository) ReplaceVotes(ctx context.Context, pollID, userID uint, optionIDs []uint) error {
	if err := r.dao.ReplaceVotes(ctx, pollID, userID, optionIDs); err != nil {
		return fmt.Errorf("r.dao.ReplaceVotes -> %w", err)
	}

	return nil
}

func (r *PollRepository) Close(ctx context.Context, pollID uint) (domain.Poll, error) {
	closed, err := r.dao.Close(ctx, pollID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("r.dao.Close -> %w", err)
	}

	return pollDaoToDomain(closed), nil
}

// Update writes the poll fields and every option listed in poll.Options,
// matched by option id.
func (r *PollRepository) Update(ctx context.Context, pollID uint, poll domain.Poll) (domain.Poll, error) {
	options := make([]dao.Option, 0, len(poll.Options))
	for _, o := range poll.Options {
		options = append(options, dao.Option{ID: o.ID, PollID: pollID, Content: o.Content, ImageURL: o.ImageURL})
	}

	updated, err := r.dao.Update(ctx, pollID, dao.PollFields{
		Title:     poll.Title,
		Type:      string(poll.Type),
		StartTime: poll.StartTime,
		EndTime:   poll.EndTime,
	}, options)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return pollDaoToDomain(updated), nil
}

func pollDaoToDomain(p dao.Poll) domain.Poll {
	options := make([]domain.Option, 0, len(p.Options))
	for _, o := range p.Options {
		options = append(options, domain.Option{
			ID:       o.ID,
			PollID:   o.PollID,
			Content:  o.Content,
			ImageURL: o.ImageURL,
		})
	}

	return domain.Poll{
		ID:        p.ID,
		EventID:   p.EventID,
		Title:     p.Title,
		Type:      domain.PollType(p.Type),
		Closed:    p.Closed,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		Options:   options,
	}
}
