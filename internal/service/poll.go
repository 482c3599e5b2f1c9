package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository"
)

var (
	ErrPollNotFound   = repository.ErrPollNotFound
	ErrOptionNotFound = repository.ErrOptionNotFound
	ErrPollClosed     = repository.ErrPollClosed
)

const MinPollOptions = 2

type PollRepository interface {
	Create(ctx context.Context, poll domain.Poll) (domain.Poll, error)
	FindByID(ctx context.Context, id uint) (domain.Poll, error)
	FindByEvent(ctx context.Context, eventID uint) ([]domain.Poll, error)
	Tally(ctx context.Context, pollID uint) (domain.VoteTally, error)
	VotedOptionIDs(ctx context.Context, pollID, userID uint) ([]uint, error)
	ReplaceVotes(ctx context.Context, pollID, userID uint, optionIDs []uint) error
	Close(ctx context.Context, pollID uint) (domain.Poll, error)
	Update(ctx context.Context, pollID uint, poll domain.Poll) (domain.Poll, error)
}

type PollService struct {
	polls  PollRepository
	events EventRepository
	cache  *cache.Cache
}

func NewPollService(polls PollRepository, events EventRepository, c *cache.Cache) *PollService {
	return &PollService{
		polls:  polls,
		events: events,
		cache:  c,
	}
}

func validatePoll(p domain.Poll) error {
	if strings.TrimSpace(p.Title) == "" {
		return domain.Invalidf("poll title is required")
	}
	if p.StartTime != nil && p.EndTime != nil && !p.EndTime.After(*p.StartTime) {
		return domain.Invalidf("poll end time must be after start time")
	}

	return nil
}

func (s *PollService) CreatePoll(ctx context.Context, eventID uint, poll domain.Poll, actor domain.Principal) (domain.PollView, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return domain.PollView{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleManage); err != nil {
		return domain.PollView{}, err
	}

	if err := validatePoll(poll); err != nil {
		return domain.PollView{}, err
	}
	if len(poll.Options) < MinPollOptions {
		return domain.PollView{}, domain.Invalidf("a poll needs at least %d options", MinPollOptions)
	}
	if poll.Type == "" {
		poll.Type = domain.PollTypeSingle
	}

	poll.ID = 0
	poll.EventID = eventID
	poll.Closed = false
	poll.CreatedBy = actor.UserID

	created, err := s.polls.Create(ctx, poll)
	if err != nil {
		return domain.PollView{}, fmt.Errorf("s.polls.Create -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.RegionPollsByEvent, cache.RegionPollStats)

	return domain.NewPollView(created, domain.VoteTally{}), nil
}

// GetPoll returns the poll with its vote counts and whether userID voted.
func (s *PollService) GetPoll(ctx context.Context, pollID, userID uint) (domain.PollView, error) {
	key := fmt.Sprintf("poll:%d:user:%d", pollID, userID)

	return cache.GetOrLoad(ctx, s.cache, cache.RegionPollDetail, key, func(ctx context.Context) (domain.PollView, error) {
		poll, err := s.polls.FindByID(ctx, pollID)
		if err != nil {
			return domain.PollView{}, fmt.Errorf("s.polls.FindByID -> %w", err)
		}

		view, err := s.view(ctx, poll)
		if err != nil {
			return domain.PollView{}, err
		}

		voted, err := s.polls.VotedOptionIDs(ctx, pollID, userID)
		if err != nil {
			return domain.PollView{}, fmt.Errorf("s.polls.VotedOptionIDs -> %w", err)
		}
		view.HasVoted = len(voted) > 0

		return view, nil
	})
}

func (s *PollService) GetPollsByEvent(ctx context.Context, eventID uint) ([]domain.PollView, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.RegionPollsByEvent, fmt.Sprintf("event:%d", eventID), func(ctx context.Context) ([]domain.PollView, error) {
		if _, err := s.events.FindByID(ctx, eventID); err != nil {
			return nil, fmt.Errorf("s.events.FindByID -> %w", err)
		}

		polls, err := s.polls.FindByEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("s.polls.FindByEvent -> %w", err)
		}

		views := make([]domain.PollView, 0, len(polls))
		for _, p := range polls {
			view, err := s.view(ctx, p)
			if err != nil {
				return nil, err
			}
			views = append(views, view)
		}

		return views, nil
	})
}

// Vote replaces every vote userID cast on the poll with optionIDs.
func (s *PollService) Vote(ctx context.Context, pollID, userID uint, optionIDs []uint) error {
	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		return fmt.Errorf("s.polls.FindByID -> %w", err)
	}
	if poll.Closed {
		return ErrPollClosed
	}

	selection := domain.NormalizeSelection(optionIDs)
	if len(selection) == 0 {
		return domain.Invalidf("select at least one option")
	}
	if poll.Type == domain.PollTypeSingle && len(selection) > 1 {
		return domain.Invalidf("a single choice poll accepts exactly one option")
	}
	for _, id := range selection {
		if !poll.HasOption(id) {
			return ErrOptionNotFound
		}
	}

	if err = s.polls.ReplaceVotes(ctx, pollID, userID, selection); err != nil {
		return fmt.Errorf("s.polls.ReplaceVotes -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.PollRegions...)

	return nil
}

// GetVotedOptionIDs always reads the vote store.
func (s *PollService) GetVotedOptionIDs(ctx context.Context, pollID, userID uint) ([]uint, error) {
	if _, err := s.polls.FindByID(ctx, pollID); err != nil {
		return nil, fmt.Errorf("s.polls.FindByID -> %w", err)
	}

	ids, err := s.polls.VotedOptionIDs(ctx, pollID, userID)
	if err != nil {
		return nil, fmt.Errorf("s.polls.VotedOptionIDs -> %w", err)
	}

	return ids, nil
}

func (s *PollService) GetPollStats(ctx context.Context, pollID uint) (domain.PollStats, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.RegionPollStats, fmt.Sprintf("poll:%d", pollID), func(ctx context.Context) (domain.PollStats, error) {
		poll, err := s.polls.FindByID(ctx, pollID)
		if err != nil {
			return domain.PollStats{}, fmt.Errorf("s.polls.FindByID -> %w", err)
		}

		return s.stats(ctx, poll)
	})
}

func (s *PollService) GetPollStatsByEvent(ctx context.Context, eventID uint) ([]domain.PollStats, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.RegionPollStats, fmt.Sprintf("event:%d", eventID), func(ctx context.Context) ([]domain.PollStats, error) {
		if _, err := s.events.FindByID(ctx, eventID); err != nil {
			return nil, fmt.Errorf("s.events.FindByID -> %w", err)
		}

		polls, err := s.polls.FindByEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("s.polls.FindByEvent -> %w", err)
		}

		all := make([]domain.PollStats, 0, len(polls))
		for _, p := range polls {
			stats, err := s.stats(ctx, p)
			if err != nil {
				return nil, err
			}
			all = append(all, stats)
		}

		return all, nil
	})
}

// ClosePoll closes the poll for good. Closing a closed poll is a no-op.
func (s *PollService) ClosePoll(ctx context.Context, pollID uint, actor domain.Principal) (domain.PollView, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		return domain.PollView{}, fmt.Errorf("s.polls.FindByID -> %w", err)
	}
	if _, err = authorize(ctx, s.events, poll.EventID, actor, domain.RoleManage); err != nil {
		return domain.PollView{}, err
	}

	closed, err := s.polls.Close(ctx, pollID)
	if err != nil {
		return domain.PollView{}, fmt.Errorf("s.polls.Close -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.PollRegions...)

	return s.view(ctx, closed)
}

// UpdatePoll rewrites the poll fields and the listed options. Options are
// matched by id and must all belong to the poll.
func (s *PollService) UpdatePoll(ctx context.Context, pollID uint, changes domain.Poll, actor domain.Principal) (domain.PollView, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		return domain.PollView{}, fmt.Errorf("s.polls.FindByID -> %w", err)
	}
	if _, err = authorize(ctx, s.events, poll.EventID, actor, domain.RoleManage); err != nil {
		return domain.PollView{}, err
	}

	if err = validatePoll(changes); err != nil {
		return domain.PollView{}, err
	}
	if changes.Type == "" {
		changes.Type = poll.Type
	}

	updated, err := s.polls.Update(ctx, pollID, changes)
	if err != nil {
		return domain.PollView{}, fmt.Errorf("s.polls.Update -> %w", err)
	}

	s.cache.Evict(context.WithoutCancel(ctx), cache.PollRegions...)

	return s.view(ctx, updated)
}

func (s *PollService) view(ctx context.Context, poll domain.Poll) (domain.PollView, error) {
	tally, err := s.polls.Tally(ctx, poll.ID)
	if err != nil {
		return domain.PollView{}, fmt.Errorf("s.polls.Tally -> %w", err)
	}

	return domain.NewPollView(poll, tally), nil
}

func (s *PollService) stats(ctx context.Context, poll domain.Poll) (domain.PollStats, error) {
	tally, err := s.polls.Tally(ctx, poll.ID)
	if err != nil {
		return domain.PollStats{}, fmt.Errorf("s.polls.Tally -> %w", err)
	}

	return domain.NewPollStats(poll, tally), nil
}
