package memory

import (
	"context"
	"sort"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type PollRepository struct {
	s *Store
}

func (r *PollRepository) Create(_ context.Context, poll domain.Poll) (domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[poll.EventID]; !ok {
		return domain.Poll{}, domain.ErrEventNotFound
	}

	poll.ID = r.s.nextID()
	poll.CreatedAt = r.s.now()
	options := make([]domain.Option, 0, len(poll.Options))
	for _, o := range poll.Options {
		o.ID = r.s.nextID()
		o.PollID = poll.ID
		options = append(options, o)
	}
	poll.Options = options
	r.s.polls[poll.ID] = poll

	return clonePoll(poll), nil
}

func (r *PollRepository) FindByID(_ context.Context, id uint) (domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	poll, ok := r.s.polls[id]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}

	return clonePoll(poll), nil
}

func (r *PollRepository) FindByEvent(_ context.Context, eventID uint) ([]domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	polls := make([]domain.Poll, 0)
	for _, poll := range r.s.polls {
		if poll.EventID == eventID {
			polls = append(polls, clonePoll(poll))
		}
	}
	sort.Slice(polls, func(i, j int) bool { return polls[i].ID < polls[j].ID })

	return polls, nil
}

func (r *PollRepository) Tally(_ context.Context, pollID uint) (domain.VoteTally, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tally := domain.VoteTally{PerOption: make(map[uint]int)}
	for _, optionIDs := range r.s.votes[pollID] {
		if len(optionIDs) == 0 {
			continue
		}
		tally.TotalVoters++
		for _, id := range optionIDs {
			tally.PerOption[id]++
			tally.TotalVotes++
		}
	}

	return tally, nil
}

func (r *PollRepository) VotedOptionIDs(_ context.Context, pollID, userID uint) ([]uint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := append([]uint{}, r.s.votes[pollID][userID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// ReplaceVotes checks the poll state and swaps the user's selection under
// one write lock, so a close either precedes or follows the whole swap.
func (r *PollRepository) ReplaceVotes(_ context.Context, pollID, userID uint, optionIDs []uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	if poll.Closed {
		return domain.ErrPollClosed
	}
	for _, id := range optionIDs {
		if !poll.HasOption(id) {
			return domain.ErrOptionNotFound
		}
	}

	byUser, ok := r.s.votes[pollID]
	if !ok {
		byUser = make(map[uint][]uint)
		r.s.votes[pollID] = byUser
	}
	byUser[userID] = append([]uint(nil), optionIDs...)

	return nil
}

func (r *PollRepository) Close(_ context.Context, pollID uint) (domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[pollID]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	poll.Closed = true
	r.s.polls[pollID] = poll

	return clonePoll(poll), nil
}

// Update applies the poll fields and option edits only if every listed
// option belongs to the poll.
func (r *PollRepository) Update(_ context.Context, pollID uint, update domain.Poll) (domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[pollID]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	for _, o := range update.Options {
		if !poll.HasOption(o.ID) {
			return domain.Poll{}, domain.ErrOptionNotFound
		}
	}

	next := clonePoll(poll)
	next.Title = update.Title
	next.Type = update.Type
	next.StartTime = update.StartTime
	next.EndTime = update.EndTime
	for _, o := range update.Options {
		for i := range next.Options {
			if next.Options[i].ID == o.ID {
				next.Options[i].Content = o.Content
				next.Options[i].ImageURL = o.ImageURL
			}
		}
	}
	r.s.polls[pollID] = next

	return clonePoll(next), nil
}

func clonePoll(p domain.Poll) domain.Poll {
	p.Options = append([]domain.Option(nil), p.Options...)
	return p
}
