package service

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

func (f *fixture) createPoll(t *testing.T, eventID uint, pollType domain.PollType, contents ...string) domain.PollView {
	t.Helper()

	options := make([]domain.Option, 0, len(contents))
	for _, c := range contents {
		options = append(options, domain.Option{Content: c})
	}

	view, err := f.polls.CreatePoll(context.Background(), eventID, domain.Poll{
		Title:   "Which stand first?",
		Type:    pollType,
		Options: options,
	}, f.principal("organizer"))
	require.NoError(t, err)

	return view
}

func TestVote_ReplacesSelection(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	poll := f.createPoll(t, event.ID, domain.PollTypeSingle, "X", "Y")
	x, y := poll.Options[0].ID, poll.Options[1].ID
	alice := f.people["alice"].ID
	ctx := context.Background()

	require.NoError(t, f.polls.Vote(ctx, poll.ID, alice, []uint{x}))
	stats, err := f.polls.GetPollStats(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Options[0].VoteCount)
	assert.InDelta(t, 100, stats.Options[0].Percentage, 0.001)
	assert.Equal(t, 0, stats.Options[1].VoteCount)
	assert.InDelta(t, 0, stats.Options[1].Percentage, 0.001)

	require.NoError(t, f.polls.Vote(ctx, poll.ID, alice, []uint{y}))
	stats, err = f.polls.GetPollStats(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Options[0].VoteCount)
	assert.InDelta(t, 0, stats.Options[0].Percentage, 0.001)
	assert.Equal(t, 1, stats.Options[1].VoteCount)
	assert.InDelta(t, 100, stats.Options[1].Percentage, 0.001)
	assert.Equal(t, 1, stats.TotalVotes)
	assert.Equal(t, 1, stats.TotalVoters)

	voted, err := f.polls.GetVotedOptionIDs(ctx, poll.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint{y}, voted)
}

func TestVote_ReadBackMatchesSelection(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	poll := f.createPoll(t, event.ID, domain.PollTypeMultiple, "A", "B", "C")
	a, b, c := poll.Options[0].ID, poll.Options[1].ID, poll.Options[2].ID
	bob := f.people["bob"].ID
	ctx := context.Background()

	for _, selection := range [][]uint{{a}, {a, b}, {c}, {b, c, a}} {
		require.NoError(t, f.polls.Vote(ctx, poll.ID, bob, selection))

		voted, err := f.polls.GetVotedOptionIDs(ctx, poll.ID, bob)
		require.NoError(t, err)
		assert.ElementsMatch(t, selection, voted)
	}
}

func sameOptions(a, b []uint) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)

	return slices.Equal(a, b)
}

func TestVote_ConcurrentSelectionsStayWhole(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	poll := f.createPoll(t, event.ID, domain.PollTypeMultiple, "A", "B", "C", "D")
	a, b, c, d := poll.Options[0].ID, poll.Options[1].ID, poll.Options[2].ID, poll.Options[3].ID
	bob := f.people["bob"].ID
	ctx := context.Background()

	selections := [][]uint{{a}, {a, b}, {b, c, d}, {d}, {a, b, c, d}, {c, a}}

	var wg sync.WaitGroup
	for round := 0; round < 4; round++ {
		for _, selection := range selections {
			wg.Add(1)
			go func(selection []uint) {
				defer wg.Done()
				assert.NoError(t, f.polls.Vote(ctx, poll.ID, bob, selection))
			}(selection)
		}
	}
	wg.Wait()

	voted, err := f.polls.GetVotedOptionIDs(ctx, poll.ID, bob)
	require.NoError(t, err)

	matched := false
	for _, selection := range selections {
		if sameOptions(selection, voted) {
			matched = true
			break
		}
	}
	assert.True(t, matched, "voted options %v are not one submitted selection", voted)

	stats, err := f.polls.GetPollStats(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, len(voted), stats.TotalVotes)
	assert.Equal(t, 1, stats.TotalVoters)
}

func TestVote_Rules(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	single := f.createPoll(t, event.ID, domain.PollTypeSingle, "X", "Y")
	other := f.createPoll(t, event.ID, domain.PollTypeSingle, "P", "Q")
	alice := f.people["alice"].ID
	ctx := context.Background()

	tests := []struct {
		name    string
		pollID  uint
		options []uint
		wantErr error
	}{
		{name: "empty selection", pollID: single.ID, options: nil, wantErr: domain.ErrValidation},
		{name: "two options on single", pollID: single.ID, options: single.OptionIDs(), wantErr: domain.ErrValidation},
		{name: "option of another poll", pollID: single.ID, options: []uint{other.Options[0].ID}, wantErr: ErrOptionNotFound},
		{name: "unknown poll", pollID: 424242, options: []uint{1}, wantErr: ErrPollNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.polls.Vote(ctx, tc.pollID, alice, tc.options)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	dup := []uint{single.Options[0].ID, single.Options[0].ID}
	assert.NoError(t, f.polls.Vote(ctx, single.ID, alice, dup), "duplicate ids count once")
}

func TestVote_AfterCloseConflicts(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	poll := f.createPoll(t, event.ID, domain.PollTypeSingle, "X", "Y")
	ctx := context.Background()

	_, err := f.polls.ClosePoll(ctx, poll.ID, f.principal("alice"))
	require.ErrorIs(t, err, ErrInsufficientRole)

	closed, err := f.polls.ClosePoll(ctx, poll.ID, f.principal("comanager"))
	require.NoError(t, err)
	assert.True(t, closed.Closed)

	err = f.polls.Vote(ctx, poll.ID, f.people["alice"].ID, []uint{poll.Options[0].ID})
	assert.ErrorIs(t, err, ErrPollClosed)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreatePoll_Rules(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()
	twoOptions := []domain.Option{{Content: "X"}, {Content: "Y"}}

	_, err := f.polls.CreatePoll(ctx, 9999, domain.Poll{Title: "t", Options: twoOptions}, f.principal("admin"))
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.polls.CreatePoll(ctx, event.ID, domain.Poll{Title: "t", Options: twoOptions}, f.principal("staff"))
	assert.ErrorIs(t, err, ErrInsufficientRole)

	_, err = f.polls.CreatePoll(ctx, event.ID, domain.Poll{Title: "t", Options: twoOptions[:1]}, f.principal("organizer"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	view, err := f.polls.CreatePoll(ctx, event.ID, domain.Poll{Title: "t", Options: twoOptions}, f.principal("admin"))
	require.NoError(t, err)
	assert.Equal(t, domain.PollTypeSingle, view.Type)
	assert.Zero(t, view.TotalVotes)
	for _, o := range view.Options {
		assert.Zero(t, o.VoteCount)
	}
}

func TestUpdatePoll_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	poll := f.createPoll(t, event.ID, domain.PollTypeSingle, "X", "Y")
	ctx := context.Background()

	_, err := f.polls.UpdatePoll(ctx, poll.ID, domain.Poll{
		Title: "Renamed",
		Options: []domain.Option{
			{ID: poll.Options[0].ID, Content: "X2"},
			{ID: 777777, Content: "ghost"},
		},
	}, f.principal("organizer"))
	require.ErrorIs(t, err, ErrOptionNotFound)

	current, err := f.polls.GetPoll(ctx, poll.ID, f.people["alice"].ID)
	require.NoError(t, err)
	assert.Equal(t, poll.Title, current.Title)
	assert.Equal(t, "X", current.Options[0].Content)

	updated, err := f.polls.UpdatePoll(ctx, poll.ID, domain.Poll{
		Title:   "Renamed",
		Options: []domain.Option{{ID: poll.Options[1].ID, Content: "Y2"}},
	}, f.principal("organizer"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Y2", updated.Options[1].Content)

	current, err = f.polls.GetPoll(ctx, poll.ID, f.people["alice"].ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", current.Title, "update evicts cached detail")
}

func TestGetPoll_HasVotedAndEviction(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	poll := f.createPoll(t, event.ID, domain.PollTypeMultiple, "X", "Y")
	alice := f.people["alice"].ID
	ctx := context.Background()

	view, err := f.polls.GetPoll(ctx, poll.ID, alice)
	require.NoError(t, err)
	assert.False(t, view.HasVoted)

	byEvent, err := f.polls.GetPollsByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Zero(t, byEvent[0].TotalVotes)

	require.NoError(t, f.polls.Vote(ctx, poll.ID, alice, poll.OptionIDs()))

	view, err = f.polls.GetPoll(ctx, poll.ID, alice)
	require.NoError(t, err)
	assert.True(t, view.HasVoted)
	assert.Equal(t, 2, view.TotalVotes)
	assert.Equal(t, 1, view.TotalVoters)

	byEvent, err = f.polls.GetPollsByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, byEvent[0].TotalVotes)

	stats, err := f.polls.GetPollStatsByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.InDelta(t, 50, stats[0].Options[0].Percentage, 0.001)
}
