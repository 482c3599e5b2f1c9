package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository"
)

func newEvent(t *testing.T, s *Store, capacity int) domain.Event {
	t.Helper()

	event, err := s.Events().Create(context.Background(), domain.Event{
		Title:           "Spring fair",
		Location:        "Main hall",
		StartTime:       time.Now().Add(48 * time.Hour),
		EndTime:         time.Now().Add(52 * time.Hour),
		MaxParticipants: &capacity,
		JoinToken:       "join-token",
		CreatedBy:       1,
	})
	require.NoError(t, err)

	return event
}

func TestEventCreate_CreatorManagesEvent(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)

	roles, err := s.Events().FindRoles(context.Background(), event.ID, []uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[uint]domain.EventRole{1: domain.RoleManage}, roles)
}

func TestWithinEventLock_ErrorDiscardsInserts(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)
	repo := s.Participations()
	ctx := context.Background()

	err := repo.WithinEventLock(ctx, event.ID, func(ctx context.Context, _ domain.Event, l repository.Ledger) error {
		if _, err := l.Insert(ctx, []uint{5, 6}, time.Now()); err != nil {
			return err
		}
		n, err := l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		return domain.ErrEventFull
	})
	require.ErrorIs(t, err, domain.ErrEventFull)

	counts, err := repo.CountByEvents(ctx, []uint{event.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, counts[event.ID])
}

func TestLedgerInsert_RejectsDuplicates(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)
	repo := s.Participations()
	ctx := context.Background()

	join := func(userIDs ...uint) error {
		return repo.WithinEventLock(ctx, event.ID, func(ctx context.Context, _ domain.Event, l repository.Ledger) error {
			_, err := l.Insert(ctx, userIDs, time.Now())
			return err
		})
	}

	require.NoError(t, join(7))
	assert.ErrorIs(t, join(7), domain.ErrAlreadyJoined)
	assert.ErrorIs(t, join(8, 8), domain.ErrAlreadyJoined)

	rows, err := repo.FindByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWithinEventLock_SerializesCapacityChecks(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 3)
	repo := s.Participations()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := uint(1); i <= 20; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_ = repo.WithinEventLock(ctx, event.ID, func(ctx context.Context, e domain.Event, l repository.Ledger) error {
				n, err := l.Count(ctx)
				if err != nil {
					return err
				}
				if !e.Admits(n + 1) {
					return domain.ErrEventFull
				}
				_, err = l.Insert(ctx, []uint{userID}, time.Now())
				return err
			})
		}(100 + i)
	}
	wg.Wait()

	counts, err := repo.CountByEvents(ctx, []uint{event.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[event.ID])
}

func TestMarkCheckedIn(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)
	repo := s.Participations()
	ctx := context.Background()

	_, err := repo.MarkCheckedIn(ctx, event.ID, 3, time.Now())
	require.ErrorIs(t, err, domain.ErrParticipationNotFound)

	require.NoError(t, repo.WithinEventLock(ctx, event.ID, func(ctx context.Context, _ domain.Event, l repository.Ledger) error {
		_, err := l.Insert(ctx, []uint{3}, time.Now())
		return err
	}))

	p, err := repo.MarkCheckedIn(ctx, event.ID, 3, time.Now())
	require.NoError(t, err)
	assert.True(t, p.IsCheckedIn())

	_, err = repo.MarkCheckedIn(ctx, event.ID, 3, time.Now())
	assert.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)
}

func TestEventUpdate_SeesParticipantCount(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)
	ctx := context.Background()

	require.NoError(t, s.Participations().WithinEventLock(ctx, event.ID, func(ctx context.Context, _ domain.Event, l repository.Ledger) error {
		_, err := l.Insert(ctx, []uint{1, 2, 3}, time.Now())
		return err
	}))

	var seen int
	updated, err := s.Events().Update(ctx, event.ID, func(e *domain.Event, participants int) error {
		seen = participants
		e.Title = "Autumn fair"
		e.JoinToken = "ignored"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
	assert.Equal(t, "Autumn fair", updated.Title)
	assert.Equal(t, "join-token", updated.JoinToken)
}

func TestEventList_FiltersAndPages(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	for i, title := range []string{"Book swap", "Bake sale", "Board games"} {
		_, err := s.Events().Create(ctx, domain.Event{
			Title:     title,
			StartTime: now.Add(time.Duration(i+1) * time.Hour),
			EndTime:   now.Add(time.Duration(i+2) * time.Hour),
			CreatedBy: uint(i + 1),
		})
		require.NoError(t, err)
	}

	events, total, err := s.Events().List(ctx, domain.EventQuery{Page: 0, Size: 2, Search: "b"}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Book swap", events[0].Title)

	events, total, err = s.Events().List(ctx, domain.EventQuery{Size: 10, ManagedBy: 2}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Bake sale", events[0].Title)

	events, _, err = s.Events().List(ctx, domain.EventQuery{Size: 10, SortBy: domain.EventSortTitle}, now)
	require.NoError(t, err)
	assert.Equal(t, "Bake sale", events[0].Title)
}

func TestReplaceVotes(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)
	polls := s.Polls()
	ctx := context.Background()

	poll, err := polls.Create(ctx, domain.Poll{
		EventID: event.ID,
		Title:   "Snack",
		Type:    domain.PollTypeMultiple,
		Options: []domain.Option{{Content: "Crepes"}, {Content: "Waffles"}},
	})
	require.NoError(t, err)
	x, y := poll.Options[0].ID, poll.Options[1].ID

	require.NoError(t, polls.ReplaceVotes(ctx, poll.ID, 9, []uint{x, y}))
	require.NoError(t, polls.ReplaceVotes(ctx, poll.ID, 9, []uint{y}))
	assert.ErrorIs(t, polls.ReplaceVotes(ctx, poll.ID, 9, []uint{999}), domain.ErrOptionNotFound)

	tally, err := polls.Tally(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.TotalVotes)
	assert.Equal(t, 1, tally.TotalVoters)
	assert.Equal(t, 1, tally.PerOption[y])

	_, err = polls.Close(ctx, poll.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, polls.ReplaceVotes(ctx, poll.ID, 9, []uint{x}), domain.ErrPollClosed)
}

func TestPollUpdate_UnknownOptionWritesNothing(t *testing.T) {
	s := NewStore()
	event := newEvent(t, s, 10)
	polls := s.Polls()
	ctx := context.Background()

	poll, err := polls.Create(ctx, domain.Poll{
		EventID: event.ID,
		Title:   "Music",
		Type:    domain.PollTypeSingle,
		Options: []domain.Option{{Content: "Jazz"}},
	})
	require.NoError(t, err)

	_, err = polls.Update(ctx, poll.ID, domain.Poll{
		Title:   "Renamed",
		Type:    domain.PollTypeSingle,
		Options: []domain.Option{{ID: poll.Options[0].ID, Content: "Blues"}, {ID: 12345, Content: "Rock"}},
	})
	require.ErrorIs(t, err, domain.ErrOptionNotFound)

	found, err := polls.FindByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, "Music", found.Title)
	assert.Equal(t, "Jazz", found.Options[0].Content)
}
