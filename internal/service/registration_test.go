package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

func participantIDs(t *testing.T, f *fixture, eventID uint) []uint {
	t.Helper()

	rows, err := f.store.Participations().FindByEvent(context.Background(), eventID)
	require.NoError(t, err)

	ids := make([]uint, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.UserID)
	}

	return ids
}

func TestJoin_FullEventKeepsLedger(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, intPtr(2))
	f.join(t, event, "alice", "bob")

	_, err := f.registrations.Join(context.Background(), event.JoinToken, f.people["carol"].ID)
	require.ErrorIs(t, err, ErrEventFull)
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.ElementsMatch(t, []uint{f.people["alice"].ID, f.people["bob"].ID}, participantIDs(t, f, event.ID))
}

func TestJoin_Duplicate(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice")

	_, err := f.registrations.Join(context.Background(), event.JoinToken, f.people["alice"].ID)
	require.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Len(t, participantIDs(t, f, event.ID), 1)
}

func TestJoin_UnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.registrations.Join(context.Background(), "missing", f.people["alice"].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJoin_OnlyWhileUpcoming(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)

	f.setNow(event.StartTime.Add(time.Minute))
	_, err := f.registrations.Join(context.Background(), event.JoinToken, f.people["alice"].ID)
	assert.ErrorIs(t, err, ErrEventNotUpcoming)

	f.setNow(f.now)
	_, err = f.events.CancelEvent(context.Background(), event.ID, f.principal("organizer"))
	require.NoError(t, err)
	_, err = f.registrations.Join(context.Background(), event.JoinToken, f.people["alice"].ID)
	assert.ErrorIs(t, err, ErrEventNotUpcoming)
}

func TestJoin_ConcurrentNeverOverbooks(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, intPtr(5))
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		full     atomic.Int32
	)
	for i := 0; i < 40; i++ {
		u, err := f.store.Users().Save(ctx, domain.User{Email: fmt.Sprintf("guest%d@example.com", i)})
		require.NoError(t, err)

		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := f.registrations.Join(ctx, event.JoinToken, userID)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrEventFull):
				full.Add(1)
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	assert.EqualValues(t, 5, accepted.Load())
	assert.EqualValues(t, 35, full.Load())
	assert.Len(t, participantIDs(t, f, event.ID), 5)
}

func TestAddParticipants(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, intPtr(3))
	f.join(t, event, "alice")
	ctx := context.Background()

	added, err := f.registrations.AddParticipants(ctx, event.ID, []string{"alice@example.com", "BOB@example.com"}, f.principal("staff"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, f.people["bob"].ID, added[0].User.ID)

	_, err = f.registrations.AddParticipants(ctx, event.ID, []string{"carol@example.com", "admin@example.com"}, f.principal("staff"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Len(t, participantIDs(t, f, event.ID), 2)

	_, err = f.registrations.AddParticipants(ctx, event.ID, []string{"nobody@example.com"}, f.principal("staff"))
	assert.ErrorIs(t, err, ErrUsersNotFound)

	_, err = f.registrations.AddParticipants(ctx, event.ID, []string{"carol@example.com"}, f.principal("bob"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	added, err = f.registrations.AddParticipants(ctx, event.ID, nil, f.principal("admin"))
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestAddParticipants_RejectsStartedOrCancelled(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	f.setNow(event.StartTime)
	_, err := f.registrations.AddParticipants(ctx, event.ID, []string{"alice@example.com"}, f.principal("staff"))
	assert.ErrorIs(t, err, ErrEventStarted)

	f.setNow(f.now)
	_, err = f.events.CancelEvent(ctx, event.ID, f.principal("comanager"))
	require.NoError(t, err)
	_, err = f.registrations.AddParticipants(ctx, event.ID, []string{"alice@example.com"}, f.principal("staff"))
	assert.ErrorIs(t, err, ErrEventCancelled)
}

func TestRemoveParticipants_RoleMatrix(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice", "bob", "staff", "comanager")
	ctx := context.Background()

	result, err := f.registrations.RemoveParticipants(ctx, event.ID, []uint{f.people["comanager"].ID}, f.principal("staff"))
	require.NoError(t, err)
	assert.Equal(t, domain.RemovalResult{Requested: 1, Removed: 0}, result)

	result, err = f.registrations.RemoveParticipants(ctx, event.ID,
		[]uint{f.people["staff"].ID, f.people["alice"].ID, f.people["comanager"].ID}, f.principal("organizer"))
	require.NoError(t, err)
	assert.Equal(t, domain.RemovalResult{Requested: 3, Removed: 2}, result)

	_, err = f.registrations.RemoveParticipants(ctx, event.ID, []uint{f.people["bob"].ID}, f.principal("carol"))
	assert.ErrorIs(t, err, ErrInsufficientRole)

	result, err = f.registrations.RemoveParticipants(ctx, event.ID,
		[]uint{f.people["bob"].ID, f.people["comanager"].ID}, f.principal("admin"))
	require.NoError(t, err)
	assert.Equal(t, domain.RemovalResult{Requested: 2, Removed: 2}, result)
	assert.Empty(t, participantIDs(t, f, event.ID))
}

func TestCancelMyRegistration(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice")
	ctx := context.Background()

	f.setNow(event.StartTime.Add(time.Hour))
	err := f.registrations.CancelMyRegistration(ctx, event.ID, f.people["alice"].ID)
	assert.ErrorIs(t, err, ErrEventNotUpcoming)

	f.setNow(f.now)
	require.NoError(t, f.registrations.CancelMyRegistration(ctx, event.ID, f.people["alice"].ID))
	assert.ErrorIs(t, f.registrations.CancelMyRegistration(ctx, event.ID, f.people["alice"].ID), ErrParticipationNotFound)
	assert.ErrorIs(t, f.registrations.CancelMyRegistration(ctx, 9999, f.people["alice"].ID), ErrEventNotFound)
}

func TestGetParticipants_EvictedByJoin(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice")
	ctx := context.Background()

	first, err := f.registrations.GetParticipants(ctx, event.ID, f.principal("staff"))
	require.NoError(t, err)
	again, err := f.registrations.GetParticipants(ctx, event.ID, f.principal("staff"))
	require.NoError(t, err)
	assert.Equal(t, first, again)
	require.Len(t, first, 1)
	assert.Equal(t, "alice@example.com", first[0].User.Email)

	f.join(t, event, "bob")
	after, err := f.registrations.GetParticipants(ctx, event.ID, f.principal("staff"))
	require.NoError(t, err)
	assert.Len(t, after, 2)

	_, err = f.registrations.GetParticipants(ctx, event.ID, f.principal("alice"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
