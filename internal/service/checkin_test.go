package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

func TestCheckIn_PublishesOnce(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice")
	ctx := context.Background()

	checkedAt := event.StartTime.Add(-10 * time.Minute)
	f.setNow(checkedAt)

	participant, err := f.checkIns.CheckIn(ctx, event.JoinToken, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, participant.CheckedInAt)
	assert.True(t, checkedAt.Equal(*participant.CheckedInAt))

	calls := f.publisher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, event.ID, calls[0].eventID)
	assert.Equal(t, MessageParticipantCheckedIn, calls[0].name)
	assert.Equal(t, participant, calls[0].data)

	f.setNow(checkedAt.Add(time.Hour))
	_, err = f.checkIns.CheckIn(ctx, event.JoinToken, "alice@example.com")
	require.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Len(t, f.publisher.Calls(), 1)

	stored, err := f.store.Participations().Find(ctx, event.ID, f.people["alice"].ID)
	require.NoError(t, err)
	assert.True(t, checkedAt.Equal(*stored.CheckedInAt))
}

func TestCheckIn_ConcurrentSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice")
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		repeated atomic.Int32
		winner   domain.Participant
		mu       sync.Mutex
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.checkIns.CheckIn(ctx, event.JoinToken, "alice@example.com")
			switch {
			case err == nil:
				accepted.Add(1)
				mu.Lock()
				winner = p
				mu.Unlock()
			case errors.Is(err, ErrAlreadyCheckedIn):
				repeated.Add(1)
			default:
				t.Errorf("unexpected check-in error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, accepted.Load())
	assert.EqualValues(t, 31, repeated.Load())
	assert.Len(t, f.publisher.Calls(), 1)

	require.NotNil(t, winner.CheckedInAt)
	stored, err := f.store.Participations().Find(ctx, event.ID, f.people["alice"].ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckedInAt)
	assert.True(t, winner.CheckedInAt.Equal(*stored.CheckedInAt))
}

func TestCheckIn_NotFound(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		email string
	}{
		{name: "unknown user", token: event.JoinToken, email: "ghost@example.com"},
		{name: "unknown event", token: "nope", email: "alice@example.com"},
		{name: "not registered", token: event.JoinToken, email: "bob@example.com"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.checkIns.CheckIn(ctx, tc.token, tc.email)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
	assert.Empty(t, f.publisher.Calls())
}

func TestCheckIn_EvictsParticipantList(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.join(t, event, "alice")
	ctx := context.Background()

	before, err := f.registrations.GetParticipants(ctx, event.ID, f.principal("staff"))
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Nil(t, before[0].CheckedInAt)

	_, err = f.checkIns.CheckIn(ctx, event.JoinToken, "alice@example.com")
	require.NoError(t, err)

	after, err := f.registrations.GetParticipants(ctx, event.ID, f.principal("staff"))
	require.NoError(t, err)
	assert.NotNil(t, after[0].CheckedInAt)
}

func TestCheckInQR(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	png, err := f.checkIns.CheckInQR(ctx, event.ID, f.principal("staff"))
	require.NoError(t, err)
	assert.Equal(t, "https://events.example.com/check-in/"+event.JoinToken, string(png))

	_, err = f.checkIns.CheckInQR(ctx, event.ID, f.principal("alice"))
	assert.ErrorIs(t, err, ErrInsufficientRole)
}

func TestAuthorizeStream(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	assert.NoError(t, f.checkIns.AuthorizeStream(ctx, event.ID, f.principal("staff")))
	assert.NoError(t, f.checkIns.AuthorizeStream(ctx, event.ID, f.principal("admin")))
	assert.ErrorIs(t, f.checkIns.AuthorizeStream(ctx, event.ID, f.principal("alice")), domain.ErrForbidden)
	assert.ErrorIs(t, f.checkIns.AuthorizeStream(ctx, 9999, f.principal("admin")), domain.ErrNotFound)
}
