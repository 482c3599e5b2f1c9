package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event := f.createEvent(t, intPtr(10))
	assert.NotEmpty(t, event.JoinToken)
	assert.Equal(t, domain.EventStatusUpcoming, event.Status)
	assert.Equal(t, f.people["organizer"].ID, event.CreatedBy)

	detail, err := f.events.GetEvent(ctx, event.ID, f.principal("organizer"))
	require.NoError(t, err)
	assert.Equal(t, "MANAGE", detail.MyRole)
	assert.Len(t, detail.Managers, 3)
	require.NotNil(t, detail.Manager)
	assert.Equal(t, "organizer@example.com", detail.Manager.Email)

	_, err = f.events.CreateEvent(ctx, domain.Event{
		Title:     "Backwards",
		StartTime: f.now.Add(time.Hour),
		EndTime:   f.now,
	}, f.principal("organizer"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateEvent_CapacityBelowCount(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, intPtr(5))
	f.join(t, event, "alice", "bob", "carol")
	ctx := context.Background()

	changes := event
	changes.MaxParticipants = intPtr(2)
	_, err := f.events.UpdateEvent(ctx, event.ID, changes, f.principal("organizer"))
	require.ErrorIs(t, err, ErrCapacityTooLow)

	changes.MaxParticipants = intPtr(3)
	changes.Title = "Open day (full)"
	updated, err := f.events.UpdateEvent(ctx, event.ID, changes, f.principal("comanager"))
	require.NoError(t, err)
	assert.Equal(t, "Open day (full)", updated.Title)

	_, err = f.events.UpdateEvent(ctx, event.ID, changes, f.principal("staff"))
	assert.ErrorIs(t, err, ErrInsufficientRole)
}

func TestCancelEvent_IsTerminal(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	cancelled, err := f.events.CancelEvent(ctx, event.ID, f.principal("organizer"))
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusCancelled, cancelled.Status)

	_, err = f.events.CancelEvent(ctx, event.ID, f.principal("organizer"))
	assert.ErrorIs(t, err, ErrEventCancelled)

	_, err = f.events.UpdateEvent(ctx, event.ID, event, f.principal("organizer"))
	assert.ErrorIs(t, err, ErrEventCancelled)
}

func TestListEvents_CountersAndEviction(t *testing.T) {
	f := newFixture(t)
	first := f.createEvent(t, nil)
	f.createEvent(t, nil)
	ctx := context.Background()
	viewer := f.principal("alice")

	page, err := f.events.ListEvents(ctx, domain.EventQuery{}, viewer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalItems)
	assert.Equal(t, DefaultPageSize, page.Size)
	require.NotNil(t, page.Counters)
	assert.EqualValues(t, 2, page.Counters.Upcoming)
	require.NotNil(t, page.Counters.Managed)
	assert.EqualValues(t, 0, *page.Counters.Managed)
	assert.False(t, page.Items[0].IsRegistered)

	cached, err := f.events.ListEvents(ctx, domain.EventQuery{}, viewer)
	require.NoError(t, err)
	assert.Equal(t, page, cached)

	f.join(t, first, "alice")

	page, err = f.events.ListEvents(ctx, domain.EventQuery{}, viewer)
	require.NoError(t, err)
	for _, item := range page.Items {
		if item.ID == first.ID {
			assert.True(t, item.IsRegistered)
			assert.Equal(t, 1, item.CurrentParticipants)
		}
	}

	_, err = f.events.CancelEvent(ctx, first.ID, f.principal("organizer"))
	require.NoError(t, err)
	page, err = f.events.ListEvents(ctx, domain.EventQuery{Status: domain.EventStatusCancelled}, viewer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalItems)
	assert.EqualValues(t, 1, page.Counters.Cancelled)
	assert.EqualValues(t, 1, page.Counters.Upcoming)
}

func TestListManagedEvents(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	page, err := f.events.ListManagedEvents(ctx, domain.EventQuery{}, f.principal("staff"))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, event.ID, page.Items[0].ID)

	page, err = f.events.ListManagedEvents(ctx, domain.EventQuery{}, f.principal("alice"))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestAssignManager(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)
	ctx := context.Background()

	view, err := f.events.AssignManager(ctx, event.ID, "alice@example.com", domain.RoleStaff, f.principal("comanager"))
	require.NoError(t, err)
	assert.Equal(t, "STAFF", view.Role)

	_, err = f.events.AssignManager(ctx, event.ID, "bob@example.com", domain.RoleStaff, f.principal("alice"))
	assert.ErrorIs(t, err, ErrInsufficientRole)

	_, err = f.events.AssignManager(ctx, event.ID, "ghost@example.com", domain.RoleStaff, f.principal("admin"))
	assert.ErrorIs(t, err, ErrUserNotFound)

	view, err = f.events.AssignManager(ctx, event.ID, "alice@example.com", domain.RoleManage, f.principal("admin"))
	require.NoError(t, err)
	assert.Equal(t, "MANAGE", view.Role)

	detail, err := f.events.GetEvent(ctx, event.ID, f.principal("alice"))
	require.NoError(t, err)
	assert.Equal(t, "MANAGE", detail.MyRole)
}

func TestJoinQR(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, nil)

	png, err := f.events.JoinQR(context.Background(), event.ID, f.principal("comanager"))
	require.NoError(t, err)
	assert.Equal(t, "https://events.example.com/join/"+event.JoinToken, string(png))
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.GetUser(context.Background(), f.people["bob"].ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)

	_, err = f.users.GetUser(context.Background(), 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
