package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository/memory"
)

type published struct {
	eventID uint
	name    string
	data    any
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventID uint, name string, data any) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, published{eventID: eventID, name: name, data: data})

	return 1
}

func (p *recordingPublisher) Calls() []published {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]published(nil), p.calls...)
}

type textEncoder struct{}

func (textEncoder) Encode(content string) ([]byte, error) {
	return []byte(content), nil
}

type fixture struct {
	store         *memory.Store
	cache         *cache.Cache
	publisher     *recordingPublisher
	events        *EventService
	registrations *RegistrationService
	checkIns      *CheckInService
	polls         *PollService
	users         *UserService
	now           time.Time
	people        map[string]domain.User
}

var seedNames = []string{"organizer", "staff", "comanager", "alice", "bob", "carol", "admin"}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	c := cache.New(cache.NewMemoryStore(0), nil)
	publisher := &recordingPublisher{}

	f := &fixture{
		store:         store,
		cache:         c,
		publisher:     publisher,
		events:        NewEventService(store.Events(), store.Participations(), store.Users(), c, textEncoder{}, "https://events.example.com/"),
		registrations: NewRegistrationService(store.Events(), store.Participations(), store.Users(), c),
		checkIns:      NewCheckInService(store.Events(), store.Participations(), store.Users(), c, publisher, textEncoder{}, "https://events.example.com"),
		polls:         NewPollService(store.Polls(), store.Events(), c),
		users:         NewUserService(store.Users()),
		now:           time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		people:        make(map[string]domain.User),
	}
	f.setNow(f.now)

	for _, name := range seedNames {
		roles := []string{domain.PlatformRoleUser}
		if name == "admin" {
			roles = append(roles, domain.PlatformRoleAdmin)
		}
		u, err := store.Users().Save(context.Background(), domain.User{
			Email: name + "@example.com",
			Name:  name,
			Roles: roles,
		})
		require.NoError(t, err)
		f.people[name] = u
	}

	return f
}

func (f *fixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.events.now = clock
	f.registrations.now = clock
	f.checkIns.now = clock
}

func (f *fixture) principal(name string) domain.Principal {
	u := f.people[name]
	return domain.Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles}
}

// createEvent creates an event starting one day after the fixture clock,
// with staff and comanager assigned.
func (f *fixture) createEvent(t *testing.T, capacity *int) domain.Event {
	t.Helper()
	ctx := context.Background()

	event, err := f.events.CreateEvent(ctx, domain.Event{
		Title:           "Open day",
		Location:        "Campus",
		StartTime:       f.now.Add(24 * time.Hour),
		EndTime:         f.now.Add(30 * time.Hour),
		MaxParticipants: capacity,
	}, f.principal("organizer"))
	require.NoError(t, err)

	_, err = f.events.AssignManager(ctx, event.ID, "staff@example.com", domain.RoleStaff, f.principal("organizer"))
	require.NoError(t, err)
	_, err = f.events.AssignManager(ctx, event.ID, "comanager@example.com", domain.RoleManage, f.principal("organizer"))
	require.NoError(t, err)

	return event
}

func (f *fixture) join(t *testing.T, event domain.Event, names ...string) {
	t.Helper()

	for _, name := range names {
		_, err := f.registrations.Join(context.Background(), event.JoinToken, f.people[name].ID)
		require.NoError(t, err)
	}
}

func intPtr(n int) *int {
	return &n
}
