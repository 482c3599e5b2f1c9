package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_DisplayStatus(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)

	tests := []struct {
		name   string
		stored EventStatus
		now    time.Time
		want   EventStatus
	}{
		{name: "before start", stored: EventStatusUpcoming, now: start.Add(-time.Minute), want: EventStatusUpcoming},
		{name: "at start", stored: EventStatusUpcoming, now: start, want: EventStatusOngoing},
		{name: "during", stored: EventStatusUpcoming, now: start.Add(time.Hour), want: EventStatusOngoing},
		{name: "at end", stored: EventStatusUpcoming, now: end, want: EventStatusOngoing},
		{name: "after end", stored: EventStatusUpcoming, now: end.Add(time.Second), want: EventStatusCompleted},
		{name: "cancelled before start", stored: EventStatusCancelled, now: start.Add(-time.Hour), want: EventStatusCancelled},
		{name: "cancelled after end", stored: EventStatusCancelled, now: end.Add(time.Hour), want: EventStatusCancelled},
		{name: "stored completed", stored: EventStatusCompleted, now: start.Add(-time.Hour), want: EventStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{StartTime: start, EndTime: end, Status: tt.stored}
			assert.Equal(t, tt.want, e.DisplayStatus(tt.now))
		})
	}
}

func TestEvent_Admits(t *testing.T) {
	two := 2

	assert.True(t, Event{}.Admits(1000))
	assert.True(t, Event{MaxParticipants: &two}.Admits(2))
	assert.False(t, Event{MaxParticipants: &two}.Admits(3))
}

func TestParseEventStatus(t *testing.T) {
	status, err := ParseEventStatus(" ongoing ")
	require.NoError(t, err)
	assert.Equal(t, EventStatusOngoing, status)

	_, err = ParseEventStatus("later")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, ErrEventFull, ErrConflict)
	assert.ErrorIs(t, ErrEventNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrInsufficientRole, ErrForbidden)
	assert.NotErrorIs(t, ErrEventFull, ErrNotFound)
	assert.Equal(t, "event is full", ErrEventFull.Error())
}
