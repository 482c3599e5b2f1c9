package domain

import (
	"fmt"
	"strings"
	"time"
)

type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "UPCOMING"
	EventStatusOngoing   EventStatus = "ONGOING"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

func ParseEventStatus(s string) (EventStatus, error) {
	switch status := EventStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled:
		return status, nil
	default:
		return "", Invalidf("unknown event status %q", s)
	}
}

type Event struct {
	ID              uint        `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	StartTime       time.Time   `json:"start_time"`
	EndTime         time.Time   `json:"end_time"`
	MaxParticipants *int        `json:"max_participants,omitempty"`
	Status          EventStatus `json:"status"`
	JoinToken       string      `json:"-"`
	Banner          string      `json:"banner,omitempty"`
	URLDocs         string      `json:"url_docs,omitempty"`
	CreatedBy       uint        `json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// DisplayStatus derives the status shown to clients. CANCELLED and a stored
// COMPLETED win over the clock; otherwise the status follows [start, end].
func (e Event) DisplayStatus(now time.Time) EventStatus {
	switch {
	case e.Status == EventStatusCancelled:
		return EventStatusCancelled
	case e.Status == EventStatusCompleted:
		return EventStatusCompleted
	case now.Before(e.StartTime):
		return EventStatusUpcoming
	case now.After(e.EndTime):
		return EventStatusCompleted
	default:
		return EventStatusOngoing
	}
}

func (e Event) IsCancelled() bool {
	return e.Status == EventStatusCancelled
}

// HasStarted reports whether participants can no longer be added by staff.
func (e Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartTime)
}

// Admits reports whether count participants fit within the capacity.
func (e Event) Admits(count int) bool {
	return e.MaxParticipants == nil || count <= *e.MaxParticipants
}

func (e Event) String() string {
	return fmt.Sprintf("event %d (%s)", e.ID, e.Title)
}

// EventSummary is an event as it appears in listings.
type EventSummary struct {
	Event
	DisplayStatus       EventStatus  `json:"display_status"`
	CurrentParticipants int          `json:"current_participants"`
	IsRegistered        bool         `json:"is_registered"`
	Manager             *UserSummary `json:"manager,omitempty"`
}

type EventDetail struct {
	EventSummary
	Managers []ManagerView `json:"managers"`
	MyRole   string        `json:"my_role,omitempty"`
}

type EventCounters struct {
	Upcoming  int64  `json:"upcoming"`
	Ongoing   int64  `json:"ongoing"`
	Completed int64  `json:"completed"`
	Cancelled int64  `json:"cancelled"`
	Managed   *int64 `json:"managed,omitempty"`
}

func (c *EventCounters) Add(status EventStatus, n int64) {
	switch status {
	case EventStatusUpcoming:
		c.Upcoming += n
	case EventStatusOngoing:
		c.Ongoing += n
	case EventStatusCompleted:
		c.Completed += n
	case EventStatusCancelled:
		c.Cancelled += n
	}
}

type EventPage struct {
	Items      []EventSummary `json:"items"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalItems int64          `json:"total_items"`
	TotalPages int            `json:"total_pages"`
	Counters   *EventCounters `json:"counters,omitempty"`
}

const (
	EventSortStartTime = "start_time"
	EventSortCreatedAt = "created_at"
	EventSortTitle     = "title"
)

// EventQuery filters and pages event listings. Page is zero based.
type EventQuery struct {
	Page      int
	Size      int
	SortBy    string
	Desc      bool
	Status    EventStatus
	Search    string
	ManagedBy uint
}

func (q EventQuery) Offset() int {
	return q.Page * q.Size
}

// CacheKey is stable for equal queries and is used to key cached listings.
func (q EventQuery) CacheKey() string {
	return fmt.Sprintf("p=%d:s=%d:sort=%s:desc=%t:status=%s:q=%s:m=%d",
		q.Page, q.Size, q.SortBy, q.Desc, q.Status, strings.ToLower(q.Search), q.ManagedBy)
}

func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}

	return int((total + int64(size) - 1) / int64(size))
}
