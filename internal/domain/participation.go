package domain

import "time"

type Participation struct {
	ID          uint       `json:"id"`
	EventID     uint       `json:"event_id"`
	UserID      uint       `json:"user_id"`
	JoinedAt    time.Time  `json:"joined_at"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

func (p Participation) IsCheckedIn() bool {
	return p.CheckedInAt != nil
}

// Participant is the participation joined with its user, as pushed to
// subscribers and returned by participant listings.
type Participant struct {
	ID          uint        `json:"id"`
	EventID     uint        `json:"event_id"`
	JoinedAt    time.Time   `json:"joined_at"`
	CheckedInAt *time.Time  `json:"checked_in_at,omitempty"`
	User        UserSummary `json:"user"`
}

func NewParticipant(p Participation, u User) Participant {
	return Participant{
		ID:          p.ID,
		EventID:     p.EventID,
		JoinedAt:    p.JoinedAt,
		CheckedInAt: p.CheckedInAt,
		User:        u.Summary(),
	}
}

type RemovalResult struct {
	Requested int   `json:"requested"`
	Removed   int64 `json:"removed"`
}
