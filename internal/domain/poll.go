package domain

import (
	"strings"
	"time"
)

type PollType string

const (
	PollTypeSingle   PollType = "SINGLE"
	PollTypeMultiple PollType = "MULTIPLE"
)

func ParsePollType(s string) (PollType, error) {
	switch t := PollType(strings.ToUpper(strings.TrimSpace(s))); t {
	case PollTypeSingle, PollTypeMultiple:
		return t, nil
	case "":
		return PollTypeSingle, nil
	default:
		return "", Invalidf("unknown poll type %q", s)
	}
}

type Poll struct {
	ID        uint       `json:"id"`
	EventID   uint       `json:"event_id"`
	Title     string     `json:"title"`
	Type      PollType   `json:"type"`
	Closed    bool       `json:"closed"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	CreatedBy uint       `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	Options   []Option   `json:"options"`
}

type Option struct {
	ID       uint   `json:"id"`
	PollID   uint   `json:"poll_id"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// OptionIDs returns the ids of the poll options in option order.
func (p Poll) OptionIDs() []uint {
	ids := make([]uint, 0, len(p.Options))
	for _, o := range p.Options {
		ids = append(ids, o.ID)
	}

	return ids
}

func (p Poll) HasOption(id uint) bool {
	for _, o := range p.Options {
		if o.ID == id {
			return true
		}
	}

	return false
}

// VoteTally is the raw aggregate read from the vote store.
type VoteTally struct {
	PerOption   map[uint]int
	TotalVotes  int
	TotalVoters int
}

type OptionView struct {
	Option
	VoteCount int `json:"vote_count"`
}

type PollView struct {
	ID          uint         `json:"id"`
	EventID     uint         `json:"event_id"`
	Title       string       `json:"title"`
	Type        PollType     `json:"type"`
	Closed      bool         `json:"closed"`
	StartTime   *time.Time   `json:"start_time,omitempty"`
	EndTime     *time.Time   `json:"end_time,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Options     []OptionView `json:"options"`
	TotalVotes  int          `json:"total_votes"`
	TotalVoters int          `json:"total_voters"`
	HasVoted    bool         `json:"has_voted"`
}

func NewPollView(p Poll, tally VoteTally) PollView {
	options := make([]OptionView, 0, len(p.Options))
	for _, o := range p.Options {
		options = append(options, OptionView{Option: o, VoteCount: tally.PerOption[o.ID]})
	}

	return PollView{
		ID:          p.ID,
		EventID:     p.EventID,
		Title:       p.Title,
		Type:        p.Type,
		Closed:      p.Closed,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		CreatedAt:   p.CreatedAt,
		Options:     options,
		TotalVotes:  tally.TotalVotes,
		TotalVoters: tally.TotalVoters,
	}
}

func (v PollView) OptionIDs() []uint {
	ids := make([]uint, 0, len(v.Options))
	for _, o := range v.Options {
		ids = append(ids, o.ID)
	}

	return ids
}

type OptionStats struct {
	ID         uint    `json:"id"`
	Content    string  `json:"content"`
	ImageURL   string  `json:"image_url,omitempty"`
	VoteCount  int     `json:"vote_count"`
	Percentage float64 `json:"percentage"`
}

type PollStats struct {
	ID          uint          `json:"id"`
	EventID     uint          `json:"event_id"`
	Title       string        `json:"title"`
	Type        PollType      `json:"type"`
	Closed      bool          `json:"closed"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	TotalVotes  int           `json:"total_votes"`
	TotalVoters int           `json:"total_voters"`
	Options     []OptionStats `json:"options"`
}

// NewPollStats computes per-option percentages in option order.
func NewPollStats(p Poll, tally VoteTally) PollStats {
	options := make([]OptionStats, 0, len(p.Options))
	for _, o := range p.Options {
		count := tally.PerOption[o.ID]

		var pct float64
		if tally.TotalVotes > 0 {
			pct = float64(count) * 100 / float64(tally.TotalVotes)
		}

		options = append(options, OptionStats{
			ID:         o.ID,
			Content:    o.Content,
			ImageURL:   o.ImageURL,
			VoteCount:  count,
			Percentage: pct,
		})
	}

	return PollStats{
		ID:          p.ID,
		EventID:     p.EventID,
		Title:       p.Title,
		Type:        p.Type,
		Closed:      p.Closed,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		TotalVotes:  tally.TotalVotes,
		TotalVoters: tally.TotalVoters,
		Options:     options,
	}
}

// NormalizeSelection deduplicates ids while keeping submission order.
func NormalizeSelection(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
