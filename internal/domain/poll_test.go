package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPollStats(t *testing.T) {
	poll := Poll{
		ID:    1,
		Title: "Lunch",
		Options: []Option{
			{ID: 10, Content: "X"},
			{ID: 11, Content: "Y"},
			{ID: 12, Content: "Z"},
		},
	}

	t.Run("no votes", func(t *testing.T) {
		stats := NewPollStats(poll, VoteTally{})

		assert.Equal(t, 0, stats.TotalVotes)
		for _, o := range stats.Options {
			assert.Zero(t, o.VoteCount)
			assert.Zero(t, o.Percentage)
		}
	})

	t.Run("percentages follow option order", func(t *testing.T) {
		stats := NewPollStats(poll, VoteTally{
			PerOption:   map[uint]int{10: 1, 12: 3},
			TotalVotes:  4,
			TotalVoters: 3,
		})

		assert.Equal(t, []uint{10, 11, 12}, []uint{stats.Options[0].ID, stats.Options[1].ID, stats.Options[2].ID})
		assert.InDelta(t, 25.0, stats.Options[0].Percentage, 0.0001)
		assert.InDelta(t, 0.0, stats.Options[1].Percentage, 0.0001)
		assert.InDelta(t, 75.0, stats.Options[2].Percentage, 0.0001)
		assert.Equal(t, 3, stats.TotalVoters)
	})
}

func TestNormalizeSelection(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, NormalizeSelection([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, NormalizeSelection(nil))
}

func TestParsePollType(t *testing.T) {
	pt, err := ParsePollType("")
	assert.NoError(t, err)
	assert.Equal(t, PollTypeSingle, pt)

	pt, err = ParsePollType("multiple")
	assert.NoError(t, err)
	assert.Equal(t, PollTypeMultiple, pt)

	_, err = ParsePollType("ranked")
	assert.ErrorIs(t, err, ErrValidation)
}
