package request

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type OptionRequest struct {
	ID       uint   `json:"id,omitempty"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

func (req OptionRequest) Validate() error {
	return validation.ValidateStruct(
		&req,
		validation.Field(&req.Content, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.ImageURL, is.URL),
	)
}

type PollRequest struct {
	Title     string          `json:"title"`
	Type      string          `json:"type"`
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Options   []OptionRequest `json:"options"`
}

func (req *PollRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Type, validation.In("SINGLE", "MULTIPLE", "single", "multiple")),
		validation.Field(&req.Options, validation.Length(0, 50)),
	)
}

// ToDomain leaves the type empty when the request omits it, so updates keep
// the stored type and creates fall back to SINGLE.
func (req *PollRequest) ToDomain() (domain.Poll, error) {
	poll := domain.Poll{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	if req.Type != "" {
		t, err := domain.ParsePollType(req.Type)
		if err != nil {
			return domain.Poll{}, err
		}
		poll.Type = t
	}

	for _, o := range req.Options {
		poll.Options = append(poll.Options, domain.Option{
			ID:       o.ID,
			Content:  o.Content,
			ImageURL: o.ImageURL,
		})
	}

	return poll, nil
}

type VoteRequest struct {
	OptionIDs []uint `json:"option_ids"`
}

func (req *VoteRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.OptionIDs, validation.Required, validation.Each(validation.Required)),
	)
}
