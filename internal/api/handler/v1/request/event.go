package request

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type EventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants *int      `json:"max_participants"`
	Banner          string    `json:"banner"`
	URLDocs         string    `json:"url_docs"`
}

func (req *EventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(2, 120)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.Location, validation.Length(0, 200)),
		validation.Field(&req.StartTime, validation.Required),
		validation.Field(&req.EndTime, validation.Required),
		validation.Field(&req.MaxParticipants, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.Banner, is.URL),
		validation.Field(&req.URLDocs, is.URL),
	)
}

func (req *EventRequest) ToDomain() domain.Event {
	return domain.Event{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Location:        req.Location,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Banner:          req.Banner,
		URLDocs:         req.URLDocs,
	}
}

// ListEventsQuery is bound from the query string. Page is zero based.
type ListEventsQuery struct {
	Page   int    `form:"page"`
	Size   int    `form:"size"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
	Status string `form:"status"`
	Search string `form:"search"`
}

func (q *ListEventsQuery) Validate() error {
	return validation.ValidateStruct(
		q,
		validation.Field(&q.Page, validation.Min(0)),
		validation.Field(&q.Size, validation.Min(0), validation.Max(100)),
		validation.Field(&q.Sort, validation.In(domain.EventSortStartTime, domain.EventSortCreatedAt, domain.EventSortTitle)),
		validation.Field(&q.Order, validation.In("asc", "desc")),
		validation.Field(&q.Search, validation.Length(0, 100)),
	)
}

func (q *ListEventsQuery) ToDomain() (domain.EventQuery, error) {
	query := domain.EventQuery{
		Page:   q.Page,
		Size:   q.Size,
		SortBy: q.Sort,
		Desc:   q.Order == "desc",
		Search: q.Search,
	}

	if q.Status != "" {
		status, err := domain.ParseEventStatus(q.Status)
		if err != nil {
			return domain.EventQuery{}, err
		}
		query.Status = status
	}

	return query, nil
}

type AssignManagerRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (req *AssignManagerRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Role, validation.Required),
	)
}
