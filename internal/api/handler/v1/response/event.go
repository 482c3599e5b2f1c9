package response

import "github.com/vietanh2810/eventhub-api/internal/domain"

// CreatedEvent is returned to the creator only. Other views never expose the join token.
type CreatedEvent struct {
	domain.Event
	JoinToken string `json:"join_token"`
}
