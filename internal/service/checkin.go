package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository"
)

var (
	ErrAlreadyCheckedIn = repository.ErrAlreadyCheckedIn
)

// MessageParticipantCheckedIn is pushed to the event's subscribers after a
// successful check-in, with the participant as payload.
const MessageParticipantCheckedIn = "participant-checked-in"

type Publisher interface {
	Publish(ctx context.Context, eventID uint, name string, data any) int
}

type CheckInService struct {
	events         EventRepository
	participations ParticipationRepository
	users          UserRepository
	cache          *cache.Cache
	publisher      Publisher
	qr             QREncoder
	publicURL      string
	now            func() time.Time
}

func NewCheckInService(
	events EventRepository,
	participations ParticipationRepository,
	users UserRepository,
	c *cache.Cache,
	publisher Publisher,
	qr QREncoder,
	publicURL string,
) *CheckInService {
	return &CheckInService{
		events:         events,
		participations: participations,
		users:          users,
		cache:          c,
		publisher:      publisher,
		qr:             qr,
		publicURL:      strings.TrimRight(publicURL, "/"),
		now:            time.Now,
	}
}

// CheckIn marks the participation of the user behind email as checked in,
// then notifies the event's live subscribers.
func (s *CheckInService) CheckIn(ctx context.Context, token, email string) (domain.Participant, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("s.users.FindByEmail -> %w", err)
	}

	event, err := s.events.FindByJoinToken(ctx, token)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("s.events.FindByJoinToken -> %w", err)
	}

	current, err := s.participations.Find(ctx, event.ID, user.ID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("s.participations.Find -> %w", err)
	}
	if current.IsCheckedIn() {
		return domain.Participant{}, ErrAlreadyCheckedIn
	}

	updated, err := s.participations.MarkCheckedIn(ctx, event.ID, user.ID, s.now())
	if err != nil {
		return domain.Participant{}, fmt.Errorf("s.participations.MarkCheckedIn -> %w", err)
	}

	participant := domain.NewParticipant(updated, user)

	detached := context.WithoutCancel(ctx)
	s.cache.Evict(detached, cache.ParticipationRegions...)

	delivered := s.publisher.Publish(detached, event.ID, MessageParticipantCheckedIn, participant)
	zap.L().Debug("check-in published",
		zap.Uint("event_id", event.ID),
		zap.Uint("user_id", user.ID),
		zap.Int("delivered", delivered),
	)

	return participant, nil
}

// CheckInQR renders the event's check-in link as a PNG QR code.
func (s *CheckInService) CheckInQR(ctx context.Context, eventID uint, actor domain.Principal) ([]byte, error) {
	if _, err := authorize(ctx, s.events, eventID, actor, domain.RoleStaff); err != nil {
		return nil, err
	}

	return cache.GetOrLoad(ctx, s.cache, cache.RegionQRImage, fmt.Sprintf("check-in:%d", eventID), func(ctx context.Context) ([]byte, error) {
		event, err := s.events.FindByID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("s.events.FindByID -> %w", err)
		}

		return s.qr.Encode(fmt.Sprintf("%s/check-in/%s", s.publicURL, event.JoinToken))
	})
}

// AuthorizeStream checks that actor may watch the event's live check-ins.
func (s *CheckInService) AuthorizeStream(ctx context.Context, eventID uint, actor domain.Principal) error {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return fmt.Errorf("s.events.FindByID -> %w", err)
	}

	_, err := authorize(ctx, s.events, eventID, actor, domain.RoleStaff)

	return err
}
