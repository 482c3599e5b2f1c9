package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type RegistrationService interface {
	Join(ctx context.Context, token string, userID uint) (domain.Participation, error)
	AddParticipants(ctx context.Context, eventID uint, emails []string, actor domain.Principal) ([]domain.Participant, error)
	RemoveParticipants(ctx context.Context, eventID uint, userIDs []uint, actor domain.Principal) (domain.RemovalResult, error)
	CancelMyRegistration(ctx context.Context, eventID, userID uint) error
	GetParticipants(ctx context.Context, eventID uint, actor domain.Principal) ([]domain.Participant, error)
}

type CheckInService interface {
	CheckIn(ctx context.Context, token, email string) (domain.Participant, error)
	CheckInQR(ctx context.Context, eventID uint, actor domain.Principal) ([]byte, error)
}

type ParticipantHandler struct {
	svc      RegistrationService
	checkIns CheckInService
}

func NewParticipantHandler(svc RegistrationService, checkIns CheckInService) *ParticipantHandler {
	return &ParticipantHandler{
		svc:      svc,
		checkIns: checkIns,
	}
}

// HandleJoinEvent godoc
// @Summary      Join an event with its join token
// @Tags         participants
// @Produce      json
// @Param        token  path      string  true  "join token"
// @Success      201    {object}  domain.Participation
// @Failure      404    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /events/join/{token} [post]
// @Security BearerAuth
func (h *ParticipantHandler) HandleJoinEvent(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}

	participation, err := h.svc.Join(ctx.Request.Context(), strings.TrimSpace(ctx.Param("token")), principal.UserID)
	if err != nil {
		renderServiceErr(ctx, "HandleJoinEvent -> h.svc.Join", err)
		return
	}

	ctx.JSON(http.StatusCreated, participation)
}

// HandleGetParticipants godoc
// @Summary      List the participants of an event
// @Tags         participants
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {array}   domain.Participant
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/participants [get]
// @Security BearerAuth
func (h *ParticipantHandler) HandleGetParticipants(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	participants, err := h.svc.GetParticipants(ctx.Request.Context(), eventID, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleGetParticipants -> h.svc.GetParticipants", err)
		return
	}

	ctx.JSON(http.StatusOK, participants)
}

// HandleAddParticipants godoc
// @Summary      Register users by email
// @Description  Users already registered are skipped. The whole batch fails when it would exceed the capacity.
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                             true  "event ID"
// @Param        request  body      request.AddParticipantsRequest  true  "emails"
// @Success      201      {array}   domain.Participant
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/participants [post]
// @Security BearerAuth
func (h *ParticipantHandler) HandleAddParticipants(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.AddParticipantsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	added, err := h.svc.AddParticipants(ctx.Request.Context(), eventID, req.Emails, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleAddParticipants -> h.svc.AddParticipants", err)
		return
	}

	ctx.JSON(http.StatusCreated, added)
}

// HandleRemoveParticipants godoc
// @Summary      Remove participants
// @Description  Targets the caller's role does not outrank are skipped silently.
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                                true  "event ID"
// @Param        request  body      request.RemoveParticipantsRequest  true  "user ids"
// @Success      200      {object}  domain.RemovalResult
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/participants [delete]
// @Security BearerAuth
func (h *ParticipantHandler) HandleRemoveParticipants(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.RemoveParticipantsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.RemoveParticipants(ctx.Request.Context(), eventID, req.UserIDs, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleRemoveParticipants -> h.svc.RemoveParticipants", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// HandleCancelRegistration godoc
// @Summary      Cancel the caller's registration
// @Tags         participants
// @Param        eventID  path      int  true  "event ID"
// @Success      204
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/registration [delete]
// @Security BearerAuth
func (h *ParticipantHandler) HandleCancelRegistration(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	if err := h.svc.CancelMyRegistration(ctx.Request.Context(), eventID, principal.UserID); err != nil {
		renderServiceErr(ctx, "HandleCancelRegistration -> h.svc.CancelMyRegistration", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleCheckIn godoc
// @Summary      Check in to an event
// @Description  The caller scans the check-in QR of the event; the check-in is pushed to live subscribers.
// @Tags         participants
// @Produce      json
// @Param        token  path      string  true  "event token"
// @Success      200    {object}  domain.Participant
// @Failure      404    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /check-in/{token} [post]
// @Security BearerAuth
func (h *ParticipantHandler) HandleCheckIn(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}

	participant, err := h.checkIns.CheckIn(ctx.Request.Context(), strings.TrimSpace(ctx.Param("token")), principal.Email)
	if err != nil {
		renderServiceErr(ctx, "HandleCheckIn -> h.checkIns.CheckIn", err)
		return
	}

	ctx.JSON(http.StatusOK, participant)
}

// HandleGetCheckInQR godoc
// @Summary      QR code of the event check-in link
// @Tags         participants
// @Produce      png
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {file}    binary
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/qr/check-in [get]
// @Security BearerAuth
func (h *ParticipantHandler) HandleGetCheckInQR(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	png, err := h.checkIns.CheckInQR(ctx.Request.Context(), eventID, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleGetCheckInQR -> h.checkIns.CheckInQR", err)
		return
	}

	ctx.Data(http.StatusOK, pngContentType, png)
}
