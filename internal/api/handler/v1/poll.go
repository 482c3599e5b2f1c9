package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type PollService interface {
	CreatePoll(ctx context.Context, eventID uint, poll domain.Poll, actor domain.Principal) (domain.PollView, error)
	GetPoll(ctx context.Context, pollID, userID uint) (domain.PollView, error)
	GetPollsByEvent(ctx context.Context, eventID uint) ([]domain.PollView, error)
	Vote(ctx context.Context, pollID, userID uint, optionIDs []uint) error
	GetVotedOptionIDs(ctx context.Context, pollID, userID uint) ([]uint, error)
	GetPollStats(ctx context.Context, pollID uint) (domain.PollStats, error)
	GetPollStatsByEvent(ctx context.Context, eventID uint) ([]domain.PollStats, error)
	ClosePoll(ctx context.Context, pollID uint, actor domain.Principal) (domain.PollView, error)
	UpdatePoll(ctx context.Context, pollID uint, changes domain.Poll, actor domain.Principal) (domain.PollView, error)
}

type PollHandler struct {
	svc PollService
}

func NewPollHandler(svc PollService) *PollHandler {
	return &PollHandler{
		svc: svc,
	}
}

func bindPoll(ctx *gin.Context) (domain.Poll, bool) {
	var req request.PollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return domain.Poll{}, false
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return domain.Poll{}, false
	}

	poll, err := req.ToDomain()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return domain.Poll{}, false
	}

	return poll, true
}

// HandleCreatePoll godoc
// @Summary      Create a poll on an event
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                  true  "event ID"
// @Param        request  body      request.PollRequest  true  "poll"
// @Success      201      {object}  domain.PollView
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/polls [post]
// @Security BearerAuth
func (h *PollHandler) HandleCreatePoll(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}
	poll, ok := bindPoll(ctx)
	if !ok {
		return
	}

	view, err := h.svc.CreatePoll(ctx.Request.Context(), eventID, poll, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleCreatePoll -> h.svc.CreatePoll", err)
		return
	}

	ctx.JSON(http.StatusCreated, view)
}

// HandleGetPollsByEvent godoc
// @Summary      List the polls of an event
// @Tags         polls
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {array}   domain.PollView
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/polls [get]
// @Security BearerAuth
func (h *PollHandler) HandleGetPollsByEvent(ctx *gin.Context) {
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	polls, err := h.svc.GetPollsByEvent(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetPollsByEvent -> h.svc.GetPollsByEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, polls)
}

// HandleGetPollStatsByEvent godoc
// @Summary      Vote statistics of every poll of an event
// @Tags         polls
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {array}   domain.PollStats
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/polls/stats [get]
// @Security BearerAuth
func (h *PollHandler) HandleGetPollStatsByEvent(ctx *gin.Context) {
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	stats, err := h.svc.GetPollStatsByEvent(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetPollStatsByEvent -> h.svc.GetPollStatsByEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// HandleGetPoll godoc
// @Summary      Get a poll
// @Description  has_voted refers to the caller.
// @Tags         polls
// @Produce      json
// @Param        pollID  path      int  true  "poll ID"
// @Success      200     {object}  domain.PollView
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /polls/{pollID} [get]
// @Security BearerAuth
func (h *PollHandler) HandleGetPoll(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	pollID, ok := getIDParam(ctx, "pollID")
	if !ok {
		return
	}

	view, err := h.svc.GetPoll(ctx.Request.Context(), pollID, principal.UserID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetPoll -> h.svc.GetPoll", err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// HandleUpdatePoll godoc
// @Summary      Update a poll
// @Description  Options are matched by id; the update is rejected as a whole if one does not belong to the poll.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        pollID   path      int                  true  "poll ID"
// @Param        request  body      request.PollRequest  true  "poll"
// @Success      200      {object}  domain.PollView
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /polls/{pollID} [put]
// @Security BearerAuth
func (h *PollHandler) HandleUpdatePoll(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	pollID, ok := getIDParam(ctx, "pollID")
	if !ok {
		return
	}
	poll, ok := bindPoll(ctx)
	if !ok {
		return
	}

	view, err := h.svc.UpdatePoll(ctx.Request.Context(), pollID, poll, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdatePoll -> h.svc.UpdatePoll", err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// HandleClosePoll godoc
// @Summary      Close a poll
// @Tags         polls
// @Produce      json
// @Param        pollID  path      int  true  "poll ID"
// @Success      200     {object}  domain.PollView
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /polls/{pollID}/close [post]
// @Security BearerAuth
func (h *PollHandler) HandleClosePoll(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	pollID, ok := getIDParam(ctx, "pollID")
	if !ok {
		return
	}

	view, err := h.svc.ClosePoll(ctx.Request.Context(), pollID, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleClosePoll -> h.svc.ClosePoll", err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// HandleVote godoc
// @Summary      Vote on a poll
// @Description  Replaces any earlier selection of the caller.
// @Tags         polls
// @Accept       json
// @Param        pollID   path      int                  true  "poll ID"
// @Param        request  body      request.VoteRequest  true  "selection"
// @Success      204
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /polls/{pollID}/votes [post]
// @Security BearerAuth
func (h *PollHandler) HandleVote(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	pollID, ok := getIDParam(ctx, "pollID")
	if !ok {
		return
	}

	var req request.VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := h.svc.Vote(ctx.Request.Context(), pollID, principal.UserID, req.OptionIDs); err != nil {
		renderServiceErr(ctx, "HandleVote -> h.svc.Vote", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleGetMyVotes godoc
// @Summary      Options the caller voted for
// @Tags         polls
// @Produce      json
// @Param        pollID  path      int  true  "poll ID"
// @Success      200     {object}  response.VotedOptions
// @Failure      500     {object}  response.Err
// @Router       /polls/{pollID}/votes/me [get]
// @Security BearerAuth
func (h *PollHandler) HandleGetMyVotes(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	pollID, ok := getIDParam(ctx, "pollID")
	if !ok {
		return
	}

	ids, err := h.svc.GetVotedOptionIDs(ctx.Request.Context(), pollID, principal.UserID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetMyVotes -> h.svc.GetVotedOptionIDs", err)
		return
	}
	if ids == nil {
		ids = []uint{}
	}

	ctx.JSON(http.StatusOK, response.VotedOptions{PollID: pollID, OptionIDs: ids})
}

// HandleGetPollStats godoc
// @Summary      Vote statistics of a poll
// @Tags         polls
// @Produce      json
// @Param        pollID  path      int  true  "poll ID"
// @Success      200     {object}  domain.PollStats
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /polls/{pollID}/stats [get]
// @Security BearerAuth
func (h *PollHandler) HandleGetPollStats(ctx *gin.Context) {
	pollID, ok := getIDParam(ctx, "pollID")
	if !ok {
		return
	}

	stats, err := h.svc.GetPollStats(ctx.Request.Context(), pollID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetPollStats -> h.svc.GetPollStats", err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
