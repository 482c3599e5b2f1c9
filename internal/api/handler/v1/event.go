package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/eventhub-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/eventhub-api/internal/domain"
)

const pngContentType = "image/png"

type EventService interface {
	CreateEvent(ctx context.Context, input domain.Event, actor domain.Principal) (domain.Event, error)
	UpdateEvent(ctx context.Context, eventID uint, changes domain.Event, actor domain.Principal) (domain.Event, error)
	CancelEvent(ctx context.Context, eventID uint, actor domain.Principal) (domain.Event, error)
	AssignManager(ctx context.Context, eventID uint, email string, role domain.EventRole, actor domain.Principal) (domain.ManagerView, error)
	GetEvent(ctx context.Context, eventID uint, viewer domain.Principal) (domain.EventDetail, error)
	ListEvents(ctx context.Context, q domain.EventQuery, viewer domain.Principal) (domain.EventPage, error)
	ListManagedEvents(ctx context.Context, q domain.EventQuery, viewer domain.Principal) (domain.EventPage, error)
	JoinQR(ctx context.Context, eventID uint, actor domain.Principal) ([]byte, error)
}

type EventHandler struct {
	svc EventService
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{
		svc: svc,
	}
}

// HandleCreateEvent godoc
// @Summary      Create an event
// @Description  The caller becomes a MANAGE manager of the new event.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request  body      request.EventRequest  true  "event"
// @Success      201      {object}  response.CreatedEvent
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}

	var req request.EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.CreateEvent(ctx.Request.Context(), req.ToDomain(), principal)
	if err != nil {
		renderServiceErr(ctx, "HandleCreateEvent -> h.svc.CreateEvent", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.CreatedEvent{Event: event, JoinToken: event.JoinToken})
}

// HandleListEvents godoc
// @Summary      List events
// @Description  Paged listing with per-status counters. Page is zero based.
// @Tags         events
// @Produce      json
// @Param        page    query     int     false  "page"
// @Param        size    query     int     false  "page size"
// @Param        sort    query     string  false  "start_time, created_at or title"
// @Param        order   query     string  false  "asc or desc"
// @Param        status  query     string  false  "UPCOMING, ONGOING, COMPLETED or CANCELLED"
// @Param        search  query     string  false  "matches title and location"
// @Success      200     {object}  domain.EventPage
// @Failure      400     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /events [get]
// @Security BearerAuth
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	h.list(ctx, "HandleListEvents -> h.svc.ListEvents", h.svc.ListEvents)
}

// HandleListManagedEvents godoc
// @Summary      List events the caller manages
// @Tags         events
// @Produce      json
// @Param        page    query     int     false  "page"
// @Param        size    query     int     false  "page size"
// @Param        sort    query     string  false  "start_time, created_at or title"
// @Param        order   query     string  false  "asc or desc"
// @Success      200     {object}  domain.EventPage
// @Failure      400     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /events/managed [get]
// @Security BearerAuth
func (h *EventHandler) HandleListManagedEvents(ctx *gin.Context) {
	h.list(ctx, "HandleListManagedEvents -> h.svc.ListManagedEvents", h.svc.ListManagedEvents)
}

func (h *EventHandler) list(ctx *gin.Context, where string, fetch func(context.Context, domain.EventQuery, domain.Principal) (domain.EventPage, error)) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}

	var req request.ListEventsQuery
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	q, err := req.ToDomain()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	page, err := fetch(ctx.Request.Context(), q, principal)
	if err != nil {
		renderServiceErr(ctx, where, err)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

// HandleGetEvent godoc
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {object}  domain.EventDetail
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	detail, err := h.svc.GetEvent(ctx.Request.Context(), eventID, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleGetEvent -> h.svc.GetEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

// HandleUpdateEvent godoc
// @Summary      Update an event
// @Description  Requires MANAGE. The capacity cannot drop below the current participant count.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                   true  "event ID"
// @Param        request  body      request.EventRequest  true  "event"
// @Success      200      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [put]
// @Security BearerAuth
func (h *EventHandler) HandleUpdateEvent(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.UpdateEvent(ctx.Request.Context(), eventID, req.ToDomain(), principal)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateEvent -> h.svc.UpdateEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleCancelEvent godoc
// @Summary      Cancel an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {object}  domain.Event
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [delete]
// @Security BearerAuth
func (h *EventHandler) HandleCancelEvent(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	event, err := h.svc.CancelEvent(ctx.Request.Context(), eventID, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleCancelEvent -> h.svc.CancelEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleAssignManager godoc
// @Summary      Grant a STAFF or MANAGE role on an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                           true  "event ID"
// @Param        request  body      request.AssignManagerRequest  true  "assignment"
// @Success      200      {object}  domain.ManagerView
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/managers [put]
// @Security BearerAuth
func (h *EventHandler) HandleAssignManager(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	var req request.AssignManagerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	role, err := domain.ParseEventRole(req.Role)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	view, err := h.svc.AssignManager(ctx.Request.Context(), eventID, req.Email, role, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleAssignManager -> h.svc.AssignManager", err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// HandleGetJoinQR godoc
// @Summary      QR code of the event join link
// @Tags         events
// @Produce      png
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {file}    binary
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/qr/join [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetJoinQR(ctx *gin.Context) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return
	}

	png, err := h.svc.JoinQR(ctx.Request.Context(), eventID, principal)
	if err != nil {
		renderServiceErr(ctx, "HandleGetJoinQR -> h.svc.JoinQR", err)
		return
	}

	ctx.Data(http.StatusOK, pngContentType, png)
}
