package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vietanh2810/eventhub-api/internal/api/push"
	"github.com/vietanh2810/eventhub-api/internal/broadcast"
	"github.com/vietanh2810/eventhub-api/internal/config"
	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type StreamAuthorizer interface {
	AuthorizeStream(ctx context.Context, eventID uint, actor domain.Principal) error
}

type Subscriber interface {
	Subscribe(eventID uint, ch broadcast.Channel) *broadcast.Subscription
}

// StreamHandler opens live check-in feeds. Each open stream is one channel
// registered with the broadcaster until the client leaves or the stream times out.
type StreamHandler struct {
	conf        *config.BroadcastConfig
	svc         StreamAuthorizer
	broadcaster Subscriber
}

func NewStreamHandler(conf *config.BroadcastConfig, svc StreamAuthorizer, broadcaster Subscriber) *StreamHandler {
	return &StreamHandler{
		conf:        conf,
		svc:         svc,
		broadcaster: broadcaster,
	}
}

func (h *StreamHandler) authorize(ctx *gin.Context, where string) (uint, bool) {
	principal, ok := getPrincipal(ctx)
	if !ok {
		return 0, false
	}
	eventID, ok := getIDParam(ctx, "eventID")
	if !ok {
		return 0, false
	}

	if err := h.svc.AuthorizeStream(ctx.Request.Context(), eventID, principal); err != nil {
		renderServiceErr(ctx, where, err)
		return 0, false
	}

	return eventID, true
}

// HandleEventStream godoc
// @Summary      Live check-in feed over server-sent events
// @Description  Emits participant-checked-in events and periodic heartbeats. Requires STAFF.
// @Tags         streams
// @Produce      text/event-stream
// @Param        eventID  path      int  true  "event ID"
// @Success      200
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/stream [get]
// @Security BearerAuth
func (h *StreamHandler) HandleEventStream(ctx *gin.Context) {
	eventID, ok := h.authorize(ctx, "HandleEventStream -> h.svc.AuthorizeStream")
	if !ok {
		return
	}

	ch := push.NewSSEChannel(h.conf.BufferSize)
	sub := h.broadcaster.Subscribe(eventID, ch)
	defer sub.Cancel()

	streamCtx, cancel := h.withStreamTimeout(ctx.Request.Context())
	defer cancel()

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.Status(http.StatusOK)
	ctx.Writer.Flush()

	if err := ch.Serve(streamCtx, ctx.Writer, ctx.Writer.Flush, h.conf.HeartbeatInterval); err != nil {
		zap.L().Debug("event stream ended", zap.Uint("event_id", eventID), zap.Error(err))
	}
}

// HandleEventWebSocket godoc
// @Summary      Live check-in feed over WebSocket
// @Description  Frames are {"event": name, "data": payload}. Requires STAFF.
// @Tags         streams
// @Param        eventID  path      int  true  "event ID"
// @Success      101
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/ws [get]
// @Security BearerAuth
func (h *StreamHandler) HandleEventWebSocket(ctx *gin.Context) {
	eventID, ok := h.authorize(ctx, "HandleEventWebSocket -> h.svc.AuthorizeStream")
	if !ok {
		return
	}

	conn, err := push.Upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// The upgrader already replied with an HTTP error.
		zap.L().Debug("websocket upgrade failed", zap.Uint("event_id", eventID), zap.Error(err))
		return
	}

	ch := push.NewWSChannel(conn, h.conf.BufferSize)
	sub := h.broadcaster.Subscribe(eventID, ch)
	defer sub.Cancel()

	if h.conf.StreamTimeout > 0 {
		timer := time.AfterFunc(h.conf.StreamTimeout, func() { _ = ch.Close() })
		defer timer.Stop()
	}

	ch.Run()
}

func (h *StreamHandler) withStreamTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.conf.StreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, h.conf.StreamTimeout)
}
