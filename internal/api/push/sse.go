package push

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/vietanh2810/eventhub-api/internal/broadcast"
)

const heartbeatEvent = "heartbeat"

// SSEChannel queues pushes for one text/event-stream response. Serve owns
// the writer; Send only enqueues.
type SSEChannel struct {
	queue chan broadcast.Message
	done  chan struct{}
	once  sync.Once
}

func NewSSEChannel(buffer int) *SSEChannel {
	if buffer <= 0 {
		buffer = 1
	}

	return &SSEChannel{
		queue: make(chan broadcast.Message, buffer),
		done:  make(chan struct{}),
	}
}

func (c *SSEChannel) Send(ctx context.Context, msg broadcast.Message) error {
	select {
	case <-c.done:
		return broadcast.ErrChannelClosed
	default:
	}

	select {
	case c.queue <- msg:
		return nil
	case <-c.done:
		return broadcast.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SSEChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *SSEChannel) Done() <-chan struct{} {
	return c.done
}

// Serve writes queued messages and heartbeats to w until ctx ends, the
// channel is closed or a write fails. The channel is closed on return.
func (c *SSEChannel) Serve(ctx context.Context, w io.Writer, flush func(), heartbeat time.Duration) error {
	defer c.Close()

	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case msg := <-c.queue:
			if err := sse.Encode(w, sse.Event{Event: msg.Name, Data: msg.Data}); err != nil {
				return err
			}
			flush()
		case now := <-tick:
			if err := sse.Encode(w, sse.Event{Event: heartbeatEvent, Data: now.Unix()}); err != nil {
				return err
			}
			flush()
		}
	}
}
