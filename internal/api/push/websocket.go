package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vietanh2810/eventhub-api/internal/broadcast"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Upgrader accepts any origin; CORS is enforced by the HTTP middleware.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WSChannel pushes messages over one WebSocket connection. Clients do not
// send anything meaningful; reads only track liveness.
type WSChannel struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewWSChannel(conn *websocket.Conn, buffer int) *WSChannel {
	if buffer <= 0 {
		buffer = 1
	}

	return &WSChannel{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *WSChannel) Send(ctx context.Context, msg broadcast.Message) error {
	payload, err := json.Marshal(wsFrame{Event: msg.Name, Data: msg.Data})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return broadcast.ErrChannelClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return broadcast.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *WSChannel) Close() error {
	c.once.Do(func() {
		close(c.done)
	})

	return nil
}

func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}

// Run starts the pumps and blocks until the connection ends.
func (c *WSChannel) Run() {
	go c.readPump()
	c.writePump()
}

func (c *WSChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err = w.Write(message); err != nil {
				return
			}
			if err = w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSChannel) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
