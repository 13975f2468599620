package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"cowatch-sync-server/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

type Options struct {
	MaxMessageSize int64
	// EventsPerSecond caps inbound frames per connection; zero disables it.
	EventsPerSecond float64
}

// Conn adapts a gorilla connection to domain.Connection. It carries no
// identity beyond the id handed out by the handler.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	handler domain.MessageHandler
	limiter *rate.Limiter
	opts    Options
	done    chan struct{}

	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, h domain.MessageHandler, opts Options) *Conn {
	c := &Conn{
		ws:      ws,
		send:    make(chan []byte, sendBufferSize),
		handler: h,
		opts:    opts,
		done:    make(chan struct{}),
	}
	if opts.EventsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventsPerSecond), max(1, int(opts.EventsPerSecond)*2))
	}
	return c
}

func (c *Conn) ID() string { return c.id }

// Send queues data without blocking. It fails once the buffer is full or the
// connection is closing.
func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) Start() {
	c.id = c.handler.Connect(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnect(c.id)
		c.Close()
	}()

	if c.opts.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.opts.MaxMessageSize)
	}
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			slog.Debug("event rate exceeded", "clientId", c.id)
			continue
		}

		c.handler.Handle(c.id, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
