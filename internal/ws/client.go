package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"idle_tapper/internal/events"
	"idle_tapper/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer  = 64
	eventBuffer = 64
)

type Client struct {
	PlayerID int64
	Conn     *websocket.Conn
	Send     chan []byte

	hub       *Hub
	sub       *events.Subscription
	log       *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(playerID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		hub:      hub,
		log:      logger.Component("ws").With("player_id", playerID),
		done:     make(chan struct{}),
	}
}

// Run serves the connection until the peer leaves or the hub closes.
func (c *Client) Run() {
	if !c.hub.register(c) {
		_ = c.Conn.Close()
		return
	}
	c.sub = c.hub.Bus.Subscribe(c.PlayerID, eventBuffer)
	defer func() {
		c.hub.Bus.Unsubscribe(c.sub)
		c.hub.unregister(c)
		c.close()
	}()

	go c.writePump()
	c.enqueue(Frame{Type: MsgReady})
	c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue drops the frame when the client cannot keep up.
func (c *Client) enqueue(f Frame) {
	msg, err := json.Marshal(f)
	if err != nil {
		c.log.Error("encode frame failed", "type", f.Type, "error", err)
		return
	}
	select {
	case c.Send <- msg:
	case <-c.done:
	default:
		c.log.Warn("send buffer full, frame dropped", "type", f.Type)
	}
}

//read
func (c *Client) readPump() {
	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", "error", err)
			}
			return
		}
		var in Frame
		if err := json.Unmarshal(msg, &in); err != nil {
			c.enqueue(Frame{Type: MsgError, Payload: ErrorPayload{Message: "malformed message"}})
			continue
		}
		switch in.Type {
		case MsgPing:
			c.enqueue(Frame{Type: MsgPong})
		default:
			c.enqueue(Frame{Type: MsgError, Payload: ErrorPayload{Message: "unknown message type"}})
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
			return

		case msg := <-c.Send:
			if err := c.write(msg); err != nil {
				return
			}

		case ev, ok := <-c.sub.C:
			if !ok {
				return
			}
			msg, err := json.Marshal(ev)
			if err != nil {
				c.log.Error("encode event failed", "type", ev.Type, "error", err)
				continue
			}
			if err := c.write(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(msg []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		c.log.Debug("write error", "error", err)
		return err
	}
	return nil
}
