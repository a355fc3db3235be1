// Package ws is the WebSocket transport: it upgrades HTTP requests, pumps
// frames in and out, and exposes each connection to the core as an EventSink.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"collab-chat/errors"

	"github.com/gorilla/websocket"
)

// Config holds the transport timings. PongWait must exceed PingInterval or
// healthy connections get reaped.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     256,
	}
}

// Client wraps one WebSocket connection. Outbound frames go through a
// buffered channel drained by WritePump, so Send never blocks on the
// network; a full buffer means the peer is not keeping up and the
// connection is reported dead instead.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger
	cfg  Config

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, cfg Config, log *slog.Logger) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, cfg.SendBuffer),
		log:  log,
		cfg:  cfg,
	}
}

// Send queues a payload for delivery. It implements contract.EventSink.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrSinkClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errors.ErrSinkFull
	}
}

// Close shuts the outbound channel down; WritePump then sends the close
// frame and releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// ReadPump consumes frames until the peer goes away and hands each one to
// the handler. It owns the read deadline: every pong pushes it forward.
func (c *Client) ReadPump(handle func(raw []byte)) {
	defer func() {
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Connection read failed", "error", err)
			}
			return
		}
		handle(raw)
	}
}

// WritePump drains the send channel and keeps the connection alive with
// periodic pings. It exits when the channel is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("Connection write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
