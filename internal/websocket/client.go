// Package websocket pushes live change notifications to connected UIs, so a
// second open device sees plan and pantry edits as they happen.
package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one connected device. Outbound notifications are buffered per
// client so a slow reader cannot stall the hub's broadcast loop.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
}

// NewClient wraps an accepted connection for the hub.
func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run attaches the client to the hub and services the connection until it
// drops, unregistering on the way out.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump drains inbound frames. Devices never send anything we act on;
// reading is what notices the peer going away.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump forwards queued notifications to the wire and pings on an
// interval so half-open connections get torn down.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// channel closed by the hub on unregister
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
