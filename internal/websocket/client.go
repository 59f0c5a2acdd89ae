package websocket

import (
	"context"
	"strings"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one subscriber connection.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	tables map[string]bool
}

// NewClient creates a Client subscribed to tables. An empty set subscribes
// to every table.
func NewClient(hub *Hub, conn *ws.Conn, tables []string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if len(tables) > 0 {
		c.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			c.tables[t] = true
		}
	}
	return c
}

// Subscribed reports whether the client wants changes to table.
func (c *Client) Subscribed(table string) bool {
	return c.tables == nil || c.tables[table]
}

// ParseTables reads a comma-separated table list, keeping only known
// tables. Unknown names are returned separately.
func ParseTables(raw string) (tables, unknown []string) {
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if isTable(t) {
			tables = append(tables, t)
		} else {
			unknown = append(unknown, t)
		}
	}
	return tables, unknown
}

func isTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards incoming frames until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
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
