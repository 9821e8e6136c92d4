package websocket

import (
	"context"
	"time"

	"github.com/dukerupert/adoptrack/internal/model"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one staff connection. An empty species receives every shelter.
type Client struct {
	id      string
	species model.Species
	hub     *Hub
	conn    *ws.Conn
	send    chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, species model.Species) *Client {
	return &Client{
		id:      uuid.NewString(),
		species: species,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
	}
}

func (c *Client) wants(species model.Species) bool {
	return c.species == "" || species == "" || c.species == species
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

// readPump discards incoming frames; the feed is one-way.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

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
