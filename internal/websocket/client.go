package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"koidash/internal/config"
	"koidash/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	sendBufferSize = 256
)

var heartbeat = []byte(`{"type":"heartbeat"}`)

// ClientConfig holds the connection timings of a client
type ClientConfig struct {
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// NewClientConfig derives client timings from the server configuration.
// The ping period is kept below the pong wait.
func NewClientConfig(cfg config.WebSocketConfig) ClientConfig {
	cc := ClientConfig{
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod,
		MaxMessageSize: cfg.MaxMessageSize,
	}
	if cc.PongWait <= 0 {
		cc.PongWait = 60 * time.Second
	}
	if cc.PingPeriod <= 0 || cc.PingPeriod >= cc.PongWait {
		cc.PingPeriod = (cc.PongWait * 9) / 10
	}
	if cc.MaxMessageSize <= 0 {
		cc.MaxMessageSize = 512
	}
	return cc
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	cfg  ClientConfig

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client for conn. traceID is the request id of the
// upgrade request.
func NewClient(hub *Hub, conn Connection, cfg ClientConfig, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		cfg:         cfg,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client id
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context(ctx context.Context) context.Context {
	if c.traceID != "" {
		return infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump reads until the connection fails, answering pongs and
// heartbeats, then unregisters the client. Browsers send nothing else.
func (c *Client) ReadPump() {
	ctx := c.context(context.Background())
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		c.hub.metrics.RecordMessage(ctx, "received", len(message))

		if bytes.Equal(bytes.TrimSpace(message), heartbeat) {
			c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
			c.logger.DebugContext(ctx, "Heartbeat received")
		}
	}
}

// WritePump writes queued messages and periodic pings until the hub
// closes the send channel or a write fails.
func (c *Client) WritePump() {
	ctx := c.context(context.Background())
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.hub.metrics.RecordMessage(ctx, "sent", len(message))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
