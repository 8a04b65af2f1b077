// Package websocket pushes state-change notifications to dashboard browsers.
//
// The hub never sends state itself: after every applied store update it
// broadcasts {"type":"snapshot:updated","data":{"kind":...,"version":n}}
// and browsers re-request the views they show. A client whose send buffer
// is full is disconnected; a full broadcast queue drops the notification,
// since the next one carries a newer version anyway.
package websocket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"koidash/internal/infrastructure"
	"koidash/internal/store"
	"koidash/pkg/contracts/events"
)

const broadcastQueueSize = 64

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	messagesSent atomic.Int64
	dropped      atomic.Int64

	metrics *OTelMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. Run must be called before clients register.
func NewHub(metrics *OTelMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = DefaultOTelMetrics()
	}

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down",
				slog.Int("clients", h.ClientCount()),
				slog.Int64("messages_sent", h.messagesSent.Load()))
			return nil

		case client := <-h.register:
			h.addClient(ctx, client)

		case client := <-h.unregister:
			h.removeClient(ctx, client, "closed")

		case message := <-h.broadcast:
			h.fanOut(ctx, message)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.RecordConnection(ctx)
	h.logger.InfoContext(client.context(ctx), "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	data, err := events.Encode(events.TypeConnection, events.ConnectionEvent{
		Status:   "connected",
		ClientID: client.id,
	}, client.traceID)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(ctx context.Context, client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	duration := time.Since(client.connectedAt)
	h.metrics.RecordDisconnection(ctx, duration, reason)
	h.logger.InfoContext(client.context(ctx), "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", duration))
}

func (h *Hub) fanOut(ctx context.Context, message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			h.metrics.RecordDropped(ctx, "client")
			h.logger.WarnContext(client.context(ctx), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			h.removeClient(ctx, client, "slow_consumer")
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
	})
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every client. The message is dropped when
// the queue is full or the hub has stopped.
func (h *Hub) Broadcast(msgType events.MessageType, data interface{}) {
	payload, err := events.Encode(msgType, data, "")
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- payload:
	default:
		h.dropped.Add(1)
		h.metrics.RecordDropped(context.Background(), "hub")
		h.logger.Warn("Broadcast queue full, dropping message",
			slog.String("message_type", string(msgType)))
	}
}

// SnapshotListener returns a store listener announcing every applied update.
func (h *Hub) SnapshotListener() store.Listener {
	return func(kind store.Kind, version uint64) {
		h.Broadcast(events.TypeSnapshotUpdated, events.SnapshotUpdated{Kind: string(kind), Version: version})
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns counters for the health report
func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":   h.ClientCount(),
		"messages_sent":    h.messagesSent.Load(),
		"messages_dropped": h.dropped.Load(),
	}
}
