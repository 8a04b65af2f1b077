package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koidash/internal/config"
	"koidash/internal/shared/testutil"
	"koidash/internal/store"
	"koidash/pkg/contracts/events"
)

func runHub(t *testing.T) (*Hub, *slog.Logger, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, logger, logs
}

func testClientConfig() ClientConfig {
	return NewClientConfig(config.WebSocketConfig{PongWait: time.Second, PingPeriod: time.Hour})
}

func connect(t *testing.T, hub *Hub, logger *slog.Logger) (*Client, *MockConnection) {
	t.Helper()
	conn := NewMockConnection()
	client := NewClient(hub, conn, testClientConfig(), "req-1", logger)
	require.True(t, hub.Register(client))
	go client.WritePump()
	go client.ReadPump()
	return client, conn
}

func decodeMessages(t *testing.T, conn *MockConnection) []events.Message {
	t.Helper()
	var out []events.Message
	for _, m := range conn.Written() {
		if m.Type != websocket.TextMessage {
			continue
		}
		var msg events.Message
		require.NoError(t, json.Unmarshal(m.Data, &msg))
		out = append(out, msg)
	}
	return out
}

func TestHubConnectionMessage(t *testing.T) {
	hub, logger, logs := runHub(t)
	client, conn := connect(t, hub, logger)

	require.Eventually(t, func() bool { return len(decodeMessages(t, conn)) == 1 }, time.Second, 5*time.Millisecond)

	msg := decodeMessages(t, conn)[0]
	assert.Equal(t, events.TypeConnection, msg.Type)
	assert.Equal(t, "req-1", msg.TraceID)
	assert.Equal(t, client.ID(), msg.Data.(map[string]interface{})["client_id"])
	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, logs.ContainsMessage("Client registered"))
}

func TestSnapshotListenerBroadcasts(t *testing.T) {
	hub, logger, _ := runHub(t)
	_, connA := connect(t, hub, logger)
	_, connB := connect(t, hub, logger)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.SnapshotListener()(store.KindTicks, 7)

	for _, conn := range []*MockConnection{connA, connB} {
		require.Eventually(t, func() bool { return len(decodeMessages(t, conn)) == 2 }, time.Second, 5*time.Millisecond)
		msg := decodeMessages(t, conn)[1]
		assert.Equal(t, events.TypeSnapshotUpdated, msg.Type)
		assert.Equal(t, map[string]interface{}{"kind": "ticks", "version": float64(7)}, msg.Data)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, logger, logs := runHub(t)
	_, conn := connect(t, hub, logger)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return logs.ContainsMessage("Client unregistered") }, time.Second, 5*time.Millisecond)
}

func TestSlowClientIsDisconnected(t *testing.T) {
	hub, logger, logs := runHub(t)

	// No pumps run, so the send buffer is never drained.
	conn := NewMockConnection()
	client := NewClient(hub, conn, testClientConfig(), "", logger)
	require.True(t, hub.Register(client))

	notify := hub.SnapshotListener()
	version := uint64(0)
	require.Eventually(t, func() bool {
		for i := 0; i < 32; i++ {
			version++
			notify(store.KindKoi, version)
		}
		return hub.ClientCount() == 0
	}, 2*time.Second, time.Millisecond)
	assert.True(t, logs.ContainsMessage("Client send buffer full, disconnecting"))
}

func TestHeartbeatExtendsDeadline(t *testing.T) {
	hub, logger, logs := runHub(t)
	_, conn := connect(t, hub, logger)

	conn.Push(websocket.TextMessage, []byte(` {"type":"heartbeat"} `))

	require.Eventually(t, func() bool { return logs.ContainsMessage("Heartbeat received") }, time.Second, 5*time.Millisecond)
}

func TestWriteFailureClosesConnection(t *testing.T) {
	hub, logger, _ := runHub(t)
	_, conn := connect(t, hub, logger)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.FailWrites(assert.AnError)
	hub.Broadcast(events.TypeSnapshotUpdated, events.SnapshotUpdated{Kind: string(store.KindBars), Version: 1})

	require.Eventually(t, conn.Closed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	_, conn := connect(t, hub, logger)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	require.Eventually(t, conn.Closed, time.Second, 5*time.Millisecond, "write pump exits when send closes")
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.Register(NewClient(hub, NewMockConnection(), testClientConfig(), "", nil)))
	hub.Broadcast(events.TypeSnapshotUpdated, nil)
}

func TestBroadcastQueueOverflowDrops(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(nil, logger)

	for i := 0; i < broadcastQueueSize+3; i++ {
		hub.Broadcast(events.TypeSnapshotUpdated, events.SnapshotUpdated{Kind: string(store.KindKoi), Version: uint64(i)})
	}

	assert.Equal(t, int64(3), hub.Stats()["messages_dropped"])
	assert.True(t, logs.ContainsMessage("Broadcast queue full, dropping message"))
}

func TestNewClientConfig(t *testing.T) {
	cc := NewClientConfig(config.WebSocketConfig{})
	assert.Equal(t, 60*time.Second, cc.PongWait)
	assert.Equal(t, 54*time.Second, cc.PingPeriod)
	assert.Equal(t, int64(512), cc.MaxMessageSize)

	cc = NewClientConfig(config.WebSocketConfig{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second, MaxMessageSize: 1024})
	assert.Equal(t, 9*time.Second, cc.PingPeriod, "ping period must stay below pong wait")
	assert.Equal(t, int64(1024), cc.MaxMessageSize)
}
