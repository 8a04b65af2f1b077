// Package events defines the notifications pushed to dashboard browsers
// over the /ws connection.
package events

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeConnection is sent once, right after a browser connects
	TypeConnection MessageType = "connection"

	// TypeSnapshotUpdated announces that a state snapshot has changed
	TypeSnapshotUpdated MessageType = "snapshot:updated"
)

// Message is the envelope of every notification
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectionEvent is the payload of a connection message
type ConnectionEvent struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// SnapshotUpdated is the payload of a snapshot:updated message. Browsers
// compare Version with the last one they rendered and re-request the
// views that depend on Kind.
type SnapshotUpdated struct {
	Kind    string `json:"kind"`
	Version uint64 `json:"version"`
}

// Encode wraps data in a Message stamped with the current time.
func Encode(msgType MessageType, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
