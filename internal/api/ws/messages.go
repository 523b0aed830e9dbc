package ws

import "time"

// Client message types
const (
	TypeRun  = "run"
	TypePing = "ping"
)

// Server message types; entries use their kind ("log" or "error")
const (
	TypeRunStart    = "run_start"
	TypeRunComplete = "run_complete"
	TypePong        = "pong"
	TypeSystem      = "system"
	TypeError       = "error"
)

// ClientMessage is a message from the browser
type ClientMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Session string `json:"session,omitempty"`
}

// ServerMessage is a message to the browser
type ServerMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	State     string `json:"state,omitempty"`
	ConnID    string `json:"conn_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func newMessage(typ string) ServerMessage {
	return ServerMessage{Type: typ, Timestamp: time.Now().UnixMilli()}
}
