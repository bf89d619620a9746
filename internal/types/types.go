package types

import "github.com/DoyleJ11/ready-check/internal/platform"

// ClientMessage is a frame sent by a websocket user.
type ClientMessage struct {
	Type      string `json:"type"` // "message" | "react" | "unreact"
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
}

const (
	ClientPost    = "message"
	ClientReact   = "react"
	ClientUnreact = "unreact"
)

type ServerMessage struct {
	Type  string          `json:"type"` // "Event" | "Error"
	Event *platform.Event `json:"event,omitempty"`
	Error string          `json:"error,omitempty"`
}

const (
	ServerEvent = "Event"
	ServerError = "Error"
)
