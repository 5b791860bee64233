package live

import "spatial-radio/internal/radio"

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgSessions MessageType = "sessions"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

type SessionsPayload struct {
	Sessions []radio.SessionSnapshot `json:"sessions"`
}
