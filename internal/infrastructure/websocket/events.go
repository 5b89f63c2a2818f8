package websocket

import (
	"encoding/json"
	"time"
)

// Wire event names. The server speaks the same envelope in both directions.
const (
	EventPing                = "ping"
	EventPong                = "pong"
	EventNewMessage          = "new_message"
	EventMessageNotification = "message_notification"
	EventReadReceipt         = "read_receipt"
	EventTyping              = "typing"
	EventPresence            = "presence"
	EventJoinChat            = "join_chat"
	EventLeaveChat           = "leave_chat"
)

// Local lifecycle events published on the bus but never sent over the wire.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// Envelope is the JSON frame exchanged with the realtime server:
// {event, data, timestamp}.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewEnvelope(event string, data interface{}) (Envelope, error) {
	env := Envelope{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, err
		}
		env.Data = raw
	}
	return env, nil
}

// Decode unmarshals the envelope payload into dst.
func (e Envelope) Decode(dst interface{}) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, dst)
}

type MessagePayload struct {
	ID            string                 `json:"id"`
	ChatID        string                 `json:"chat_id"`
	SenderID      string                 `json:"sender_id"`
	ReceiverID    string                 `json:"receiver_id"`
	Type          string                 `json:"type"`
	Content       string                 `json:"content,omitempty"`
	AttachmentURL string                 `json:"attachment_url,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Timestamp     string                 `json:"timestamp"`
}

type ReadReceiptPayload struct {
	ChatID   string `json:"chat_id"`
	ReaderID string `json:"reader_id"`
}

type TypingPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Typing bool   `json:"typing"`
}

type PresencePayload struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
	LastSeen string `json:"last_seen,omitempty"`
}

type ChatRoomPayload struct {
	ChatID string `json:"chat_id"`
}

type DisconnectPayload struct {
	Reason string `json:"reason"`
}
