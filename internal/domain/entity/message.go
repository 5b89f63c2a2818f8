package entity

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeItem   = "item"
	MessageTypeSystem = "system"
)

const (
	MessageStatusSending   = "sending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
)

// statusRank orders the forward-only delivery states. failed is terminal and
// only reachable from sending, so it is not part of the ranking.
var statusRank = map[string]int{
	MessageStatusSending:   0,
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

type Message struct {
	ID            string                 `json:"id"`
	ChatID        string                 `json:"chat_id"`
	SenderID      string                 `json:"sender_id"`
	ReceiverID    string                 `json:"receiver_id"`
	Type          string                 `json:"type"`
	Content       string                 `json:"content,omitempty"`
	AttachmentURL string                 `json:"attachment_url,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Status        string                 `json:"status"`
	DeletedAt     *time.Time             `json:"deleted_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// CanTransition reports whether the delivery status may move from -> to.
// Allowed moves are forward along sending -> sent -> delivered -> read, plus
// sending -> failed. Everything else, including any move out of failed or
// backwards, is rejected.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	if to == MessageStatusFailed {
		return from == MessageStatusSending
	}
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank > fromRank
}

// AdvanceStatus moves the message to the given status when the transition is
// legal and is a no-op otherwise. It reports whether the status changed.
func (m *Message) AdvanceStatus(to string) bool {
	if !CanTransition(m.Status, to) {
		return false
	}
	m.Status = to
	return true
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}
