package entity

import (
	"sort"
	"strings"
	"time"
)

// ChatPeer is the other participant's display metadata as cached locally.
type ChatPeer struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsOnline  bool   `json:"is_online"`
}

// Chat is one user's local view of a conversation thread. Each participant
// owns an independent copy, so unread counts, pins and deletes never leak
// to the other side.
type Chat struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Participants    []string   `json:"participants"`
	Peer            ChatPeer   `json:"peer"`
	ItemID          string     `json:"item_id,omitempty"`
	LastMessage     string     `json:"last_message,omitempty"`
	LastMessageType string     `json:"last_message_type,omitempty"`
	LastMessageAt   time.Time  `json:"last_message_at"`
	UnreadCount     int        `json:"unread_count"`
	IsPinned        bool       `json:"is_pinned"`
	IsMuted         bool       `json:"is_muted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ChatIDFor derives the conversation id from the unordered participant pair.
// ChatIDFor(a, b) == ChatIDFor(b, a) always holds.
func ChatIDFor(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return "chat_" + strings.Join(pair, "_")
}

func (c *Chat) IsDeleted() bool {
	return c.DeletedAt != nil
}
