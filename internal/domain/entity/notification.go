package entity

import "time"

const (
	NotificationLikePost     = "like_post"
	NotificationLikeComment  = "like_comment"
	NotificationLikeItem     = "like_item"
	NotificationCommentPost  = "comment_post"
	NotificationCommentItem  = "comment_item"
	NotificationReplyComment = "reply_comment"
	NotificationSystem       = "system"
)

// Notification families used for filtered unread counters.
const (
	NotificationFamilyAll     = ""
	NotificationFamilyLike    = "like"
	NotificationFamilyComment = "comment"
)

// Actor is the user that triggered a notification.
type Actor struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Notification struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	From            Actor     `json:"from"`
	ToUserID        string    `json:"to_user_id"`
	TargetID        string    `json:"target_id"`
	TargetType      string    `json:"target_type"`
	TargetContent   string    `json:"target_content,omitempty"`
	OriginalContent string    `json:"original_content,omitempty"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// InFamily reports whether the notification type belongs to the given family.
// The empty family matches everything.
func (n *Notification) InFamily(family string) bool {
	switch family {
	case NotificationFamilyAll:
		return true
	case NotificationFamilyLike:
		return n.Type == NotificationLikePost || n.Type == NotificationLikeComment || n.Type == NotificationLikeItem
	case NotificationFamilyComment:
		return n.Type == NotificationCommentPost || n.Type == NotificationCommentItem || n.Type == NotificationReplyComment
	default:
		return false
	}
}
