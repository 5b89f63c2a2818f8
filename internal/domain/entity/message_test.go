package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatIDForIsOrderIndependent(t *testing.T) {
	assert.Equal(t, ChatIDFor("user_a", "user_b"), ChatIDFor("user_b", "user_a"))
	assert.Equal(t, "chat_user_a_user_b", ChatIDFor("user_b", "user_a"))
}

func TestCanTransitionForwardOnly(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{MessageStatusSending, MessageStatusSent, true},
		{MessageStatusSent, MessageStatusDelivered, true},
		{MessageStatusDelivered, MessageStatusRead, true},
		{MessageStatusSending, MessageStatusRead, true},
		{MessageStatusSending, MessageStatusFailed, true},

		{MessageStatusSent, MessageStatusSending, false},
		{MessageStatusRead, MessageStatusDelivered, false},
		{MessageStatusRead, MessageStatusSent, false},
		{MessageStatusSent, MessageStatusFailed, false},
		{MessageStatusFailed, MessageStatusSent, false},
		{MessageStatusFailed, MessageStatusRead, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAdvanceStatusIsMonotonic(t *testing.T) {
	m := &Message{Status: MessageStatusSending}

	assert.True(t, m.AdvanceStatus(MessageStatusSent))
	assert.True(t, m.AdvanceStatus(MessageStatusDelivered))
	assert.True(t, m.AdvanceStatus(MessageStatusRead))
	assert.Equal(t, MessageStatusRead, m.Status)

	// No way back down.
	assert.False(t, m.AdvanceStatus(MessageStatusDelivered))
	assert.False(t, m.AdvanceStatus(MessageStatusSending))
	assert.Equal(t, MessageStatusRead, m.Status)
}

func TestAdvanceStatusFailedIsTerminal(t *testing.T) {
	m := &Message{Status: MessageStatusSending}

	assert.True(t, m.AdvanceStatus(MessageStatusFailed))
	assert.False(t, m.AdvanceStatus(MessageStatusSent))
	assert.False(t, m.AdvanceStatus(MessageStatusRead))
	assert.Equal(t, MessageStatusFailed, m.Status)
}

func TestNotificationFamilies(t *testing.T) {
	like := &Notification{Type: NotificationLikeItem}
	comment := &Notification{Type: NotificationReplyComment}
	system := &Notification{Type: NotificationSystem}

	assert.True(t, like.InFamily(NotificationFamilyAll))
	assert.True(t, like.InFamily(NotificationFamilyLike))
	assert.False(t, like.InFamily(NotificationFamilyComment))

	assert.True(t, comment.InFamily(NotificationFamilyComment))
	assert.False(t, comment.InFamily(NotificationFamilyLike))

	assert.True(t, system.InFamily(NotificationFamilyAll))
	assert.False(t, system.InFamily(NotificationFamilyLike))
	assert.False(t, system.InFamily(NotificationFamilyComment))
}
