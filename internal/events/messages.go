package events

import (
	"time"

	"github.com/mburgess/go-dms/internal/types"
)

// ServerMessage is the JSON frame pushed to a connected user. The
// socket is push-only; clients never send frames besides pongs.
type ServerMessage struct {
	Timestamp    time.Time      `json:"timestamp"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
}

// Notification carries the receiver's new unread counter for the room
// the message landed in.
type Notification struct {
	RoomId      int `json:"room_id"`
	UnreadCount int `json:"unread_count"`
}

func NewMessageEvent(msg types.Message, unreadCount int) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		Message:   &msg,
		Notification: &Notification{
			RoomId:      msg.RoomId,
			UnreadCount: unreadCount,
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
