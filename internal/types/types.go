package types

import (
	"time"
)

type User struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
}

// RoomSummary is a room as seen by one of its two members: Name is the
// other member's username and UnreadCount is the caller's own counter.
type RoomSummary struct {
	Id          int    `json:"id"`
	LastMessage string `json:"last_message"`
	UnreadCount int    `json:"unread_count"`
	Name        string `json:"name"`
}

type Message struct {
	Id        int        `json:"id"`
	RoomId    int        `json:"room_id"`
	UserId    int        `json:"user_id"`
	Content   string     `json:"content"`
	CreatedOn time.Time  `json:"created_on"`
	ReadOn    *time.Time `json:"read_on"`
}
