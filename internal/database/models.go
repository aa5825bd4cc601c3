package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Room is the shared container for a pair of users. UserLo/UserHi hold
// the member pair in canonical (min, max) order; the pair is unique at
// the store level so concurrent first messages cannot create two rooms.
type Room struct {
	Id          int
	LastMessage string
	UserLo      int
	UserHi      int
}

type Membership struct {
	Id          int
	RoomId      int
	UserId      int
	UnreadCount int
}

type Message struct {
	Id        int
	RoomId    int
	UserId    int
	Content   string
	CreatedOn time.Time
	ReadOn    sql.NullTime
}

// RoomSummary is one member's view of a room: PeerName is the other
// member's username, UnreadCount the caller's own counter.
type RoomSummary struct {
	Id          int
	LastMessage string
	UnreadCount int
	PeerName    string
}

type CreateAccountParams struct {
	Username     string
	PasswordHash string
}
