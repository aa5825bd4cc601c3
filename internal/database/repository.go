package database

import "errors"

var (
	// ErrDuplicateUsername is returned when the store's unique
	// constraint on usernames rejects an insert.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateRoom is returned when a room for the same user pair
	// was created concurrently; callers should re-run the lookup.
	ErrDuplicateRoom = errors.New("room already exists for user pair")
)

type DmRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(id int) (User, error)
	GetAccountByUsername(username string) (User, error)
	ListAccounts(excludeId int) ([]User, error)
	FindRoomByMembers(userA, userB int) (Room, error)
	CreateRoom(userA, userB int) (Room, error)
	GetMembership(userId, roomId int) (Membership, error)
	ListRoomsForAccount(userId int) ([]RoomSummary, error)
	CreateMessage(roomId, senderId int, content string) (Message, error)
	MarkRoomRead(userId, roomId int) error
	GetMessages(roomId int) ([]Message, error)
}
