package messaging

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/mburgess/go-dms/internal/database"
	"github.com/mburgess/go-dms/internal/stats"
	"github.com/mburgess/go-dms/internal/types"
)

var (
	ErrSelfMessage     = errors.New("sender and receiver are the same user")
	ErrNotMember       = errors.New("user is not a member of room")
	ErrUnknownReceiver = errors.New("receiver does not exist")
)

// Notifier pushes a new-message event to a user's live connections.
type Notifier interface {
	NotifyMessage(userId int, msg types.Message, unreadCount int)
}

// Service owns the two-party room lifecycle: it resolves (or creates)
// the shared room for a user pair, appends messages with their counter
// bookkeeping, and clears unread state when a member opens a room.
type Service struct {
	log   *log.Logger
	db    database.DmRepository
	hub   Notifier
	stats stats.StatsProvider
}

func NewService(logger *log.Logger, db database.DmRepository, hub Notifier, statsProvider stats.StatsProvider) *Service {
	return &Service{
		log:   logger,
		db:    db,
		hub:   hub,
		stats: statsProvider,
	}
}

// Send delivers content from sender to receiver, creating their shared
// room on first contact. The message insert, last-message cache and
// unread bump commit as one transaction in the repository.
func (s *Service) Send(senderId, receiverId int, content string) (types.Message, error) {
	if senderId == receiverId {
		return types.Message{}, ErrSelfMessage
	}

	if _, err := s.db.GetAccountById(receiverId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrUnknownReceiver
		}
		return types.Message{}, fmt.Errorf("lookup receiver: %w", err)
	}

	room, err := s.getOrCreateRoom(senderId, receiverId)
	if err != nil {
		return types.Message{}, err
	}

	dbMsg, err := s.db.CreateMessage(room.Id, senderId, content)
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	if s.stats != nil {
		s.stats.Incr(stats.MessagesSent)
	}

	msg := toMessage(dbMsg)
	s.notifyReceiver(receiverId, room.Id, msg)

	return msg, nil
}

// OpenRoom returns the room's messages in chronological order after
// clearing the caller's unread counter and stamping read receipts on
// the other member's unread messages.
func (s *Service) OpenRoom(userId, roomId int) ([]types.Message, error) {
	if _, err := s.db.GetMembership(userId, roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	if err := s.db.MarkRoomRead(userId, roomId); err != nil {
		return nil, fmt.Errorf("mark room read: %w", err)
	}

	dbMsgs, err := s.db.GetMessages(roomId)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	msgs := make([]types.Message, 0, len(dbMsgs))
	for _, dbMsg := range dbMsgs {
		msgs = append(msgs, toMessage(dbMsg))
	}

	return msgs, nil
}

func (s *Service) Rooms(userId int) ([]types.RoomSummary, error) {
	dbRooms, err := s.db.ListRoomsForAccount(userId)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]types.RoomSummary, 0, len(dbRooms))
	for _, r := range dbRooms {
		rooms = append(rooms, types.RoomSummary{
			Id:          r.Id,
			LastMessage: r.LastMessage,
			UnreadCount: r.UnreadCount,
			Name:        r.PeerName,
		})
	}

	return rooms, nil
}

// getOrCreateRoom resolves the shared room for a pair. Creation races
// against a concurrent first message are settled by the store's unique
// pair constraint: the loser re-runs the lookup and joins the winner's
// room.
func (s *Service) getOrCreateRoom(userA, userB int) (database.Room, error) {
	room, err := s.db.FindRoomByMembers(userA, userB)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, fmt.Errorf("find room: %w", err)
	}

	room, err = s.db.CreateRoom(userA, userB)
	if err == nil {
		if s.stats != nil {
			s.stats.Incr(stats.RoomsCreated)
		}
		return room, nil
	}

	if errors.Is(err, database.ErrDuplicateRoom) {
		room, err = s.db.FindRoomByMembers(userA, userB)
		if err != nil {
			return database.Room{}, fmt.Errorf("find room after lost create race: %w", err)
		}
		return room, nil
	}

	return database.Room{}, fmt.Errorf("create room: %w", err)
}

func (s *Service) notifyReceiver(receiverId, roomId int, msg types.Message) {
	if s.hub == nil {
		return
	}

	m, err := s.db.GetMembership(receiverId, roomId)
	if err != nil {
		s.log.Printf("unread count for user %d in room %d: %v", receiverId, roomId, err)
		return
	}

	s.hub.NotifyMessage(receiverId, msg, m.UnreadCount)
}

func toMessage(dbMsg database.Message) types.Message {
	msg := types.Message{
		Id:        dbMsg.Id,
		RoomId:    dbMsg.RoomId,
		UserId:    dbMsg.UserId,
		Content:   dbMsg.Content,
		CreatedOn: dbMsg.CreatedOn,
	}

	if dbMsg.ReadOn.Valid {
		readOn := dbMsg.ReadOn.Time
		msg.ReadOn = &readOn
	}

	return msg
}
