package messaging

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/mburgess/go-dms/internal/database"
	"github.com/mburgess/go-dms/internal/stats"
	"github.com/mburgess/go-dms/internal/testutil"
	"github.com/mburgess/go-dms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type capturedEvent struct {
	userId      int
	msg         types.Message
	unreadCount int
}

type fakeNotifier struct {
	events []capturedEvent
}

func (f *fakeNotifier) NotifyMessage(userId int, msg types.Message, unreadCount int) {
	f.events = append(f.events, capturedEvent{userId: userId, msg: msg, unreadCount: unreadCount})
}

func TestSend_SelfMessageRejected(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	_, err := svc.Send(1, 1, "hello me")
	assert.ErrorIs(t, err, ErrSelfMessage)
	// no repository calls at all: a self-send must leave no trace
	mockRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
}

func TestSend_UnknownReceiver(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("GetAccountById", 99).Return(database.User{}, sql.ErrNoRows).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	_, err := svc.Send(1, 99, "anyone there?")
	assert.ErrorIs(t, err, ErrUnknownReceiver)
}

func TestSend_CreatesRoomOnFirstContact(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	mockStats := &stats.MockStatsUpdater{}
	defer mockStats.AssertExpectations(t)

	receiver := database.User{Id: 2, Username: "bob"}
	room := database.Room{Id: 5, UserLo: 1, UserHi: 2}
	dbMsg := database.Message{
		Id:        7,
		RoomId:    room.Id,
		UserId:    1,
		Content:   "hi",
		CreatedOn: time.Now().UTC(),
	}

	mockRepo.On("GetAccountById", 2).Return(receiver, nil).Once()
	mockRepo.On("FindRoomByMembers", 1, 2).Return(database.Room{}, sql.ErrNoRows).Once()
	mockRepo.On("CreateRoom", 1, 2).Return(room, nil).Once()
	mockRepo.On("CreateMessage", room.Id, 1, "hi").Return(dbMsg, nil).Once()
	mockRepo.On("GetMembership", 2, room.Id).
		Return(database.Membership{Id: 11, RoomId: room.Id, UserId: 2, UnreadCount: 1}, nil).Once()

	mockStats.On("Incr", stats.RoomsCreated).Once()
	mockStats.On("Incr", stats.MessagesSent).Once()

	notifier := &fakeNotifier{}
	svc := NewService(testutil.TestLogger(t), mockRepo, notifier, mockStats)

	msg, err := svc.Send(1, 2, "hi")
	assert.NoError(t, err)
	assert.Equal(t, dbMsg.Id, msg.Id)
	assert.Equal(t, room.Id, msg.RoomId)
	assert.Equal(t, "hi", msg.Content)
	assert.Nil(t, msg.ReadOn, "a fresh message must be unread")

	if assert.Len(t, notifier.events, 1) {
		assert.Equal(t, 2, notifier.events[0].userId)
		assert.Equal(t, 1, notifier.events[0].unreadCount)
	}
}

func TestSend_ReusesExistingRoom(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	receiver := database.User{Id: 1, Username: "alice"}
	room := database.Room{Id: 5, UserLo: 1, UserHi: 2, LastMessage: "hi"}
	dbMsg := database.Message{Id: 8, RoomId: room.Id, UserId: 2, Content: "yo", CreatedOn: time.Now().UTC()}

	// reply direction: same room found, no CreateRoom
	mockRepo.On("GetAccountById", 1).Return(receiver, nil).Once()
	mockRepo.On("FindRoomByMembers", 2, 1).Return(room, nil).Once()
	mockRepo.On("CreateMessage", room.Id, 2, "yo").Return(dbMsg, nil).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	msg, err := svc.Send(2, 1, "yo")
	assert.NoError(t, err)
	assert.Equal(t, room.Id, msg.RoomId)
	mockRepo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
}

func TestSend_LostCreateRaceFallsBackToLookup(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	receiver := database.User{Id: 2, Username: "bob"}
	room := database.Room{Id: 5, UserLo: 1, UserHi: 2}
	dbMsg := database.Message{Id: 9, RoomId: room.Id, UserId: 1, Content: "hi", CreatedOn: time.Now().UTC()}

	mockRepo.On("GetAccountById", 2).Return(receiver, nil).Once()
	mockRepo.On("FindRoomByMembers", 1, 2).Return(database.Room{}, sql.ErrNoRows).Once()
	mockRepo.On("CreateRoom", 1, 2).Return(database.Room{}, database.ErrDuplicateRoom).Once()
	mockRepo.On("FindRoomByMembers", 1, 2).Return(room, nil).Once()
	mockRepo.On("CreateMessage", room.Id, 1, "hi").Return(dbMsg, nil).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	msg, err := svc.Send(1, 2, "hi")
	assert.NoError(t, err)
	assert.Equal(t, room.Id, msg.RoomId, "expected the concurrently created room to be reused")
}

func TestSend_CreateMessageFailure(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	receiver := database.User{Id: 2, Username: "bob"}
	room := database.Room{Id: 5, UserLo: 1, UserHi: 2}

	mockRepo.On("GetAccountById", 2).Return(receiver, nil).Once()
	mockRepo.On("FindRoomByMembers", 1, 2).Return(room, nil).Once()
	mockRepo.On("CreateMessage", room.Id, 1, "hi").
		Return(database.Message{}, errors.New("db error")).Once()

	notifier := &fakeNotifier{}
	svc := NewService(testutil.TestLogger(t), mockRepo, notifier, nil)

	_, err := svc.Send(1, 2, "hi")
	assert.Error(t, err)
	assert.Empty(t, notifier.events, "no event may be pushed for a failed send")
}

func TestOpenRoom_NotMember(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("GetMembership", 3, 5).Return(database.Membership{}, sql.ErrNoRows).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	_, err := svc.OpenRoom(3, 5)
	assert.ErrorIs(t, err, ErrNotMember)
	mockRepo.AssertNotCalled(t, "MarkRoomRead", mock.Anything, mock.Anything)
}

func TestOpenRoom_MarksReadAndReturnsMessages(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	readAt := time.Now().UTC()
	dbMsgs := []database.Message{
		{Id: 1, RoomId: 5, UserId: 1, Content: "hi", CreatedOn: readAt.Add(-2 * time.Minute),
			ReadOn: sql.NullTime{Time: readAt, Valid: true}},
		{Id: 2, RoomId: 5, UserId: 2, Content: "yo", CreatedOn: readAt.Add(-time.Minute)},
	}

	mockRepo.On("GetMembership", 2, 5).
		Return(database.Membership{Id: 11, RoomId: 5, UserId: 2, UnreadCount: 1}, nil).Once()
	mockRepo.On("MarkRoomRead", 2, 5).Return(nil).Once()
	mockRepo.On("GetMessages", 5).Return(dbMsgs, nil).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	msgs, err := svc.OpenRoom(2, 5)
	assert.NoError(t, err)
	if assert.Len(t, msgs, 2) {
		assert.NotNil(t, msgs[0].ReadOn, "expected read stamp to survive conversion")
		assert.Equal(t, readAt, *msgs[0].ReadOn)
		assert.Nil(t, msgs[1].ReadOn, "caller's own message stays unstamped")
	}
}

func TestOpenRoom_MarkReadFailureAborts(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("GetMembership", 2, 5).
		Return(database.Membership{Id: 11, RoomId: 5, UserId: 2}, nil).Once()
	mockRepo.On("MarkRoomRead", 2, 5).Return(errors.New("db error")).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	_, err := svc.OpenRoom(2, 5)
	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "GetMessages", mock.Anything)
}

func TestRooms(t *testing.T) {
	mockRepo := &database.MockDmRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("ListRoomsForAccount", 1).Return([]database.RoomSummary{
		{Id: 5, LastMessage: "yo", UnreadCount: 2, PeerName: "bob"},
		{Id: 6, LastMessage: "", UnreadCount: 0, PeerName: "carol"},
	}, nil).Once()

	svc := NewService(testutil.TestLogger(t), mockRepo, nil, nil)

	rooms, err := svc.Rooms(1)
	assert.NoError(t, err)
	if assert.Len(t, rooms, 2) {
		assert.Equal(t, types.RoomSummary{Id: 5, LastMessage: "yo", UnreadCount: 2, Name: "bob"}, rooms[0])
		assert.Equal(t, types.RoomSummary{Id: 6, LastMessage: "", UnreadCount: 0, Name: "carol"}, rooms[1])
	}
}
