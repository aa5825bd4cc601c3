package database

import (
	"github.com/stretchr/testify/mock"
)

type MockDmRepository struct {
	mock.Mock
}

func (m *MockDmRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockDmRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockDmRepository) GetAccountById(id int) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockDmRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockDmRepository) ListAccounts(excludeId int) ([]User, error) {
	args := m.Called(excludeId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockDmRepository) FindRoomByMembers(userA, userB int) (Room, error) {
	args := m.Called(userA, userB)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockDmRepository) CreateRoom(userA, userB int) (Room, error) {
	args := m.Called(userA, userB)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockDmRepository) GetMembership(userId, roomId int) (Membership, error) {
	args := m.Called(userId, roomId)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockDmRepository) ListRoomsForAccount(userId int) ([]RoomSummary, error) {
	args := m.Called(userId)
	return args.Get(0).([]RoomSummary), args.Error(1)
}
func (m *MockDmRepository) CreateMessage(roomId, senderId int, content string) (Message, error) {
	args := m.Called(roomId, senderId, content)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockDmRepository) MarkRoomRead(userId, roomId int) error {
	args := m.Called(userId, roomId)
	return args.Error(0)
}
func (m *MockDmRepository) GetMessages(roomId int) ([]Message, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Message), args.Error(1)
}
