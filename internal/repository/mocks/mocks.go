// Package mocks 提供 repository 接口的 testify Mock 实现，仅用于单元测试。
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"hiveboard/internal/domain"
)

// RoomRepository 是 repository.RoomRepository 的 Mock 实现。
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) Delete(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepository) ListRoomIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// MeetingRepository 是 repository.MeetingRepository 的 Mock 实现。
type MeetingRepository struct {
	mock.Mock
}

func (m *MeetingRepository) FindByID(ctx context.Context, id string) (*domain.Meeting, error) {
	args := m.Called(ctx, id)
	if meeting, ok := args.Get(0).(*domain.Meeting); ok {
		return meeting, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) FindByCreator(ctx context.Context, creatorID string) ([]domain.Meeting, error) {
	args := m.Called(ctx, creatorID)
	if meetings, ok := args.Get(0).([]domain.Meeting); ok {
		return meetings, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) Save(ctx context.Context, meeting *domain.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}

func (m *MeetingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CanvasRepository 是 repository.CanvasRepository 的 Mock 实现。
type CanvasRepository struct {
	mock.Mock
}

func (m *CanvasRepository) GetSnapshot(ctx context.Context, meetingID string) (json.RawMessage, error) {
	args := m.Called(ctx, meetingID)
	if data, ok := args.Get(0).(json.RawMessage); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CanvasRepository) SaveSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error {
	args := m.Called(ctx, meetingID, data)
	return args.Error(0)
}

// CanvasCache 是 repository.CanvasCache 的 Mock 实现。
type CanvasCache struct {
	mock.Mock
}

func (m *CanvasCache) GetSnapshot(ctx context.Context, meetingID string) (json.RawMessage, error) {
	args := m.Called(ctx, meetingID)
	if data, ok := args.Get(0).(json.RawMessage); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CanvasCache) SetSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error {
	args := m.Called(ctx, meetingID, data)
	return args.Error(0)
}

func (m *CanvasCache) Invalidate(ctx context.Context, meetingID string) error {
	args := m.Called(ctx, meetingID)
	return args.Error(0)
}

// UserRepository 是 repository.UserRepository 的 Mock 实现。
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
