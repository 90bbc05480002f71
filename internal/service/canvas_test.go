package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hiveboard/internal/repository"
	"hiveboard/internal/repository/mocks"
	"hiveboard/internal/service"
)

func newCanvasService(t *testing.T) (*service.CanvasService, *mocks.CanvasRepository, *mocks.CanvasCache) {
	t.Helper()
	canvasRepo := new(mocks.CanvasRepository)
	canvasCache := new(mocks.CanvasCache)
	// worker 进程内不需要投递端，asynq client 为 nil
	return service.NewCanvasService(canvasRepo, canvasCache, nil), canvasRepo, canvasCache
}

func TestCanvasService_Snapshot_CacheHit(t *testing.T) {
	// Arrange
	svc, canvasRepo, canvasCache := newCanvasService(t)
	ctx := context.Background()
	cached := json.RawMessage(`{"strokes":[1,2,3]}`)
	canvasCache.On("GetSnapshot", ctx, "m1").Return(cached, nil).Once()

	// Act
	data, err := svc.Snapshot(ctx, "m1")

	// Assert: 缓存命中时不碰数据库
	require.NoError(t, err)
	assert.JSONEq(t, string(cached), string(data))
	canvasRepo.AssertNotCalled(t, "GetSnapshot", mock.Anything, mock.Anything)
	canvasCache.AssertExpectations(t)
}

func TestCanvasService_Snapshot_CacheMissBackfills(t *testing.T) {
	// Arrange
	svc, canvasRepo, canvasCache := newCanvasService(t)
	ctx := context.Background()
	stored := json.RawMessage(`{"strokes":[]}`)
	canvasCache.On("GetSnapshot", ctx, "m1").Return(nil, repository.ErrNotFound).Once()
	canvasRepo.On("GetSnapshot", ctx, "m1").Return(stored, nil).Once()
	canvasCache.On("SetSnapshot", ctx, "m1", stored).Return(nil).Once()

	// Act
	data, err := svc.Snapshot(ctx, "m1")

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, string(stored), string(data))
	canvasRepo.AssertExpectations(t)
	canvasCache.AssertExpectations(t)
}

func TestCanvasService_Snapshot_NoSnapshotYet(t *testing.T) {
	// Arrange: 会议存在但还没有画布快照
	svc, canvasRepo, canvasCache := newCanvasService(t)
	ctx := context.Background()
	canvasCache.On("GetSnapshot", ctx, "m1").Return(nil, repository.ErrNotFound).Once()
	canvasRepo.On("GetSnapshot", ctx, "m1").Return(nil, nil).Once()

	// Act
	data, err := svc.Snapshot(ctx, "m1")

	// Assert: 空快照不回填缓存
	require.NoError(t, err)
	assert.Nil(t, data)
	canvasCache.AssertNotCalled(t, "SetSnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestCanvasService_Snapshot_MeetingNotFound(t *testing.T) {
	svc, canvasRepo, canvasCache := newCanvasService(t)
	ctx := context.Background()
	canvasCache.On("GetSnapshot", ctx, "ghost").Return(nil, repository.ErrNotFound).Once()
	canvasRepo.On("GetSnapshot", ctx, "ghost").Return(nil, repository.ErrMeetingNotFound).Once()

	_, err := svc.Snapshot(ctx, "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrMeetingNotFound))
}

func TestCanvasService_SaveSnapshot_RefreshesCache(t *testing.T) {
	// Arrange
	svc, canvasRepo, canvasCache := newCanvasService(t)
	ctx := context.Background()
	data := json.RawMessage(`{"strokes":[{"id":1}]}`)
	canvasRepo.On("SaveSnapshot", ctx, "m1", data).Return(nil).Once()
	canvasCache.On("SetSnapshot", ctx, "m1", data).Return(nil).Once()

	// Act
	err := svc.SaveSnapshot(ctx, "m1", data)

	// Assert
	require.NoError(t, err)
	canvasRepo.AssertExpectations(t)
	canvasCache.AssertExpectations(t)
}

func TestCanvasService_SaveSnapshot_DroppedForDeletedMeeting(t *testing.T) {
	// Arrange: 会议在任务执行前被删除
	svc, canvasRepo, canvasCache := newCanvasService(t)
	ctx := context.Background()
	data := json.RawMessage(`{}`)
	canvasRepo.On("SaveSnapshot", ctx, "gone", data).Return(repository.ErrMeetingNotFound).Once()

	// Act
	err := svc.SaveSnapshot(ctx, "gone", data)

	// Assert: 不返回错误，重试没有意义
	require.NoError(t, err)
	canvasCache.AssertNotCalled(t, "SetSnapshot", mock.Anything, mock.Anything, mock.Anything)
}
