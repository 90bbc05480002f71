package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/repository"
	"hiveboard/internal/tasks"
)

// CanvasService 负责画布快照的读写。
// 读路径走 Redis 缓存，未命中回源 MySQL 并回填；
// 写路径由 WebSocket 处理器投递 asynq 任务，worker 异步落库，
// 广播永远不等待快照写入。
type CanvasService struct {
	canvasRepo  repository.CanvasRepository
	canvasCache repository.CanvasCache
	asynqClient *asynq.Client
}

// NewCanvasService 创建 CanvasService 实例。
// asynqClient 可以为 nil（worker 进程内只需要同步写路径）。
func NewCanvasService(canvasRepo repository.CanvasRepository, canvasCache repository.CanvasCache, asynqClient *asynq.Client) *CanvasService {
	if canvasRepo == nil {
		panic("CanvasRepository cannot be nil for CanvasService")
	}
	if canvasCache == nil {
		panic("CanvasCache cannot be nil for CanvasService")
	}
	return &CanvasService{
		canvasRepo:  canvasRepo,
		canvasCache: canvasCache,
		asynqClient: asynqClient,
	}
}

// Snapshot 读取指定会议的最新画布快照。
// 没有快照时返回 (nil, nil)；会议不存在时返回 ErrMeetingNotFound。
func (s *CanvasService) Snapshot(ctx context.Context, meetingID string) (json.RawMessage, error) {
	logCtx := logrus.WithField("meeting_id", meetingID)

	// 1. 先查缓存
	data, err := s.canvasCache.GetSnapshot(ctx, meetingID)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		// 缓存故障降级为回源，只记日志
		logCtx.WithError(err).Warn("Canvas cache read failed, falling back to database")
	}

	// 2. 回源数据库
	data, err = s.canvasRepo.GetSnapshot(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, ErrMeetingNotFound
		}
		logCtx.WithError(err).Error("Failed to read canvas snapshot from database")
		return nil, ErrInternalServer
	}

	// 3. 回填缓存（失败不影响结果）
	if data != nil {
		if err := s.canvasCache.SetSnapshot(ctx, meetingID, data); err != nil {
			logCtx.WithError(err).Warn("Failed to backfill canvas cache")
		}
	}
	return data, nil
}

// EnqueueSave 投递一个异步快照持久化任务。
// 投递失败只记日志不回传：canvas-updated 广播已经送达，快照是尽力而为。
func (s *CanvasService) EnqueueSave(meetingID string, data json.RawMessage) {
	logCtx := logrus.WithField("meeting_id", meetingID)
	if s.asynqClient == nil {
		logCtx.Warn("No asynq client configured, canvas snapshot not enqueued")
		return
	}

	task, err := tasks.NewCanvasPersistTask(meetingID, data)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build canvas persist task")
		return
	}
	info, err := s.asynqClient.Enqueue(task,
		asynq.Queue(tasks.QueueCanvas),
		asynq.MaxRetry(3),
	)
	if err != nil {
		logCtx.WithError(err).Error("Failed to enqueue canvas persist task")
		return
	}
	logCtx.WithField("task_id", info.ID).Debug("Canvas persist task enqueued")
}

// SaveSnapshot 同步覆盖写入快照并刷新缓存，由 worker 的任务处理器调用。
func (s *CanvasService) SaveSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error {
	logCtx := logrus.WithField("meeting_id", meetingID)

	if err := s.canvasRepo.SaveSnapshot(ctx, meetingID, data); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			// 会议已被删除，重试也不会成功
			logCtx.Warn("Dropping canvas snapshot for deleted meeting")
			return nil
		}
		return err
	}

	if err := s.canvasCache.SetSnapshot(ctx, meetingID, data); err != nil {
		logCtx.WithError(err).Warn("Failed to refresh canvas cache after snapshot write")
	}
	return nil
}
