package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/service"
	"hiveboard/internal/tasks"
)

// CanvasPersistHandler 处理画布快照持久化任务。
type CanvasPersistHandler struct {
	canvasSvc *service.CanvasService
}

// NewCanvasPersistHandler 创建 CanvasPersistHandler 实例。
func NewCanvasPersistHandler(canvasSvc *service.CanvasService) *CanvasPersistHandler {
	if canvasSvc == nil {
		panic("CanvasService cannot be nil for CanvasPersistHandler")
	}
	return &CanvasPersistHandler{canvasSvc: canvasSvc}
}

// ProcessTask 反序列化载荷并整体覆盖写入快照。
// 返回错误会触发 asynq 的重试；后写的任务覆盖先写的（最后写入者获胜）。
func (h *CanvasPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CanvasPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// 载荷损坏不可恢复，跳过重试
		return fmt.Errorf("failed to unmarshal canvas persist payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithField("meeting_id", payload.MeetingID)
	if err := h.canvasSvc.SaveSnapshot(ctx, payload.MeetingID, payload.Data); err != nil {
		logCtx.WithError(err).Warn("Canvas snapshot persistence failed, will retry")
		return err
	}
	logCtx.Debug("Canvas snapshot persisted")
	return nil
}
