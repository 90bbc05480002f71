package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/service"
)

// RoomSweepHandler 处理周期性的空房间清扫任务。
// Redis TTL 已经覆盖大多数回收，这里兜底清理未过期但早已空置的记录。
type RoomSweepHandler struct {
	roomSvc *service.RoomService
}

// NewRoomSweepHandler 创建 RoomSweepHandler 实例。
func NewRoomSweepHandler(roomSvc *service.RoomService) *RoomSweepHandler {
	if roomSvc == nil {
		panic("RoomService cannot be nil for RoomSweepHandler")
	}
	return &RoomSweepHandler{roomSvc: roomSvc}
}

// ProcessTask 执行一轮清扫。
func (h *RoomSweepHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	swept, err := h.roomSvc.SweepEmptyRooms(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Room sweep failed")
		return err
	}
	logrus.WithField("swept", swept).Debug("Room sweep finished")
	return nil
}
