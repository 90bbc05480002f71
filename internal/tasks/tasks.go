// Package tasks 定义 asynq 任务类型及其构造函数。
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量
const (
	TypeCanvasPersist = "canvas:persist" // 画布快照落库
	TypeRoomSweep     = "room:sweep"     // 清扫过期空房间
)

// 队列名称，worker 按权重消费
const (
	QueueCanvas  = "canvas"
	QueueCleanup = "cleanup"
)

// CanvasPersistPayload 是画布持久化任务的数据结构。
type CanvasPersistPayload struct {
	MeetingID string          `json:"meetingId"`
	Data      json.RawMessage `json:"data"`
}

// NewCanvasPersistTask 创建一个画布快照持久化任务。
func NewCanvasPersistTask(meetingID string, data json.RawMessage) (*asynq.Task, error) {
	if meetingID == "" {
		return nil, fmt.Errorf("meeting id is required for canvas persist task")
	}
	payload, err := json.Marshal(CanvasPersistPayload{MeetingID: meetingID, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canvas persist payload: %w", err)
	}
	return asynq.NewTask(TypeCanvasPersist, payload), nil
}

// NewRoomSweepTask 创建一个房间清扫任务，由调度器周期性投递，无载荷。
func NewRoomSweepTask() *asynq.Task {
	return asynq.NewTask(TypeRoomSweep, nil)
}
