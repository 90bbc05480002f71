package repository

import (
	"context"
	"encoding/json"
)

// CanvasRepository 定义了画布快照的持久化操作，按会议 ID 定位。
// 快照整体覆盖写入，核心不保留历史版本。
type CanvasRepository interface {
	// GetSnapshot 读取指定会议的最新画布快照。
	// 会议不存在时返回 ErrMeetingNotFound；会议存在但还没有快照时返回 nil, nil。
	GetSnapshot(ctx context.Context, meetingID string) (json.RawMessage, error)

	// SaveSnapshot 用新快照整体覆盖旧快照。
	SaveSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error
}

// CanvasCache 是画布快照的旁路缓存，加速加入房间时的初始推送。
// 缓存失效只影响延迟，不影响正确性。
type CanvasCache interface {
	// GetSnapshot 读取缓存的快照，未命中时返回 ErrNotFound。
	GetSnapshot(ctx context.Context, meetingID string) (json.RawMessage, error)

	// SetSnapshot 写入缓存。
	SetSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error

	// Invalidate 删除缓存条目。
	Invalidate(ctx context.Context, meetingID string) error
}
