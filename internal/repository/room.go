package repository

import (
	"context"
	"time"

	"hiveboard/internal/domain"
)

// RoomRepository 定义了房间记录的存储和检索操作。
// 实现必须保证读己之写：Save 返回后，任何 FindByRoomID 都能看到这次写入，
// 事件处理器依赖这一点先持久化再广播。
type RoomRepository interface {
	// FindByRoomID 根据房间 ID 查找房间记录。
	// 房间不存在时返回 ErrRoomNotFound。
	FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error)

	// Save 整体写入房间记录。
	// 空房间（没有活跃连接）写入时带宽限期 TTL，到期自动回收；
	// 非空房间写入会清掉 TTL。
	Save(ctx context.Context, room *domain.Room) error

	// Delete 删除房间记录。对不存在的房间是 no-op。
	Delete(ctx context.Context, roomID string) error

	// ListRoomIDs 枚举当前存在记录的房间 ID，供后台清扫任务使用。
	ListRoomIDs(ctx context.Context) ([]string, error)
}

// EmptyRoomGrace 是空房间记录被回收前的默认宽限期。
// 在宽限期内重连可以拿回原来的房间（包括房主信息）。
const EmptyRoomGrace = 10 * time.Minute
