package repository

import (
	"context"

	"hiveboard/internal/domain"
)

// MeetingRepository 定义了会议元数据的存储和检索操作。
type MeetingRepository interface {
	// FindByID 根据会议 ID 查找会议。
	// 会议不存在时返回 ErrMeetingNotFound。
	FindByID(ctx context.Context, id string) (*domain.Meeting, error)

	// FindByCreator 列出某个用户创建的全部会议（不含画布数据）。
	FindByCreator(ctx context.Context, creatorID string) ([]domain.Meeting, error)

	// Save 保存会议（基于主键创建或更新）。
	Save(ctx context.Context, meeting *domain.Meeting) error

	// Delete 删除会议。
	Delete(ctx context.Context, id string) error
}
