package gormpersistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hiveboard/internal/domain"
	"hiveboard/internal/repository"
)

// GormCanvasRepository 是 CanvasRepository 接口的 GORM 实现。
// 快照直接存放在 meetings 表的 canvas_data 列上，整体覆盖写入。
type GormCanvasRepository struct {
	db *gorm.DB
}

// NewGormCanvasRepository 创建 GormCanvasRepository 实例
func NewGormCanvasRepository(db *gorm.DB) *GormCanvasRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCanvasRepository")
	}
	return &GormCanvasRepository{db: db}
}

// GetSnapshot 读取指定会议的画布快照
func (r *GormCanvasRepository) GetSnapshot(ctx context.Context, meetingID string) (json.RawMessage, error) {
	var meeting domain.Meeting
	err := r.db.WithContext(ctx).
		Select("id", "canvas_data").
		First(&meeting, "id = ?", meetingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("gorm: get canvas snapshot for meeting %s: %w", meetingID, err)
	}
	return meeting.Snapshot(), nil
}

// SaveSnapshot 整体覆盖指定会议的画布快照
func (r *GormCanvasRepository) SaveSnapshot(ctx context.Context, meetingID string, data json.RawMessage) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ?", meetingID).
		Update("canvas_data", []byte(data))
	if result.Error != nil {
		return fmt.Errorf("gorm: save canvas snapshot for meeting %s: %w", meetingID, result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL 对值未变化的 UPDATE 也报告 0 行，必须再确认会议是否真的不存在
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Meeting{}).Where("id = ?", meetingID).Count(&count).Error; err != nil {
			return fmt.Errorf("gorm: verify meeting %s after snapshot update: %w", meetingID, err)
		}
		if count == 0 {
			return repository.ErrMeetingNotFound
		}
	}
	return nil
}
