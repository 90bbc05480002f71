package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hiveboard/internal/domain"
	"hiveboard/internal/repository"
)

// GormMeetingRepository 是 MeetingRepository 接口的 GORM 实现
type GormMeetingRepository struct {
	db *gorm.DB
}

// NewGormMeetingRepository 创建 GormMeetingRepository 实例
func NewGormMeetingRepository(db *gorm.DB) *GormMeetingRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMeetingRepository")
	}
	return &GormMeetingRepository{db: db}
}

// FindByID 实现根据会议 ID 查找会议
func (r *GormMeetingRepository) FindByID(ctx context.Context, id string) (*domain.Meeting, error) {
	var meeting domain.Meeting
	err := r.db.WithContext(ctx).First(&meeting, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("gorm: find meeting by id %s: %w", id, err)
	}
	return &meeting, nil
}

// FindByCreator 实现列出某个用户创建的会议。
// 画布数据可能很大，列表查询不加载它。
func (r *GormMeetingRepository) FindByCreator(ctx context.Context, creatorID string) ([]domain.Meeting, error) {
	var meetings []domain.Meeting
	err := r.db.WithContext(ctx).
		Select("id", "title", "creator_id", "created_at", "updated_at").
		Where("creator_id = ?", creatorID).
		Order("updated_at DESC").
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find meetings by creator %s: %w", creatorID, err)
	}
	return meetings, nil
}

// Save 实现保存会议（创建或更新）
func (r *GormMeetingRepository) Save(ctx context.Context, meeting *domain.Meeting) error {
	err := r.db.WithContext(ctx).Save(meeting).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save meeting (id: %s): %w", meeting.ID, err)
	}
	return nil
}

// Delete 实现删除会议
func (r *GormMeetingRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Delete(&domain.Meeting{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("gorm: delete meeting %s: %w", id, err)
	}
	return nil
}
