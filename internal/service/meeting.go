package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/domain"
	"hiveboard/internal/repository"
)

// MeetingService 负责会议元数据的增删查。
type MeetingService struct {
	meetingRepo repository.MeetingRepository
	canvasCache repository.CanvasCache
}

// NewMeetingService 创建 MeetingService 实例。
func NewMeetingService(meetingRepo repository.MeetingRepository, canvasCache repository.CanvasCache) *MeetingService {
	if meetingRepo == nil {
		panic("MeetingRepository cannot be nil for MeetingService")
	}
	if canvasCache == nil {
		panic("CanvasCache cannot be nil for MeetingService")
	}
	return &MeetingService{meetingRepo: meetingRepo, canvasCache: canvasCache}
}

// Create 创建一个新会议，创建者即会议所有者。
func (s *MeetingService) Create(ctx context.Context, creatorID, title string) (*domain.Meeting, error) {
	logCtx := logrus.WithField("creator_id", creatorID)

	if title == "" {
		title = "Untitled meeting"
	}
	meeting := &domain.Meeting{
		ID:        uuid.NewString(),
		Title:     title,
		CreatorID: creatorID,
	}

	if err := s.meetingRepo.Save(ctx, meeting); err != nil {
		logCtx.WithError(err).Error("Failed to save new meeting")
		return nil, ErrInternalServer
	}

	logCtx.WithField("meeting_id", meeting.ID).Info("Meeting created")
	return meeting, nil
}

// Get 查找指定会议。
func (s *MeetingService) Get(ctx context.Context, id string) (*domain.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, ErrMeetingNotFound
		}
		logrus.WithError(err).WithField("meeting_id", id).Error("Failed to find meeting")
		return nil, ErrInternalServer
	}
	return meeting, nil
}

// ListByCreator 列出某个用户创建的所有会议（不含画布数据）。
func (s *MeetingService) ListByCreator(ctx context.Context, creatorID string) ([]domain.Meeting, error) {
	meetings, err := s.meetingRepo.FindByCreator(ctx, creatorID)
	if err != nil {
		logrus.WithError(err).WithField("creator_id", creatorID).Error("Failed to list meetings")
		return nil, ErrInternalServer
	}
	return meetings, nil
}

// Delete 删除会议，仅允许会议创建者操作，同时作废画布缓存。
func (s *MeetingService) Delete(ctx context.Context, id, requesterID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"meeting_id": id, "requester_id": requesterID})

	meeting, err := s.meetingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return ErrMeetingNotFound
		}
		logCtx.WithError(err).Error("Failed to find meeting for deletion")
		return ErrInternalServer
	}
	if meeting.CreatorID != requesterID {
		logCtx.Warn("Meeting deletion denied: requester is not the owner")
		return ErrNotMeetingOwner
	}

	if err := s.meetingRepo.Delete(ctx, id); err != nil {
		logCtx.WithError(err).Error("Failed to delete meeting")
		return ErrInternalServer
	}
	if err := s.canvasCache.Invalidate(ctx, id); err != nil {
		logCtx.WithError(err).Warn("Failed to invalidate canvas cache for deleted meeting")
	}

	logCtx.Info("Meeting deleted")
	return nil
}
