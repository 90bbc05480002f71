package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/service"
)

// MeetingHandler 封装会议元数据的 HTTP 处理逻辑。
type MeetingHandler struct {
	meetingService *service.MeetingService
	canvasService  *service.CanvasService
}

// NewMeetingHandler 创建 MeetingHandler 实例。
func NewMeetingHandler(meetingService *service.MeetingService, canvasService *service.CanvasService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService, canvasService: canvasService}
}

// CreateMeetingRequest 定义创建会议请求的结构体。
type CreateMeetingRequest struct {
	Title string `json:"title" binding:"max=200"`
}

// requireUserID 从认证中间件注入的上下文取出用户 ID。
func requireUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		logrus.Warn("Handler: user_id missing from authenticated context")
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}

// Create 处理创建会议请求。
func (h *MeetingHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	meeting, err := h.meetingService.Create(c.Request.Context(), userID, req.Title)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, meeting)
}

// List 列出当前用户创建的会议。
func (h *MeetingHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	meetings, err := h.meetingService.ListByCreator(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"meetings": meetings})
}

// Get 返回单个会议的元数据和当前画布快照。
func (h *MeetingHandler) Get(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	meetingID := c.Param("id")

	meeting, err := h.meetingService.Get(c.Request.Context(), meetingID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	snapshot, err := h.canvasService.Snapshot(c.Request.Context(), meetingID)
	if err != nil {
		// 快照读取失败不影响元数据返回
		logrus.WithError(err).WithField("meeting_id", meetingID).Warn("Failed to load canvas snapshot for meeting detail")
		snapshot = nil
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"id":         meeting.ID,
		"title":      meeting.Title,
		"creatorId":  meeting.CreatorID,
		"createdAt":  meeting.CreatedAt,
		"updatedAt":  meeting.UpdatedAt,
		"canvasData": snapshot,
	})
}

// Delete 删除会议，仅允许创建者操作。
func (h *MeetingHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	meetingID := c.Param("id")

	if err := h.meetingService.Delete(c.Request.Context(), meetingID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Meeting deleted"})
}
