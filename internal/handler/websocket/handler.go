// Package websocket 处理 WebSocket 升级和房间事件的分发。
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/domain"
	"hiveboard/internal/hub"
	"hiveboard/internal/protocol"
	"hiveboard/internal/service"
)

// Handler 负责 WebSocket 升级，并作为 hub.Router 实现事件状态机：
// 未加入 → (join-room) → 房间内 → (canvas-update | cursor-move)* →
// (leave-room | 断开) → 未加入。
type Handler struct {
	upgrader  gorillaws.Upgrader
	hub       *hub.Hub
	roomSvc   *service.RoomService
	canvasSvc *service.CanvasService
}

// NewHandler 创建 Handler 实例。
func NewHandler(h *hub.Hub, roomSvc *service.RoomService, canvasSvc *service.CanvasService) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	if roomSvc == nil {
		panic("RoomService cannot be nil for websocket Handler")
	}
	if canvasSvc == nil {
		panic("CanvasService cannot be nil for websocket Handler")
	}

	upgrader := gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &Handler{
		upgrader:  upgrader,
		hub:       h,
		roomSvc:   roomSvc,
		canvasSvc: canvasSvc,
	}
}

// HandleConnection 处理 /ws 升级请求。
// 身份在 join-room 事件里由客户端自报，这里不做认证，访客可直连。
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, h)
	h.hub.Register(client)
	client.Run()

	logrus.WithField("socket_id", client.SocketID()).Info("WebSocket connection established")
}

// Route 分发一条入站事件。在连接的读 goroutine 上同步调用，
// 同一连接的事件严格按到达顺序处理。
func (h *Handler) Route(ctx context.Context, client *hub.Client, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		logrus.WithError(err).WithField("socket_id", client.SocketID()).Warn("Dropping malformed event")
		h.sendError(client, "malformed event")
		return
	}

	switch env.Event {
	case protocol.EventJoinRoom:
		h.handleJoinRoom(ctx, client, env.Data)
	case protocol.EventLeaveRoom:
		h.leaveCurrentRoom(client)
	case protocol.EventGetParticipants:
		h.handleGetParticipants(ctx, client)
	case protocol.EventCanvasUpdate:
		h.handleCanvasUpdate(client, env.Data)
	case protocol.EventCursorMove:
		h.handleCursorMove(client, env.Data)
	default:
		logrus.WithFields(logrus.Fields{"socket_id": client.SocketID(), "event": env.Event}).
			Debug("Ignoring unknown event")
	}
}

// Disconnected 在连接的读 goroutine 退出时调用，等价于一次显式 leave-room。
func (h *Handler) Disconnected(client *hub.Client) {
	h.leaveCurrentRoom(client)
}

// handleJoinRoom 处理 join-room 事件。
// 失败只回 error 事件给发起者，不产生任何状态变更和广播。
func (h *Handler) handleJoinRoom(ctx context.Context, client *hub.Client, data json.RawMessage) {
	var payload protocol.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, "join-room requires a roomId")
		return
	}

	actor, err := service.ResolveActor(payload.UserID, payload.GuestID)
	if err != nil {
		h.sendError(client, "a userId or guestId is required to join a room")
		return
	}

	// 重复 join：先退出当前房间再加入新房间
	if client.RoomID() != "" && client.RoomID() != payload.RoomID {
		h.leaveCurrentRoom(client)
	}

	if payload.Name == "" {
		payload.Name = "Anonymous"
	}
	conn := domain.Connection{
		SocketID: client.SocketID(),
		Actor:    actor,
		Name:     payload.Name,
	}
	result, err := h.roomSvc.Join(ctx, payload.RoomID, payload.MeetingID, conn, domain.Role(payload.Role))
	if err != nil {
		if ctx.Err() != nil {
			// 连接已断开，放弃加入且无需回复
			return
		}
		h.sendError(client, joinErrorMessage(err))
		return
	}

	client.SetSession(payload.RoomID, actor, payload.Name)
	h.hub.JoinRoom(payload.RoomID, client)

	roster := result.Room.ActiveRoster()

	// 1. 回复发起者
	h.hub.EmitToSocket(client.SocketID(), protocol.EventRoomJoined, protocol.RoomJoinedPayload{
		RoomID:       payload.RoomID,
		Participants: roster,
		Role:         result.Role,
	})

	// 2. 通知房间内其他人
	h.hub.EmitToRoom(payload.RoomID, protocol.EventUserJoined, protocol.UserJoinedPayload{
		SocketID:     client.SocketID(),
		UserID:       actor.UserID(),
		GuestID:      actor.GuestID(),
		Name:         payload.Name,
		Participants: roster,
	}, client.SocketID())

	// 3. 异步补发当前画布，晚加入者能看到现有内容
	if result.Room.MeetingID != "" {
		go h.pushCanvasState(client, result.Room.MeetingID)
	}
}

// pushCanvasState 把会议当前的画布快照单发给新加入的连接。
func (h *Handler) pushCanvasState(client *hub.Client, meetingID string) {
	// 快照读取不应被连接断开打断到一半，用独立上下文
	data, err := h.canvasSvc.Snapshot(context.Background(), meetingID)
	if err != nil || data == nil {
		return
	}
	h.hub.EmitToSocket(client.SocketID(), protocol.EventCanvasState, protocol.CanvasStatePayload{
		MeetingID: meetingID,
		Data:      data,
	})
}

// leaveCurrentRoom 把连接从当前房间移除并广播 user-left。
// 显式 leave-room 和传输层断开共用这条路径；未加入时是静默空操作。
func (h *Handler) leaveCurrentRoom(client *hub.Client) {
	roomID, _, _ := client.Session()
	if roomID == "" {
		return
	}

	// 断开触发的 leave 不能用连接自己的上下文（它已被取消），
	// 成员变更必须照常持久化
	result, err := h.roomSvc.Leave(context.Background(), roomID, client.SocketID())

	h.hub.LeaveRoom(roomID, client.SocketID())
	client.ClearSession()

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id":   roomID,
			"socket_id": client.SocketID(),
		}).Error("Failed to remove connection from room")
		// 断开路径上连接已不在，投递是静默空操作
		h.sendError(client, "failed to leave room")
		return
	}
	if !result.Removed {
		return
	}

	h.hub.EmitToRoom(roomID, protocol.EventUserLeft, protocol.UserLeftPayload{
		SocketID:     client.SocketID(),
		Participants: result.Room.ActiveRoster(),
	}, client.SocketID())
}

// handleGetParticipants 只回发起者当前的活跃参与者列表，不广播不落库。
func (h *Handler) handleGetParticipants(ctx context.Context, client *hub.Client) {
	roomID, _, _ := client.Session()
	if roomID == "" {
		// 未加入房间，按约定静默忽略
		return
	}
	roster, err := h.roomSvc.Roster(ctx, roomID)
	if err != nil {
		h.sendError(client, "failed to load participants")
		return
	}
	h.hub.EmitToSocket(client.SocketID(), protocol.EventParticipantsList, roster)
}

// handleCanvasUpdate 处理 canvas-update 事件。
// 先广播再异步落库：快照写入绝不拖慢广播，写失败记日志吞掉。
func (h *Handler) handleCanvasUpdate(client *hub.Client, data json.RawMessage) {
	roomID, actor, _ := client.Session()
	if roomID == "" {
		return
	}

	var payload protocol.CanvasUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, "malformed canvas-update payload")
		return
	}

	// data 原样转发整个入站载荷（含 meetingId），接收端据此定位会议
	h.hub.EmitToRoom(roomID, protocol.EventCanvasUpdated, protocol.CanvasUpdatedPayload{
		UserID:  actor.UserID(),
		GuestID: actor.GuestID(),
		Data:    data,
	}, client.SocketID())

	if payload.MeetingID != "" && len(payload.CanvasData) > 0 {
		h.canvasSvc.EnqueueSave(payload.MeetingID, payload.CanvasData)
	}
}

// handleCursorMove 处理 cursor-move 事件。只广播，从不持久化。
func (h *Handler) handleCursorMove(client *hub.Client, data json.RawMessage) {
	roomID, actor, _ := client.Session()
	if roomID == "" {
		return
	}

	var payload protocol.CursorMovePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	h.hub.EmitToRoom(roomID, protocol.EventCursorMoved, protocol.CursorMovedPayload{
		SocketID: client.SocketID(),
		UserID:   actor.UserID(),
		GuestID:  actor.GuestID(),
		Position: payload.Position,
	}, client.SocketID())
}

// sendError 只向发起者回 error 事件，错误从不广播给房间内其他成员。
func (h *Handler) sendError(client *hub.Client, message string) {
	h.hub.EmitToSocket(client.SocketID(), protocol.EventError, protocol.ErrorPayload{Message: message})
}

// joinErrorMessage 把服务层错误映射为对外的提示文案。
func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrRoomCreationDenied):
		return "room does not exist and no valid meeting was supplied"
	case errors.Is(err, service.ErrInvalidIdentity):
		return "a userId or guestId is required to join a room"
	default:
		return "failed to join room"
	}
}
