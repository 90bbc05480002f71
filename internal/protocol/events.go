// Package protocol 定义 WebSocket 事件的信封和载荷结构。
// 线上格式：{"event": "<名称>", "data": {...}}。
package protocol

import (
	"encoding/json"
	"fmt"

	"hiveboard/internal/domain"
)

// 客户端 → 服务端事件
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventGetParticipants = "get-participants"
	EventCanvasUpdate    = "canvas-update"
	EventCursorMove      = "cursor-move"
)

// 服务端 → 客户端事件
const (
	EventRoomJoined       = "room-joined"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventParticipantsList = "participants-list"
	EventCanvasUpdated    = "canvas-updated"
	EventCursorMoved      = "cursor-moved"
	EventCanvasState      = "canvas-state"
	EventError            = "error"
)

// Envelope 是所有事件的外层信封。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode 解析一条原始消息的信封。
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("event envelope missing event name")
	}
	return &env, nil
}

// Encode 把事件和载荷打包成一条可下发的消息。
func Encode(event string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}

// --- 入站载荷 ---

// JoinRoomPayload 对应 join-room 事件。
// userId 优先于 guestId；两者都缺失是非法请求。
type JoinRoomPayload struct {
	RoomID    string `json:"roomId"`
	MeetingID string `json:"meetingId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	GuestID   string `json:"guestId,omitempty"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
}

// CanvasUpdatePayload 对应 canvas-update 事件。
type CanvasUpdatePayload struct {
	MeetingID  string          `json:"meetingId,omitempty"`
	CanvasData json.RawMessage `json:"canvasData,omitempty"`
}

// CursorPosition 是光标坐标。
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CursorMovePayload 对应 cursor-move 事件。
type CursorMovePayload struct {
	Position CursorPosition `json:"position"`
}

// --- 出站载荷 ---

// RoomJoinedPayload 对应 room-joined 事件（仅发给发起者）。
type RoomJoinedPayload struct {
	RoomID       string                   `json:"roomId"`
	Participants []domain.ParticipantInfo `json:"participants"`
	Role         domain.Role              `json:"role"`
}

// UserJoinedPayload 对应 user-joined 事件（发给房间内其他人）。
type UserJoinedPayload struct {
	SocketID     string                   `json:"socketId"`
	UserID       string                   `json:"userId,omitempty"`
	GuestID      string                   `json:"guestId,omitempty"`
	Name         string                   `json:"name"`
	Participants []domain.ParticipantInfo `json:"participants"`
}

// UserLeftPayload 对应 user-left 事件。
type UserLeftPayload struct {
	SocketID     string                   `json:"socketId"`
	Participants []domain.ParticipantInfo `json:"participants"`
}

// CanvasUpdatedPayload 对应 canvas-updated 事件。
// Data 是发送方 canvas-update 的完整入站载荷（meetingId + canvasData），原样转发。
type CanvasUpdatedPayload struct {
	UserID  string          `json:"userId,omitempty"`
	GuestID string          `json:"guestId,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// CursorMovedPayload 对应 cursor-moved 事件。
type CursorMovedPayload struct {
	SocketID string         `json:"socketId"`
	UserID   string         `json:"userId,omitempty"`
	GuestID  string         `json:"guestId,omitempty"`
	Position CursorPosition `json:"position"`
}

// CanvasStatePayload 对应 canvas-state 事件，加入房间后补发当前画布。
type CanvasStatePayload struct {
	MeetingID string          `json:"meetingId"`
	Data      json.RawMessage `json:"data"`
}

// ErrorPayload 对应 error 事件（仅发给发起者）。
type ErrorPayload struct {
	Message string `json:"message"`
}
