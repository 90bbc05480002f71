// Package hub 维护活跃的 WebSocket 连接并负责事件分发。
package hub

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hiveboard/internal/protocol"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 画布快照可能较大
)

// Hub 维护 socketId → Client 的会话表和 roomId → 成员集合的房间表。
// 只做投递，不碰业务状态；房间成员资格的权威记录在 RoomService 手里。
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Client            // 按 socketId 索引的全部活跃连接
	rooms    map[string]map[string]*Client // roomId → socketId → Client
}

// NewHub 创建 Hub 实例。
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
	}
}

// Register 登记一条新连接。
func (h *Hub) Register(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.mu.Lock()
	h.sessions[client.SocketID()] = client
	h.mu.Unlock()
	logrus.WithField("socket_id", client.SocketID()).Debug("Client registered to hub")
}

// Unregister 注销连接并关闭其发送通道，WritePump 随之退出。
// 对已注销的连接是空操作。
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	socketID := client.SocketID()

	h.mu.Lock()
	if _, ok := h.sessions[socketID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, socketID)
	if roomID := client.RoomID(); roomID != "" {
		h.detachLocked(roomID, socketID)
	}
	h.mu.Unlock()

	client.closeSend()

	logrus.WithField("socket_id", socketID).Debug("Client unregistered from hub")
}

// JoinRoom 把连接挂到房间的分发集合里。
func (h *Hub) JoinRoom(roomID string, client *Client) {
	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[client.SocketID()] = client
	h.mu.Unlock()
}

// LeaveRoom 把连接从房间的分发集合摘下，房间空了就删表项。
func (h *Hub) LeaveRoom(roomID, socketID string) {
	h.mu.Lock()
	h.detachLocked(roomID, socketID)
	h.mu.Unlock()
}

// detachLocked 调用方必须持有 h.mu。
func (h *Hub) detachLocked(roomID, socketID string) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, socketID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// EmitToRoom 向房间内全部连接广播事件，excludeSocketID 非空时跳过该连接。
// 尽力而为：已断开的连接收不到不算错误。
func (h *Hub) EmitToRoom(roomID, event string, payload interface{}, excludeSocketID string) {
	message, err := protocol.Encode(event, payload)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "event": event}).
			Error("Failed to encode broadcast event")
		return
	}

	// 拷贝接收者列表，避免发送时持锁
	h.mu.RLock()
	members := h.rooms[roomID]
	recipients := make([]*Client, 0, len(members))
	for socketID, client := range members {
		if socketID == excludeSocketID {
			continue
		}
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.enqueue(message)
	}
}

// EmitToSocket 向单条连接回发事件。连接不存在时静默丢弃。
func (h *Hub) EmitToSocket(socketID, event string, payload interface{}) {
	message, err := protocol.Encode(event, payload)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"socket_id": socketID, "event": event}).
			Error("Failed to encode direct event")
		return
	}

	h.mu.RLock()
	client, ok := h.sessions[socketID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	client.enqueue(message)
}

// RoomSize 返回房间当前挂着的连接数。
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Shutdown 注销所有连接，用于进程退出时清场。
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, client := range h.sessions {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.Unregister(client)
		client.CloseConn()
	}
	logrus.WithField("count", len(clients)).Info("Hub shut down, all clients disconnected")
}
