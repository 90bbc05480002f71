package domain

import "time"

// Role 是参与者在房间内的角色。
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

// ResolveRole 按固定规则计算参与者角色：
// 房主身份永远压过客户端请求的角色；owner 角色不能通过请求获得。
// 请求 editor/viewer 时照准；未请求时访客默认 guest，注册用户默认 viewer。
func ResolveRole(actor Actor, requested Role, ownerID string) Role {
	if actor.IsOwnerOf(ownerID) {
		return RoleOwner
	}
	switch requested {
	case RoleEditor, RoleViewer:
		return requested
	}
	if actor.Kind == ActorGuest {
		return RoleGuest
	}
	return RoleViewer
}

// Connection 是一条活跃的传输连接，生命周期等于一次 WebSocket 会话。
// 只存在于房间记录中，随房间一起持久化，不单独落库。
type Connection struct {
	SocketID string `json:"socketId"`
	Actor    Actor  `json:"actor"`
	Name     string `json:"name"`
}

// Participant 是房间内按身份去重后的逻辑成员。
// 同一个 Actor 的多条连接（多标签页）只对应一条 Participant 记录。
type Participant struct {
	Actor    Actor     `json:"actor"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ParticipantInfo 是对外广播的参与者条目（room-joined / user-joined 等事件的
// participants 数组元素）。userId 和 guestId 互斥。
type ParticipantInfo struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId,omitempty"`
	GuestID  string `json:"guestId,omitempty"`
	Name     string `json:"name"`
	IsOwner  bool   `json:"isOwner"`
}

// Room 是一次协作会话的记录，按 RoomID 查找。
// 不变量：ActiveConnections 中的每条连接在 Participants 中都有同身份的条目。
type Room struct {
	RoomID    string    `json:"roomId"`
	MeetingID string    `json:"meetingId,omitempty"`
	Owner     string    `json:"owner,omitempty"` // 会议创建者的用户 ID，空串表示无主房间
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ActiveConnections []Connection  `json:"activeConnections"`
	Participants      []Participant `json:"participants"`
}

// NewRoom 创建一个空房间记录。
func NewRoom(roomID, meetingID, owner string) *Room {
	now := time.Now().UTC()
	return &Room{
		RoomID:    roomID,
		MeetingID: meetingID,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddConnection 注册一条连接。幂等：同一 SocketID 重复加入只更新原条目，
// 不会产生重复记录。
func (r *Room) AddConnection(conn Connection) {
	for i := range r.ActiveConnections {
		if r.ActiveConnections[i].SocketID == conn.SocketID {
			r.ActiveConnections[i] = conn
			r.UpdatedAt = time.Now().UTC()
			return
		}
	}
	r.ActiveConnections = append(r.ActiveConnections, conn)
	r.UpdatedAt = time.Now().UTC()
}

// RemoveConnection 移除一条连接，返回是否真的移除了。
// 对不存在的 SocketID 是 no-op（leave 和 disconnect 可能竞争，移除必须幂等）。
func (r *Room) RemoveConnection(socketID string) bool {
	for i := range r.ActiveConnections {
		if r.ActiveConnections[i].SocketID == socketID {
			r.ActiveConnections = append(r.ActiveConnections[:i], r.ActiveConnections[i+1:]...)
			r.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// AddParticipant 按身份键 upsert 参与者。已存在时只刷新名字和角色，
// 不会按 Actor 产生重复条目；角色每次都重新计算，不沿用旧会话的结果。
func (r *Room) AddParticipant(actor Actor, name string, role Role) {
	key := actor.Key()
	for i := range r.Participants {
		if r.Participants[i].Actor.Key() == key {
			r.Participants[i].Name = name
			r.Participants[i].Role = role
			r.UpdatedAt = time.Now().UTC()
			return
		}
	}
	r.Participants = append(r.Participants, Participant{
		Actor:    actor,
		Name:     name,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	r.UpdatedAt = time.Now().UTC()
}

// PruneParticipants 删除已经没有任何活跃连接的参与者记录，
// 防止房间记录累积无限的历史成员。
func (r *Room) PruneParticipants() {
	live := make(map[string]bool, len(r.ActiveConnections))
	for _, conn := range r.ActiveConnections {
		live[conn.Actor.Key()] = true
	}
	kept := r.Participants[:0]
	for _, p := range r.Participants {
		if live[p.Actor.Key()] {
			kept = append(kept, p)
		}
	}
	r.Participants = kept
}

// HasConnection 报告指定 SocketID 是否在房间中。
func (r *Room) HasConnection(socketID string) bool {
	for _, conn := range r.ActiveConnections {
		if conn.SocketID == socketID {
			return true
		}
	}
	return false
}

// Empty 报告房间是否没有任何活跃连接（回收候选）。
func (r *Room) Empty() bool {
	return len(r.ActiveConnections) == 0
}

// ActiveRoster 返回对外可见的参与者列表。
// 始终从 ActiveConnections 推导：按加入顺序遍历连接，每个身份只取第一条，
// 因此已离开的成员即使 Participants 里还留有记录也不会出现在列表里。
// 这是名册一致性的唯一实现点，处理器不要自行过滤。
func (r *Room) ActiveRoster() []ParticipantInfo {
	roster := make([]ParticipantInfo, 0, len(r.ActiveConnections))
	seen := make(map[string]bool, len(r.ActiveConnections))
	for _, conn := range r.ActiveConnections {
		key := conn.Actor.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		roster = append(roster, ParticipantInfo{
			SocketID: conn.SocketID,
			UserID:   conn.Actor.UserID(),
			GuestID:  conn.Actor.GuestID(),
			Name:     conn.Name,
			IsOwner:  conn.Actor.IsOwnerOf(r.Owner),
		})
	}
	return roster
}
