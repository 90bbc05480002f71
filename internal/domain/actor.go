package domain

// ActorKind 区分两种身份来源：注册用户和匿名访客。
// 二者互斥，一个连接只能以其中一种身份加入房间。
type ActorKind string

const (
	ActorUser  ActorKind = "user"
	ActorGuest ActorKind = "guest"
)

// Actor 是一个连接解析后的身份。
// 使用封闭的标签类型而不是两个可空的字符串字段，
// 避免处理器里到处出现 "userId 可能为空" 的字符串比较。
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id"`
}

// UserActor 构造一个注册用户身份。
func UserActor(id string) Actor {
	return Actor{Kind: ActorUser, ID: id}
}

// GuestActor 构造一个访客身份。
func GuestActor(id string) Actor {
	return Actor{Kind: ActorGuest, ID: id}
}

// IsZero 报告该 Actor 是否未被解析（没有任何身份）。
func (a Actor) IsZero() bool {
	return a.ID == ""
}

// Key 返回参与者去重使用的键。
// 同一个用户开多个标签页时 Key 相同，参与者列表只保留一条记录。
func (a Actor) Key() string {
	return string(a.Kind) + ":" + a.ID
}

// UserID 返回用户 ID；访客身份时返回空串。
// 用于构造对外的事件负载（userId/guestId 二选一）。
func (a Actor) UserID() string {
	if a.Kind == ActorUser {
		return a.ID
	}
	return ""
}

// GuestID 返回访客 ID；注册用户身份时返回空串。
func (a Actor) GuestID() string {
	if a.Kind == ActorGuest {
		return a.ID
	}
	return ""
}

// IsOwnerOf 判断该身份是否为房主。
// ownerID 为空表示房间无主（房间创建时会议已不存在的遗留情况），
// 此时任何人都不会获得 owner 角色。
func (a Actor) IsOwnerOf(ownerID string) bool {
	return ownerID != "" && a.Kind == ActorUser && a.ID == ownerID
}
