package domain

import (
	"encoding/json"
	"time"
)

// Meeting 表示一次已保存的会议（画板文档）。
// 房间在创建时通过 MeetingID 关联到会议，会议创建者即房主。
type Meeting struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Title      string    `gorm:"type:varchar(191);not null"`
	CreatorID  string    `gorm:"size:36;index:idx_meeting_creator;not null"`
	CanvasData []byte    `gorm:"type:longblob"` // 最新画布快照，JSON，整体覆盖写入
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Snapshot 返回画布快照；没有快照时返回 nil。
// 快照对服务端是不透明的 JSON（笔画列表加元数据），
// 服务端只做整体覆盖，不做合并，撤销等是客户端本地的事。
func (m *Meeting) Snapshot() json.RawMessage {
	if len(m.CanvasData) == 0 {
		return nil
	}
	return json.RawMessage(m.CanvasData)
}
