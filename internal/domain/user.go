// Package domain 定义了应用程序中使用的数据结构（领域模型和数据库模型）。
package domain

import "time"

// User 表示一个注册用户。
// 主键使用 UUID 字符串，和会话层里由调用方提供的 userId 保持同一个命名空间
// （访客 ID 也是 UUID，但只存在于连接的生命周期内，不落库）。
type User struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"type:varchar(191);not null"`
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null"`
	Password  string    `gorm:"type:text;not null"` // 存储的是 bcrypt 哈希，不能为空
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
