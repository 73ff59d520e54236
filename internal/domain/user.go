// Package domain 定义了应用程序中使用的数据结构 (数据库模型和内存模型)。
package domain

import "time"

// User 表示一个已注册的账户。
// Password 存储 bcrypt 哈希，核心逻辑把它当作不透明凭证。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Username  string    `gorm:"uniqueIndex;size:191;not null" json:"Username"` // 用户名，唯一且非空
	Password  string    `gorm:"type:text;not null" json:"-"`                   // bcrypt 哈希，绝不下发给客户端
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}
