package domain

import "time"

// Project 表示一个可协作的 3D 场景项目。
// 项目 ID 由创建命令生成 (uuid)，同时作为房间 ID 使用。
type Project struct {
	ID          string    `gorm:"primaryKey;size:191" json:"Id"`
	Name        string    `gorm:"size:191;not null" json:"ProjectName"`
	Description string    `gorm:"type:text" json:"Description"`
	Owner       string    `gorm:"index;size:191;not null" json:"Owner"` // 拥有者用户名
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}
