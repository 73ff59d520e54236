package domain

// FlowBehavior 是行为链中的一步：某个触发对象引发某个目标对象的动作。
// wire 上行为链是递归链表结构，入站时立即摊平成这种带下标的记录，
// 链的身份由 ChainOwner (首节点的触发对象 ID) 标识，Index 从 0 连续递增。
type FlowBehavior struct {
	ChainOwner string `gorm:"primaryKey;size:191" json:"ChainOwner"`
	Index      int    `gorm:"primaryKey;column:chain_index" json:"Index"` // index 是 MySQL 保留字，列名换用 chain_index
	ID         string `gorm:"size:191" json:"Id"`
	Name       string `gorm:"size:191" json:"Name"`
	Trigger    string `gorm:"size:191" json:"Trigger"` // 触发对象 ID
	Target     string `gorm:"size:191" json:"Target"`  // 目标对象 ID
	ProjectID  string `gorm:"index;size:191" json:"-"`
}
