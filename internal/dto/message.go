// Package dto 定义了 WebSocket 通道上进出消息的数据结构。
package dto

import "github.com/yashBhosale/reality-flow/internal/domain"

// Envelope 是一条出站消息的内容。
// 每条出站消息至少携带 MessageType 和 WasSuccessful 两个字段，
// 其余字段随命令不同而不同，所以用 map 表达。
type Envelope map[string]interface{}

// Outbound 把一条出站消息和它的接收者列表绑在一起。
// Clients 是连接 ID 列表，由 Hub 负责逐个投递。
type Outbound struct {
	Content Envelope
	Clients []string
}

// CommandEnvelope 是入站消息的最外层：只为取出命令名。
// 各命令的 payload 由对应的 handler 自行反序列化。
type CommandEnvelope struct {
	Command string `json:"command"`
}

// FlowUser 是用户类命令携带的凭证负载。
type FlowUser struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

// BehaviorNode 是行为链的递归 wire 形式：每个节点通过 FlowBehaviour
// 内嵌下一个节点。核心内部从不操作这种形式，入站后立即摊平。
type BehaviorNode struct {
	ID              string        `json:"Id"`
	Name            string        `json:"Name"`
	TriggerObjectID string        `json:"TriggerObjectID"`
	TargetObjectID  string        `json:"TargetObjectID"`
	FlowBehaviour   *BehaviorNode `json:"FlowBehaviour"`
}

// ProjectPayload 是项目类命令的负载。
type ProjectPayload struct {
	FlowProject domain.Project `json:"FlowProject"`
	FlowUser    FlowUser       `json:"FlowUser"`
	ProjectID   string         `json:"ProjectId"`
}

// UserPayload 是用户类命令的负载。
type UserPayload struct {
	FlowUser FlowUser `json:"FlowUser"`
	// DeleteUser 历史上把凭证放在顶层而不是 FlowUser 里
	Username string `json:"Username"`
	Password string `json:"Password"`
}

// RoomPayload 是房间类命令的负载。
type RoomPayload struct {
	ProjectID string   `json:"ProjectId"`
	FlowUser  FlowUser `json:"FlowUser"`
}

// ObjectPayload 是对象类命令的负载。
type ObjectPayload struct {
	FlowObject domain.FlowObject `json:"FlowObject"`
	ProjectID  string            `json:"ProjectId"`
	ObjectID   string            `json:"ObjectId"`
}

// BehaviorPayload 是行为类命令的负载。
type BehaviorPayload struct {
	FlowBehaviour *BehaviorNode `json:"FlowBehaviour"`
	ProjectID     string        `json:"ProjectId"`
}

// PlayModePayload 是播放模式命令的负载。
type PlayModePayload struct {
	ProjectID string `json:"ProjectId"`
}
