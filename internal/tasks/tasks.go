// Package tasks 定义了持久化边界的后台任务类型和负载。
// 成功的内存变更之后，会话层把对应任务入队，由 worker 异步写穿到存储；
// 失败的写入由队列重试，而不是被静默丢弃。
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// 任务类型常量
const (
	TypeObjectPersist   = "object:persist"
	TypeObjectDelete    = "object:delete"
	TypeBehaviorPersist = "behavior:persist"
	TypeBehaviorDelete  = "behavior:delete"
)

// ObjectPersistPayload 是对象落库任务的数据结构。
type ObjectPersistPayload struct {
	Object domain.FlowObject
}

// ObjectDeletePayload 是对象删除任务的数据结构。
type ObjectDeletePayload struct {
	ObjectID  string
	ProjectID string
}

// BehaviorPersistPayload 是行为链落库任务的数据结构，整条链一起写。
type BehaviorPersistPayload struct {
	ChainOwner string
	Chain      []domain.FlowBehavior
}

// BehaviorDeletePayload 是行为链删除任务的数据结构。
type BehaviorDeletePayload struct {
	ChainOwner string
}

// NewObjectPersistTask 创建一个对象落库任务。
func NewObjectPersistTask(obj domain.FlowObject) (*asynq.Task, error) {
	payload, err := json.Marshal(ObjectPersistPayload{Object: obj})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeObjectPersist, payload), nil
}

// NewObjectDeleteTask 创建一个对象删除任务。
func NewObjectDeleteTask(objectID, projectID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ObjectDeletePayload{ObjectID: objectID, ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeObjectDelete, payload), nil
}

// NewBehaviorPersistTask 创建一个行为链落库任务。
func NewBehaviorPersistTask(owner string, chain []domain.FlowBehavior) (*asynq.Task, error) {
	payload, err := json.Marshal(BehaviorPersistPayload{ChainOwner: owner, Chain: chain})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBehaviorPersist, payload), nil
}

// NewBehaviorDeleteTask 创建一个行为链删除任务。
func NewBehaviorDeleteTask(owner string) (*asynq.Task, error) {
	payload, err := json.Marshal(BehaviorDeletePayload{ChainOwner: owner})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBehaviorDelete, payload), nil
}
