// Package room 持有每个打开项目的权威内存状态：成员、对象表 (含独占锁)、
// 行为表和播放模式标志。所有共享场景状态的变更都经由这里仲裁。
package room

import (
	"sync"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// Room 是一个项目在有活动期间的内存镜像，也是加锁和广播的范围单位。
// 每个房间一把互斥锁，房间内所有状态变更串行执行 (见 Manager 的说明)。
type Room struct {
	id string

	mu        sync.Mutex
	members   map[string]map[string]bool      // username -> set of client ids
	objects   map[string]*domain.FlowObject   // object id -> object
	behaviors map[string][]domain.FlowBehavior // chain owner id -> ordered steps
	playMode  bool
}

func newRoom(id string) *Room {
	return &Room{
		id:        id,
		members:   make(map[string]map[string]bool),
		objects:   make(map[string]*domain.FlowObject),
		behaviors: make(map[string][]domain.FlowBehavior),
	}
}

// ID 返回房间 ID (即项目 ID)。
func (r *Room) ID() string { return r.id }

// Join 把一个 (用户, 客户端) 对加入成员表。重复加入是幂等的。
func (r *Room) Join(user, client string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[user]; !ok {
		r.members[user] = make(map[string]bool)
	}
	r.members[user][client] = true
}

// Leave 把一个 (用户, 客户端) 对移出成员表。
// 用户的最后一个客户端离开后不再保留空集合。
func (r *Room) Leave(user, client string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if clients, ok := r.members[user]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(r.members, user)
		}
	}
}

// HasClient 报告某个 (用户, 客户端) 对当前是否在房间里。
func (r *Room) HasClient(user, client string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[user][client]
}

// Clients 返回成员表的快照：用户名到其客户端 ID 列表的映射。
// 每一次"通知谁"的决定都以此为准。
func (r *Room) Clients() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.members))
	for user, clients := range r.members {
		ids := make([]string, 0, len(clients))
		for id := range clients {
			ids = append(ids, id)
		}
		out[user] = ids
	}
	return out
}

// ClientIDs 返回房间里所有客户端 ID 的扁平列表。
func (r *Room) ClientIDs() []string {
	var ids []string
	for _, clients := range r.Clients() {
		ids = append(ids, clients...)
	}
	return ids
}

// AddObject 把对象插入对象表，初始为未锁定状态。
func (r *Room) AddObject(obj *domain.FlowObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj.Locked = false
	obj.LockHolder = ""
	r.objects[obj.ID] = obj
}

// CheckoutObject 尝试把对象锁授予 client。
// 只有对象存在且当前未被任何客户端锁定时才成功。
func (r *Room) CheckoutObject(objectID, client string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[objectID]
	if !ok {
		return ErrObjectNotFound
	}
	if obj.Locked {
		return ErrLockConflict
	}
	obj.Locked = true
	obj.LockHolder = client
	return nil
}

// CheckinObject 释放对象锁。只有当前持锁客户端本人可以释放，
// 防止一个客户端解掉别人的锁。
func (r *Room) CheckinObject(objectID, client string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[objectID]
	if !ok {
		return ErrObjectNotFound
	}
	if !obj.Locked || obj.LockHolder != client {
		return ErrLockConflict
	}
	obj.Locked = false
	obj.LockHolder = ""
	return nil
}

// UpdateObject 应用新的变换/几何字段。调用方必须持有对象锁；
// 对象首次出现时允许直接写入 (创建即首个更新的场景)。
// 返回更新后的对象快照。
func (r *Room) UpdateObject(in *domain.FlowObject, client string) (*domain.FlowObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[in.ID]
	if !ok {
		created := *in
		created.Locked = false
		created.LockHolder = ""
		r.objects[in.ID] = &created
		snapshot := created
		return &snapshot, nil
	}
	if !obj.Locked || obj.LockHolder != client {
		return nil, ErrLockConflict
	}
	obj.ApplyUpdate(in)
	snapshot := *obj
	return &snapshot, nil
}

// DeleteObject 把对象移出对象表。
// 锁归属目前不做校验，与既有客户端行为保持兼容。
func (r *Room) DeleteObject(objectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[objectID]; !ok {
		return ErrObjectNotFound
	}
	delete(r.objects, objectID)
	return nil
}

// ReadObject 返回对象的当前快照。
func (r *Room) ReadObject(objectID string) (*domain.FlowObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[objectID]
	if !ok {
		return nil, ErrObjectNotFound
	}
	snapshot := *obj
	return &snapshot, nil
}

// Objects 返回对象表里所有对象的快照列表。
func (r *Room) Objects() []domain.FlowObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.FlowObject, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, *obj)
	}
	return out
}

// ReleaseLocksHeldBy 释放 client 在本房间持有的全部对象锁，
// 返回被释放的对象 ID 列表。用于连接丢失后的隐式登出。
func (r *Room) ReleaseLocksHeldBy(client string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released []string
	for id, obj := range r.objects {
		if obj.Locked && obj.LockHolder == client {
			obj.Locked = false
			obj.LockHolder = ""
			released = append(released, id)
		}
	}
	return released
}

// AddBehavior 按链 owner 存入一条有序行为链，覆盖同 owner 的旧链。
func (r *Room) AddBehavior(owner string, chain []domain.FlowBehavior) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.behaviors[owner] = chain
}

// DeleteBehavior 删除 owner 名下的行为链。
func (r *Room) DeleteBehavior(owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.behaviors[owner]; !ok {
		return ErrBehaviorNotFound
	}
	delete(r.behaviors, owner)
	return nil
}

// GetBehavior 返回 owner 名下行为链的快照。
func (r *Room) GetBehavior(owner string) ([]domain.FlowBehavior, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.behaviors[owner]
	if !ok {
		return nil, ErrBehaviorNotFound
	}
	out := make([]domain.FlowBehavior, len(chain))
	copy(out, chain)
	return out, nil
}

// Behaviors 返回行为表的快照。
func (r *Room) Behaviors() map[string][]domain.FlowBehavior {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]domain.FlowBehavior, len(r.behaviors))
	for owner, chain := range r.behaviors {
		c := make([]domain.FlowBehavior, len(chain))
		copy(c, chain)
		out[owner] = c
	}
	return out
}

// TurnOnPlayMode 打开播放模式。返回这次调用是否真的改变了状态
// (已处于播放中则是 no-op，返回 false)。
func (r *Room) TurnOnPlayMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playMode {
		return false
	}
	r.playMode = true
	return true
}

// TurnOffPlayMode 关闭播放模式，返回语义同 TurnOnPlayMode。
func (r *Room) TurnOffPlayMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playMode {
		return false
	}
	r.playMode = false
	return true
}

// PlayMode 返回播放模式标志的当前值。
func (r *Room) PlayMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playMode
}
