package room

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// LobbyID 是大堂房间的 ID：已登录但不在任何项目里的客户端停靠在这里。
const LobbyID = "noRoom"

// Manager 拥有全部打开的房间。房间表本身由一把读写锁保护；
// 单个房间内的状态变更由房间自己的互斥锁串行化。
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewManager 创建一个空的房间管理器。
func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*Room)}
}

// CreateRoom 为 projectID 创建一个空房间。已存在时是幂等 no-op。
func (m *Manager) CreateRoom(projectID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[projectID]; ok {
		return r
	}
	r := newRoom(projectID)
	m.rooms[projectID] = r
	logrus.WithFields(logrus.Fields{"component": "room_manager", "room_id": projectID}).Info("Room created")
	return r
}

// FindRoom 返回 projectID 对应的房间，不存在时第二个返回值为 false。
// 其余所有操作都以它作为前置检查。
func (m *Manager) FindRoom(projectID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[projectID]
	return r, ok
}

// DestroyRoom 移除房间并返回移除时还在房间里的客户端 ID 列表。
// 不校验房间为空：调用方负责核对这些客户端的会话状态，
// 否则会发生成员静默丢失 (既有行为，兼容保留)。
func (m *Manager) DestroyRoom(projectID string) ([]string, error) {
	m.mu.Lock()
	r, ok := m.rooms[projectID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	delete(m.rooms, projectID)
	m.mu.Unlock()

	orphans := r.ClientIDs()
	if len(orphans) > 0 {
		logrus.WithFields(logrus.Fields{
			"component":    "room_manager",
			"room_id":      projectID,
			"orphan_count": len(orphans),
		}).Warn("Room destroyed while clients were still members")
	}
	return orphans, nil
}

// JoinRoom 把 (用户, 客户端) 对加入房间，房间不存在时隐式创建。
// 多处调用点依赖这个幂等副作用，所以它不是一个单独的显式步骤。
func (m *Manager) JoinRoom(roomID, user, client string) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		m.rooms[roomID] = r
	}
	m.mu.Unlock()
	r.Join(user, client)
}

// LeaveRoom 把 (用户, 客户端) 对移出房间。房间不存在时是 no-op。
func (m *Manager) LeaveRoom(roomID, user, client string) {
	if r, ok := m.FindRoom(roomID); ok {
		r.Leave(user, client)
	}
}

// GetClients 返回房间成员表的快照。房间不存在时返回空映射，
// 让调用方的"通知谁"计算自然得到空集。
func (m *Manager) GetClients(roomID string) map[string][]string {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return map[string][]string{}
	}
	return r.Clients()
}

// AddObject 把对象插入房间的对象表，未锁定。
func (m *Manager) AddObject(obj *domain.FlowObject, roomID string) error {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	obj.ProjectID = roomID
	r.AddObject(obj)
	return nil
}

// CheckoutObject 尝试为 client 取得对象的独占编辑锁。
func (m *Manager) CheckoutObject(roomID, objectID, client string) error {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.CheckoutObject(objectID, client)
}

// CheckinObject 释放 client 持有的对象锁。
func (m *Manager) CheckinObject(roomID, objectID, client string) error {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.CheckinObject(objectID, client)
}

// UpdateObject 在持锁前提下应用对象更新，返回更新后的快照。
func (m *Manager) UpdateObject(obj *domain.FlowObject, roomID, client string) (*domain.FlowObject, error) {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	obj.ProjectID = roomID
	return r.UpdateObject(obj, client)
}

// DeleteObject 把对象移出房间。
func (m *Manager) DeleteObject(roomID, objectID string) error {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.DeleteObject(objectID)
}

// ReadObject 返回对象的当前快照。
func (m *Manager) ReadObject(roomID, objectID string) (*domain.FlowObject, error) {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.ReadObject(objectID)
}

// AddBehavior 存入 owner 名下的行为链。
func (m *Manager) AddBehavior(roomID, owner string, chain []domain.FlowBehavior) error {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	r.AddBehavior(owner, chain)
	return nil
}

// DeleteBehavior 删除 owner 名下的行为链。
func (m *Manager) DeleteBehavior(roomID, owner string) error {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.DeleteBehavior(owner)
}

// GetBehavior 返回 owner 名下行为链的快照。
func (m *Manager) GetBehavior(roomID, owner string) ([]domain.FlowBehavior, error) {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.GetBehavior(owner)
}

// TurnOnPlayMode 打开房间的播放模式，返回状态是否真的发生了切换。
func (m *Manager) TurnOnPlayMode(roomID string) (bool, error) {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return false, ErrRoomNotFound
	}
	return r.TurnOnPlayMode(), nil
}

// TurnOffPlayMode 关闭房间的播放模式，返回状态是否真的发生了切换。
func (m *Manager) TurnOffPlayMode(roomID string) (bool, error) {
	r, ok := m.FindRoom(roomID)
	if !ok {
		return false, ErrRoomNotFound
	}
	return r.TurnOffPlayMode(), nil
}
