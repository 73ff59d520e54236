// Package session 追踪谁登录了、从哪些连接登录、各连接在哪个房间，
// 并把命令编排到房间管理器和持久化边界上。
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/repository"
	"github.com/yashBhosale/reality-flow/internal/room"
	"github.com/yashBhosale/reality-flow/internal/tasks"
)

// Enqueuer 是持久化任务入队的最小能力，由 *asynq.Client 满足。
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RoomBulletin 是一次加入/离开房间产生的次级广播：
// 公告文本和应当收到它的客户端 ID 列表。
type RoomBulletin struct {
	Message string
	Clients []string
}

// ProjectSnapshot 是 ReadProject 的结果：持久化的项目记录，
// 加上房间还开着时的实时对象表和行为表。
type ProjectSnapshot struct {
	Project   domain.Project                   `json:"Project"`
	Objects   []domain.FlowObject              `json:"Objects"`
	Behaviors map[string][]domain.FlowBehavior `json:"Behaviours"`
}

// Tracker 是显式构造的会话服务：空表初始化，依赖全部注入。
// users 表的布局是 username -> (client id -> room id)。
type Tracker struct {
	mu    sync.Mutex
	users map[string]map[string]string

	rooms    *room.Manager
	userRepo repository.UserRepository
	projRepo repository.ProjectRepository
	state    repository.StateRepository
	enqueue  Enqueuer

	log *logrus.Entry
}

// NewTracker 创建会话追踪器。所有依赖都不允许为 nil。
func NewTracker(rooms *room.Manager, userRepo repository.UserRepository, projRepo repository.ProjectRepository, state repository.StateRepository, enqueue Enqueuer) *Tracker {
	if rooms == nil {
		panic("room.Manager cannot be nil for Tracker")
	}
	if userRepo == nil || projRepo == nil {
		panic("repositories cannot be nil for Tracker")
	}
	if state == nil {
		panic("StateRepository cannot be nil for Tracker")
	}
	if enqueue == nil {
		panic("Enqueuer cannot be nil for Tracker")
	}
	return &Tracker{
		users:    make(map[string]map[string]string),
		rooms:    rooms,
		userRepo: userRepo,
		projRepo: projRepo,
		state:    state,
		enqueue:  enqueue,
		log:      logrus.WithField("component", "session_tracker"),
	}
}

// --- 内部辅助 ---

// authenticate 对照存储的 bcrypt 哈希校验凭证。
// 认证不匹配和用户不存在都归入 ErrOperationFailed，不向客户端泄露区别。
func (t *Tracker) authenticate(ctx context.Context, username, password string) error {
	user, err := t.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrOperationFailed
		}
		t.log.WithError(err).WithField("username", username).Error("Authentication lookup failed")
		return ErrOperationFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return ErrOperationFailed
	}
	return nil
}

// loggedIn 报告用户是否在会话表里。
func (t *Tracker) loggedIn(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.users[username]
	return ok
}

// clientsOf 把房间成员表摊平成客户端 ID 列表。
func (t *Tracker) clientsOf(roomID string) []string {
	var out []string
	for _, ids := range t.rooms.GetClients(roomID) {
		out = append(out, ids...)
	}
	return out
}

// mapRoomErr 把房间层错误映射到会话层错误分类。
func mapRoomErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, room.ErrLockConflict):
		return ErrLockConflict
	default:
		return ErrNotFound
	}
}

// enqueuePersist 把一个持久化任务放入队列。入队失败只记录日志：
// 房间内存表是权威数据源，落库由任务队列自己重试。
func (t *Tracker) enqueuePersist(task *asynq.Task, err error) {
	if err != nil {
		t.log.WithError(err).Error("Failed to build persistence task payload")
		return
	}
	if _, err := t.enqueue.Enqueue(task); err != nil {
		t.log.WithError(err).WithField("task_type", task.Type()).Error("Failed to enqueue persistence task")
	}
}

// mirrorJoin / mirrorLeave 维护 Redis 里的名册镜像，失败只记日志。
func (t *Tracker) mirrorJoin(ctx context.Context, roomID, username, client string) {
	if err := t.state.AddClientToRoom(ctx, roomID, username, client); err != nil {
		t.log.WithError(err).WithField("room_id", roomID).Warn("Failed to mirror room join to state store")
	}
}

func (t *Tracker) mirrorLeave(ctx context.Context, roomID, username, client string) {
	if err := t.state.RemoveClientFromRoom(ctx, roomID, username, client); err != nil {
		t.log.WithError(err).WithField("room_id", roomID).Warn("Failed to mirror room leave to state store")
	}
}

// shortClientID 取连接 ID 的前 8 位用于公告文本，
// 以便区分同一用户名下的多个客户端。
func shortClientID(client string) string {
	if len(client) > 8 {
		return client[:8]
	}
	return client
}

// --- 用户命令 ---

// CreateUser 注册一个新账户。凭证哈希对核心不透明，在这里生成后即落库。
func (t *Tracker) CreateUser(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.log.WithError(err).Error("Failed to hash password")
		return ErrOperationFailed
	}
	user := &domain.User{Username: username, Password: string(hash)}
	if err := t.userRepo.Save(ctx, user); err != nil {
		t.log.WithError(err).WithField("username", username).Warn("Failed to create user")
		return ErrOperationFailed
	}
	t.log.WithField("username", username).Info("User created")
	return nil
}

// ReadUser 返回用户记录 (凭证字段已清空)。
func (t *Tracker) ReadUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := t.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrOperationFailed
	}
	user.Password = ""
	return user, nil
}

// LoginUser 认证成功后把客户端登记到用户名下并停入大堂，
// 返回该用户的项目列表。认证失败时不产生任何状态变化。
func (t *Tracker) LoginUser(ctx context.Context, username, password, client string) ([]domain.Project, error) {
	if err := t.authenticate(ctx, username, password); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if _, ok := t.users[username]; !ok {
		t.users[username] = make(map[string]string)
	}
	t.users[username][client] = room.LobbyID
	t.mu.Unlock()

	t.rooms.JoinRoom(room.LobbyID, username, client)
	t.mirrorJoin(ctx, room.LobbyID, username, client)

	projects, err := t.projRepo.FindByOwner(ctx, username)
	if err != nil {
		t.log.WithError(err).WithField("username", username).Warn("Failed to fetch project list on login")
		projects = nil
	}

	t.log.WithFields(logrus.Fields{"username": username, "client_id": shortClientID(client)}).Info("User logged in")
	return projects, nil
}

// LogoutUser 把客户端移出其所在房间并从用户名下注销。
// 该用户的最后一个连接注销后，整个用户从会话表消失。
func (t *Tracker) LogoutUser(ctx context.Context, username, password, client string) error {
	if err := t.authenticate(ctx, username, password); err != nil {
		return err
	}

	t.mu.Lock()
	clients, ok := t.users[username]
	if !ok {
		t.mu.Unlock()
		return ErrNotAuthenticated
	}
	roomID, tracked := clients[client]
	if !tracked {
		t.mu.Unlock()
		return ErrNotAuthenticated
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(t.users, username)
	}
	t.mu.Unlock()

	t.rooms.LeaveRoom(roomID, username, client)
	t.mirrorLeave(ctx, roomID, username, client)

	t.log.WithFields(logrus.Fields{"username": username, "client_id": shortClientID(client)}).Info("User logged out")
	return nil
}

// DeleteUser 强制登出该用户名下的每一个客户端，然后从持久化存储删除用户。
// 会话表手术在一次持锁区间内完成，与同一用户的并发登录互斥。
// 返回被踢出的客户端 ID 列表。
func (t *Tracker) DeleteUser(ctx context.Context, username, password string) ([]string, error) {
	if err := t.authenticate(ctx, username, password); err != nil {
		return nil, err
	}

	t.mu.Lock()
	clients := t.users[username]
	affected := make([]string, 0, len(clients))
	for client, roomID := range clients {
		t.rooms.LeaveRoom(roomID, username, client)
		t.mirrorLeave(ctx, roomID, username, client)
		affected = append(affected, client)
	}
	delete(t.users, username)
	t.mu.Unlock()

	if err := t.userRepo.Delete(ctx, username); err != nil {
		t.log.WithError(err).WithField("username", username).Error("Failed to delete user from store")
		return affected, ErrOperationFailed
	}

	t.log.WithFields(logrus.Fields{"username": username, "kicked_clients": len(affected)}).Info("User deleted")
	return affected, nil
}

// --- 项目命令 ---

// CreateProject 把项目写入持久化存储。要求用户已登录。
func (t *Tracker) CreateProject(ctx context.Context, project *domain.Project, username string) (*domain.Project, error) {
	if !t.loggedIn(username) {
		return nil, ErrNotAuthenticated
	}
	project.Owner = username
	if err := t.projRepo.Save(ctx, project); err != nil {
		t.log.WithError(err).WithField("project_id", project.ID).Error("Failed to save project")
		return nil, ErrOperationFailed
	}
	t.log.WithFields(logrus.Fields{"project_id": project.ID, "owner": username}).Info("Project created")
	return project, nil
}

// ReadProject 返回项目记录，房间还开着时附带实时对象表和行为表。
func (t *Tracker) ReadProject(ctx context.Context, projectID string) (*ProjectSnapshot, error) {
	project, err := t.projRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrOperationFailed
	}
	snapshot := &ProjectSnapshot{Project: *project}
	if r, ok := t.rooms.FindRoom(projectID); ok {
		snapshot.Objects = r.Objects()
		snapshot.Behaviors = r.Behaviors()
	}
	return snapshot, nil
}

// FetchProjects 返回用户名下的全部项目。要求用户已登录。
func (t *Tracker) FetchProjects(ctx context.Context, username string) ([]domain.Project, error) {
	if !t.loggedIn(username) {
		return nil, ErrNotAuthenticated
	}
	projects, err := t.projRepo.FindByOwner(ctx, username)
	if err != nil {
		return nil, ErrOperationFailed
	}
	return projects, nil
}

// OpenProject 查找项目并隐式加入对应房间。
// 返回项目记录和给房间其他成员的加入公告。
func (t *Tracker) OpenProject(ctx context.Context, projectID, username, client string) (*domain.Project, *RoomBulletin, error) {
	if !t.loggedIn(username) {
		return nil, nil, ErrNotAuthenticated
	}
	project, err := t.projRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, ErrOperationFailed
	}
	bulletin, err := t.JoinRoom(ctx, projectID, username, client)
	if err != nil {
		return nil, nil, err
	}
	return project, bulletin, nil
}

// LeaveProject 把客户端移出项目房间、停回大堂，返回离开公告。
func (t *Tracker) LeaveProject(ctx context.Context, projectID, username, client string) (*RoomBulletin, error) {
	if !t.loggedIn(username) {
		return nil, ErrNotAuthenticated
	}
	return t.LeaveRoom(ctx, projectID, username, client)
}

// DeleteProject 销毁房间并从持久化存储删除项目。
// 前置条件是房间已无活跃成员；这里不做强校验 (兼容保留)，
// 但会把被孤立的客户端停回大堂，避免会话表指向已销毁的房间。
func (t *Tracker) DeleteProject(ctx context.Context, projectID, username string) error {
	if !t.loggedIn(username) {
		return ErrNotAuthenticated
	}
	if _, err := t.projRepo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return ErrNotFound
		}
		return ErrOperationFailed
	}

	orphans, err := t.rooms.DestroyRoom(projectID)
	if err == nil && len(orphans) > 0 {
		t.reparkOrphans(ctx, projectID, orphans)
	}
	if err := t.state.CleanupRoomState(ctx, projectID); err != nil {
		t.log.WithError(err).WithField("room_id", projectID).Warn("Failed to clean up room state mirror")
	}

	if err := t.projRepo.Delete(ctx, projectID); err != nil {
		t.log.WithError(err).WithField("project_id", projectID).Error("Failed to delete project from store")
		return ErrOperationFailed
	}
	t.log.WithField("project_id", projectID).Info("Project deleted")
	return nil
}

// reparkOrphans 把房间销毁时仍在场的客户端重新停入大堂。
func (t *Tracker) reparkOrphans(ctx context.Context, roomID string, orphans []string) {
	orphanSet := make(map[string]bool, len(orphans))
	for _, c := range orphans {
		orphanSet[c] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for username, clients := range t.users {
		for client, current := range clients {
			if current == roomID && orphanSet[client] {
				clients[client] = room.LobbyID
				t.rooms.JoinRoom(room.LobbyID, username, client)
				t.mirrorLeave(ctx, roomID, username, client)
				t.log.WithFields(logrus.Fields{
					"username":  username,
					"client_id": shortClientID(client),
					"room_id":   roomID,
				}).Warn("Client reparked to lobby after room destruction")
			}
		}
	}
}

// --- 房间命令 ---

// CreateRoom 为项目创建一个空房间，幂等。
func (t *Tracker) CreateRoom(projectID string) {
	t.rooms.CreateRoom(projectID)
}

// JoinRoom 把客户端从其当前房间移动到目标房间 (不存在则隐式创建)，
// 返回给房间全体成员的加入公告。
func (t *Tracker) JoinRoom(ctx context.Context, roomID, username, client string) (*RoomBulletin, error) {
	t.mu.Lock()
	clients, ok := t.users[username]
	if !ok {
		t.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	oldRoom, tracked := clients[client]
	if !tracked {
		t.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	clients[client] = roomID
	t.mu.Unlock()

	t.rooms.LeaveRoom(oldRoom, username, client)
	t.mirrorLeave(ctx, oldRoom, username, client)
	t.rooms.JoinRoom(roomID, username, client)
	t.mirrorJoin(ctx, roomID, username, client)

	return &RoomBulletin{
		Message: username + "-" + shortClientID(client) + " has joined the room",
		Clients: t.clientsOf(roomID),
	}, nil
}

// LeaveRoom 把客户端移出房间并停回大堂，返回给留在房间里成员的离开公告。
func (t *Tracker) LeaveRoom(ctx context.Context, roomID, username, client string) (*RoomBulletin, error) {
	if _, ok := t.rooms.FindRoom(roomID); !ok {
		return nil, ErrNotFound
	}

	t.mu.Lock()
	clients, ok := t.users[username]
	if !ok {
		t.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	clients[client] = room.LobbyID
	t.mu.Unlock()

	t.rooms.LeaveRoom(roomID, username, client)
	t.mirrorLeave(ctx, roomID, username, client)
	t.rooms.JoinRoom(room.LobbyID, username, client)
	t.mirrorJoin(ctx, room.LobbyID, username, client)

	return &RoomBulletin{
		Message: username + "-" + shortClientID(client) + " has left the room",
		Clients: t.clientsOf(roomID),
	}, nil
}

// DeleteRoom 尚未实现：显式快速失败，而不是静默 no-op。
func (t *Tracker) DeleteRoom(string) error {
	return ErrNotImplemented
}

// GetRoomClients 返回房间成员表的快照，供广播计算使用。
func (t *Tracker) GetRoomClients(roomID string) map[string][]string {
	return t.rooms.GetClients(roomID)
}

// --- 对象命令 ---

// CreateObject 把对象插入房间对象表并异步落库。
// 返回创建的对象和房间全体客户端 (广播集)。
func (t *Tracker) CreateObject(ctx context.Context, obj *domain.FlowObject, projectID string) (*domain.FlowObject, []string, error) {
	// 项目 ID 在 wire 负载里是独立字段，落库前补到对象上
	obj.ProjectID = projectID
	if err := t.rooms.AddObject(obj, projectID); err != nil {
		return nil, nil, mapRoomErr(err)
	}
	task, err := tasks.NewObjectPersistTask(*obj)
	t.enqueuePersist(task, err)
	return obj, t.clientsOf(projectID), nil
}

// CheckoutObject 为客户端取得对象的独占编辑锁。
func (t *Tracker) CheckoutObject(ctx context.Context, projectID, objectID, client string) error {
	return mapRoomErr(t.rooms.CheckoutObject(projectID, objectID, client))
}

// CheckinObject 释放客户端持有的对象锁。
func (t *Tracker) CheckinObject(ctx context.Context, projectID, objectID, client string) error {
	return mapRoomErr(t.rooms.CheckinObject(projectID, objectID, client))
}

// UpdateObject 在持锁前提下应用对象更新。persist 为 true 时
// (FinalizedUpdateObject) 额外把更新异步落库。
func (t *Tracker) UpdateObject(ctx context.Context, obj *domain.FlowObject, projectID, client string, persist bool) (*domain.FlowObject, []string, error) {
	updated, err := t.rooms.UpdateObject(obj, projectID, client)
	if err != nil {
		return nil, nil, mapRoomErr(err)
	}
	if persist {
		updated.ProjectID = projectID
		task, err := tasks.NewObjectPersistTask(*updated)
		t.enqueuePersist(task, err)
	}
	return updated, t.clientsOf(projectID), nil
}

// DeleteObject 把对象移出房间并异步删除持久化记录。
func (t *Tracker) DeleteObject(ctx context.Context, projectID, objectID, client string) ([]string, error) {
	if err := t.rooms.DeleteObject(projectID, objectID); err != nil {
		return nil, mapRoomErr(err)
	}
	task, err := tasks.NewObjectDeleteTask(objectID, projectID)
	t.enqueuePersist(task, err)
	return t.clientsOf(projectID), nil
}

// ReadObject 返回对象的当前快照。
func (t *Tracker) ReadObject(ctx context.Context, projectID, objectID string) (*domain.FlowObject, error) {
	obj, err := t.rooms.ReadObject(projectID, objectID)
	if err != nil {
		return nil, mapRoomErr(err)
	}
	return obj, nil
}

// --- 行为命令 ---

// CreateBehavior 存入 owner 名下的行为链并异步落库。
func (t *Tracker) CreateBehavior(ctx context.Context, projectID, owner string, chain []domain.FlowBehavior) ([]string, error) {
	for i := range chain {
		chain[i].ProjectID = projectID
	}
	if err := t.rooms.AddBehavior(projectID, owner, chain); err != nil {
		return nil, mapRoomErr(err)
	}
	task, err := tasks.NewBehaviorPersistTask(owner, chain)
	t.enqueuePersist(task, err)
	return t.clientsOf(projectID), nil
}

// DeleteBehavior 删除 owner 名下的行为链并异步删除持久化记录。
func (t *Tracker) DeleteBehavior(ctx context.Context, projectID, owner string) ([]string, error) {
	if err := t.rooms.DeleteBehavior(projectID, owner); err != nil {
		return nil, mapRoomErr(err)
	}
	task, err := tasks.NewBehaviorDeleteTask(owner)
	t.enqueuePersist(task, err)
	return t.clientsOf(projectID), nil
}

// ReadBehavior 在 owner 名下的链里按行为 ID 查找单步。
func (t *Tracker) ReadBehavior(ctx context.Context, projectID, owner, behaviorID string) (*domain.FlowBehavior, error) {
	chain, err := t.rooms.GetBehavior(projectID, owner)
	if err != nil {
		return nil, mapRoomErr(err)
	}
	for i := range chain {
		if chain[i].ID == behaviorID {
			return &chain[i], nil
		}
	}
	return nil, ErrNotFound
}

// --- 播放模式 ---

// TogglePlayMode 切换房间的播放模式标志。
// 返回这次调用是否真的改变了状态，以及房间全体客户端 (广播集)。
func (t *Tracker) TogglePlayMode(ctx context.Context, projectID string, on bool) (bool, []string, error) {
	var changed bool
	var err error
	if on {
		changed, err = t.rooms.TurnOnPlayMode(projectID)
	} else {
		changed, err = t.rooms.TurnOffPlayMode(projectID)
	}
	if err != nil {
		return false, nil, mapRoomErr(err)
	}
	if err := t.state.SetPlayMode(ctx, projectID, on); err != nil {
		t.log.WithError(err).WithField("room_id", projectID).Warn("Failed to mirror play mode to state store")
	}
	return changed, t.clientsOf(projectID), nil
}

// --- 连接生命周期 ---

// DisconnectClient 是连接丢失后的隐式登出：释放该客户端在其房间里
// 持有的全部对象锁，移出房间，并从会话表注销。
// 没有这条路径，掉线客户端的锁会永久挂死。
func (t *Tracker) DisconnectClient(ctx context.Context, client string) {
	t.mu.Lock()
	var username, roomID string
	found := false
	for u, clients := range t.users {
		if r, ok := clients[client]; ok {
			username, roomID, found = u, r, true
			delete(clients, client)
			if len(clients) == 0 {
				delete(t.users, u)
			}
			break
		}
	}
	t.mu.Unlock()

	if !found {
		return
	}

	if r, ok := t.rooms.FindRoom(roomID); ok {
		if released := r.ReleaseLocksHeldBy(client); len(released) > 0 {
			t.log.WithFields(logrus.Fields{
				"client_id":      shortClientID(client),
				"room_id":        roomID,
				"released_locks": len(released),
			}).Info("Released stale object locks on disconnect")
		}
	}
	t.rooms.LeaveRoom(roomID, username, client)
	t.mirrorLeave(ctx, roomID, username, client)

	t.log.WithFields(logrus.Fields{"username": username, "client_id": shortClientID(client)}).Info("Client disconnected, session cleaned up")
}
