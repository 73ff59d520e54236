package session

import (
	"context"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/repository"
	"github.com/yashBhosale/reality-flow/internal/repository/mocks"
	"github.com/yashBhosale/reality-flow/internal/room"
	"github.com/yashBhosale/reality-flow/internal/tasks"
)

// fakeEnqueuer 记录入队的任务类型，供断言异步落库行为。
type fakeEnqueuer struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, task.Type())
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) taskTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.types...)
}

type trackerFixture struct {
	tracker  *Tracker
	rooms    *room.Manager
	userRepo *mocks.MockUserRepository
	projRepo *mocks.MockProjectRepository
	state    *mocks.MockStateRepository
	enqueuer *fakeEnqueuer
}

func newFixture(t *testing.T) *trackerFixture {
	t.Helper()

	userRepo := new(mocks.MockUserRepository)
	projRepo := new(mocks.MockProjectRepository)
	state := new(mocks.MockStateRepository)
	enqueuer := &fakeEnqueuer{}
	rooms := room.NewManager()

	// 状态镜像是 fire-and-forget，测试里一律放行
	state.On("AddClientToRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	state.On("RemoveClientFromRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	state.On("SetPlayMode", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	state.On("CleanupRoomState", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &trackerFixture{
		tracker:  NewTracker(rooms, userRepo, projRepo, state, enqueuer),
		rooms:    rooms,
		userRepo: userRepo,
		projRepo: projRepo,
		state:    state,
		enqueuer: enqueuer,
	}
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// withUser 登记一个可认证的用户并放行其项目列表查询。
func (f *trackerFixture) withUser(t *testing.T, username, password string) {
	t.Helper()
	f.userRepo.On("FindByUsername", mock.Anything, username).
		Return(&domain.User{Username: username, Password: hashOf(t, password)}, nil).Maybe()
	f.projRepo.On("FindByOwner", mock.Anything, username).Return([]domain.Project{}, nil).Maybe()
}

func TestLoginUser(t *testing.T) {
	ctx := context.Background()

	t.Run("认证失败不产生任何会话状态", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")

		_, err := f.tracker.LoginUser(ctx, "alice", "wrong", "client-a1")
		assert.ErrorIs(t, err, ErrOperationFailed)
		assert.Empty(t, f.rooms.GetClients(room.LobbyID))
	})

	t.Run("未知用户与密码错误对外不可区分", func(t *testing.T) {
		f := newFixture(t)
		f.userRepo.On("FindByUsername", mock.Anything, "ghost").
			Return(nil, repository.ErrUserNotFound)

		_, err := f.tracker.LoginUser(ctx, "ghost", "whatever", "client-g1")
		assert.ErrorIs(t, err, ErrOperationFailed)
	})

	t.Run("登录后客户端停入大堂", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")

		projects, err := f.tracker.LoginUser(ctx, "alice", "secret", "client-a1")
		require.NoError(t, err)
		assert.Empty(t, projects)

		lobby := f.rooms.GetClients(room.LobbyID)
		assert.ElementsMatch(t, []string{"client-a1"}, lobby["alice"])
	})

	t.Run("同一用户多个连接互不影响", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")

		_, err := f.tracker.LoginUser(ctx, "alice", "secret", "client-a1")
		require.NoError(t, err)
		_, err = f.tracker.LoginUser(ctx, "alice", "secret", "client-a2")
		require.NoError(t, err)

		lobby := f.rooms.GetClients(room.LobbyID)
		assert.ElementsMatch(t, []string{"client-a1", "client-a2"}, lobby["alice"])

		// 注销第一个连接，第二个连接保持登录
		require.NoError(t, f.tracker.LogoutUser(ctx, "alice", "secret", "client-a1"))
		lobby = f.rooms.GetClients(room.LobbyID)
		assert.ElementsMatch(t, []string{"client-a2"}, lobby["alice"])

		_, err = f.tracker.FetchProjects(ctx, "alice")
		assert.NoError(t, err)

		// 最后一个连接注销后整个用户离线
		require.NoError(t, f.tracker.LogoutUser(ctx, "alice", "secret", "client-a2"))
		_, err = f.tracker.FetchProjects(ctx, "alice")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("未登记的连接注销返回 ErrNotAuthenticated", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")

		err := f.tracker.LogoutUser(ctx, "alice", "secret", "client-unknown")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	f.withUser(t, "alice", "secret")
	f.userRepo.On("Delete", mock.Anything, "alice").Return(nil)
	f.projRepo.On("FindByID", mock.Anything, "proj-alpha").
		Return(&domain.Project{ID: "proj-alpha", Owner: "alice"}, nil).Maybe()

	_, err := f.tracker.LoginUser(ctx, "alice", "secret", "client-a1")
	require.NoError(t, err)
	_, err = f.tracker.LoginUser(ctx, "alice", "secret", "client-a2")
	require.NoError(t, err)

	// 第一个连接进入项目房间，第二个留在大堂
	_, _, err = f.tracker.OpenProject(ctx, "proj-alpha", "alice", "client-a1")
	require.NoError(t, err)

	affected, err := f.tracker.DeleteUser(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"client-a1", "client-a2"}, affected)

	// 两个房间都不再有该用户的踪迹
	assert.Empty(t, f.rooms.GetClients("proj-alpha"))
	assert.Empty(t, f.rooms.GetClients(room.LobbyID))

	_, err = f.tracker.FetchProjects(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	f.userRepo.AssertCalled(t, "Delete", mock.Anything, "alice")
}

func TestProjectGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.tracker.CreateProject(ctx, &domain.Project{ID: "p-1"}, "nobody")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.tracker.FetchProjects(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, _, err = f.tracker.OpenProject(ctx, "p-1", "nobody", "client-x")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = f.tracker.DeleteProject(ctx, "p-1", "nobody")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestOpenProject(t *testing.T) {
	ctx := context.Background()

	t.Run("打开项目即加入房间并产生公告", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")
		f.projRepo.On("FindByID", mock.Anything, "proj-alpha").
			Return(&domain.Project{ID: "proj-alpha", Name: "Alpha", Owner: "alice"}, nil)

		_, err := f.tracker.LoginUser(ctx, "alice", "secret", "11111111-aaaa")
		require.NoError(t, err)

		project, bulletin, err := f.tracker.OpenProject(ctx, "proj-alpha", "alice", "11111111-aaaa")
		require.NoError(t, err)
		assert.Equal(t, "Alpha", project.Name)
		require.NotNil(t, bulletin)
		assert.Equal(t, "alice-11111111 has joined the room", bulletin.Message)
		assert.Contains(t, bulletin.Clients, "11111111-aaaa")

		// 客户端已从大堂移入项目房间
		assert.Empty(t, f.rooms.GetClients(room.LobbyID))
		clients := f.rooms.GetClients("proj-alpha")
		assert.ElementsMatch(t, []string{"11111111-aaaa"}, clients["alice"])
	})

	t.Run("项目不存在返回 ErrNotFound", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")
		f.projRepo.On("FindByID", mock.Anything, "ghost").
			Return(nil, repository.ErrProjectNotFound)

		_, err := f.tracker.LoginUser(ctx, "alice", "secret", "client-a1")
		require.NoError(t, err)

		_, _, err = f.tracker.OpenProject(ctx, "ghost", "alice", "client-a1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("离开项目停回大堂并产生公告", func(t *testing.T) {
		f := newFixture(t)
		f.withUser(t, "alice", "secret")
		f.projRepo.On("FindByID", mock.Anything, "proj-alpha").
			Return(&domain.Project{ID: "proj-alpha"}, nil)

		_, err := f.tracker.LoginUser(ctx, "alice", "secret", "22222222-bbbb")
		require.NoError(t, err)
		_, _, err = f.tracker.OpenProject(ctx, "proj-alpha", "alice", "22222222-bbbb")
		require.NoError(t, err)

		bulletin, err := f.tracker.LeaveProject(ctx, "proj-alpha", "alice", "22222222-bbbb")
		require.NoError(t, err)
		assert.Equal(t, "alice-22222222 has left the room", bulletin.Message)

		lobby := f.rooms.GetClients(room.LobbyID)
		assert.ElementsMatch(t, []string{"22222222-bbbb"}, lobby["alice"])
	})
}

func TestReadProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.projRepo.On("FindByID", mock.Anything, "proj-alpha").
		Return(&domain.Project{ID: "proj-alpha", Name: "Alpha"}, nil)

	t.Run("房间未开时只有持久化记录", func(t *testing.T) {
		snapshot, err := f.tracker.ReadProject(ctx, "proj-alpha")
		require.NoError(t, err)
		assert.Equal(t, "Alpha", snapshot.Project.Name)
		assert.Empty(t, snapshot.Objects)
	})

	t.Run("房间开着时附带实时对象表", func(t *testing.T) {
		f.tracker.CreateRoom("proj-alpha")
		_, _, err := f.tracker.CreateObject(ctx, &domain.FlowObject{ID: "obj-1", Name: "Cube"}, "proj-alpha")
		require.NoError(t, err)

		snapshot, err := f.tracker.ReadProject(ctx, "proj-alpha")
		require.NoError(t, err)
		require.Len(t, snapshot.Objects, 1)
		assert.Equal(t, "Cube", snapshot.Objects[0].Name)
	})
}

func TestObjectLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracker.CreateRoom("proj-1")

	_, _, err := f.tracker.CreateObject(ctx, &domain.FlowObject{ID: "obj-1", Name: "Cube"}, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, []string{tasks.TypeObjectPersist}, f.enqueuer.taskTypes())

	// A 拿锁，B 拿不到
	require.NoError(t, f.tracker.CheckoutObject(ctx, "proj-1", "obj-1", "client-a"))
	assert.ErrorIs(t, f.tracker.CheckoutObject(ctx, "proj-1", "obj-1", "client-b"), ErrLockConflict)

	// A 连续推送三帧更新，普通更新不落库
	for i := 1; i <= 3; i++ {
		updated, _, err := f.tracker.UpdateObject(ctx, &domain.FlowObject{ID: "obj-1", X: float64(i)}, "proj-1", "client-a", false)
		require.NoError(t, err)
		assert.Equal(t, float64(i), updated.X)
	}
	assert.Equal(t, []string{tasks.TypeObjectPersist}, f.enqueuer.taskTypes())

	// B 未持锁的更新被拒绝，状态不变
	_, _, err = f.tracker.UpdateObject(ctx, &domain.FlowObject{ID: "obj-1", X: 99}, "proj-1", "client-b", false)
	assert.ErrorIs(t, err, ErrLockConflict)
	obj, err := f.tracker.ReadObject(ctx, "proj-1", "obj-1")
	require.NoError(t, err)
	assert.Equal(t, float64(3), obj.X)

	// 终帧更新落库
	_, _, err = f.tracker.UpdateObject(ctx, &domain.FlowObject{ID: "obj-1", X: 4}, "proj-1", "client-a", true)
	require.NoError(t, err)
	assert.Equal(t, []string{tasks.TypeObjectPersist, tasks.TypeObjectPersist}, f.enqueuer.taskTypes())

	// A checkin 后 B 才能 checkout
	require.NoError(t, f.tracker.CheckinObject(ctx, "proj-1", "obj-1", "client-a"))
	assert.NoError(t, f.tracker.CheckoutObject(ctx, "proj-1", "obj-1", "client-b"))

	// 删除对象并异步清理存储
	_, err = f.tracker.DeleteObject(ctx, "proj-1", "obj-1", "client-b")
	require.NoError(t, err)
	assert.Contains(t, f.enqueuer.taskTypes(), tasks.TypeObjectDelete)

	_, err = f.tracker.ReadObject(ctx, "proj-1", "obj-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBehaviorLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracker.CreateRoom("proj-1")

	chain := []domain.FlowBehavior{
		{ID: "b-1", ChainOwner: "cube-1", Index: 0},
		{ID: "b-2", ChainOwner: "cube-1", Index: 1},
	}

	_, err := f.tracker.CreateBehavior(ctx, "proj-1", "cube-1", chain)
	require.NoError(t, err)
	assert.Contains(t, f.enqueuer.taskTypes(), tasks.TypeBehaviorPersist)

	// 链上的每一步都打上项目 ID
	step, err := f.tracker.ReadBehavior(ctx, "proj-1", "cube-1", "b-2")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", step.ProjectID)

	_, err = f.tracker.ReadBehavior(ctx, "proj-1", "cube-1", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.tracker.DeleteBehavior(ctx, "proj-1", "cube-1")
	require.NoError(t, err)
	assert.Contains(t, f.enqueuer.taskTypes(), tasks.TypeBehaviorDelete)

	_, err = f.tracker.ReadBehavior(ctx, "proj-1", "cube-1", "b-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTogglePlayMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracker.CreateRoom("proj-1")

	changed, _, err := f.tracker.TogglePlayMode(ctx, "proj-1", true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, _, err = f.tracker.TogglePlayMode(ctx, "proj-1", true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, _, err = f.tracker.TogglePlayMode(ctx, "proj-1", false)
	require.NoError(t, err)
	assert.True(t, changed)

	_, _, err = f.tracker.TogglePlayMode(ctx, "no-such-room", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.tracker.DeleteRoom("anything"), ErrNotImplemented)
}

func TestDisconnectClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.withUser(t, "alice", "secret")
	f.projRepo.On("FindByID", mock.Anything, "proj-alpha").
		Return(&domain.Project{ID: "proj-alpha"}, nil)

	_, err := f.tracker.LoginUser(ctx, "alice", "secret", "client-a1")
	require.NoError(t, err)
	_, _, err = f.tracker.OpenProject(ctx, "proj-alpha", "alice", "client-a1")
	require.NoError(t, err)

	_, _, err = f.tracker.CreateObject(ctx, &domain.FlowObject{ID: "obj-1"}, "proj-alpha")
	require.NoError(t, err)
	require.NoError(t, f.tracker.CheckoutObject(ctx, "proj-alpha", "obj-1", "client-a1"))

	f.tracker.DisconnectClient(ctx, "client-a1")

	// 会话、房间成员和对象锁都被清理
	_, err = f.tracker.FetchProjects(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, f.rooms.GetClients("proj-alpha"))
	assert.NoError(t, f.tracker.CheckoutObject(ctx, "proj-alpha", "obj-1", "client-b1"))

	// 未登记的连接断开是 no-op
	f.tracker.DisconnectClient(ctx, "client-unknown")
}
