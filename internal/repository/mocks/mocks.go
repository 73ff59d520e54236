// Package mocks 提供 repository 各接口的 testify 模拟实现，供单元测试使用。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// MockUserRepository 模拟 repository.UserRepository。
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockProjectRepository 模拟 repository.ProjectRepository。
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) FindByOwner(ctx context.Context, owner string) ([]domain.Project, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockObjectRepository 模拟 repository.ObjectRepository。
type MockObjectRepository struct {
	mock.Mock
}

func (m *MockObjectRepository) Save(ctx context.Context, obj *domain.FlowObject) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *MockObjectRepository) FindByID(ctx context.Context, id string) (*domain.FlowObject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlowObject), args.Error(1)
}

func (m *MockObjectRepository) FindByProject(ctx context.Context, projectID string) ([]domain.FlowObject, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlowObject), args.Error(1)
}

func (m *MockObjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBehaviorRepository 模拟 repository.BehaviorRepository。
type MockBehaviorRepository struct {
	mock.Mock
}

func (m *MockBehaviorRepository) SaveChain(ctx context.Context, owner string, chain []domain.FlowBehavior) error {
	args := m.Called(ctx, owner, chain)
	return args.Error(0)
}

func (m *MockBehaviorRepository) FindByOwner(ctx context.Context, owner string) ([]domain.FlowBehavior, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlowBehavior), args.Error(1)
}

func (m *MockBehaviorRepository) DeleteChain(ctx context.Context, owner string) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

// MockStateRepository 模拟 repository.StateRepository。
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) AddClientToRoom(ctx context.Context, roomID, username, clientID string) error {
	args := m.Called(ctx, roomID, username, clientID)
	return args.Error(0)
}

func (m *MockStateRepository) RemoveClientFromRoom(ctx context.Context, roomID, username, clientID string) error {
	args := m.Called(ctx, roomID, username, clientID)
	return args.Error(0)
}

func (m *MockStateRepository) GetRoomClients(ctx context.Context, roomID string) (map[string][]string, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

func (m *MockStateRepository) SetPlayMode(ctx context.Context, roomID string, on bool) error {
	args := m.Called(ctx, roomID, on)
	return args.Error(0)
}

func (m *MockStateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
