package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/repository/mocks"
	"github.com/yashBhosale/reality-flow/internal/tasks"
)

func TestObjectPersistenceHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("落库任务调用对象仓库", func(t *testing.T) {
		repo := new(mocks.MockObjectRepository)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(obj *domain.FlowObject) bool {
			return obj.ID == "obj-1" && obj.X == 7
		})).Return(nil)

		task, err := tasks.NewObjectPersistTask(domain.FlowObject{ID: "obj-1", X: 7})
		require.NoError(t, err)

		h := NewObjectPersistenceHandler(repo)
		assert.NoError(t, h.ProcessPersist(ctx, task))
		repo.AssertExpectations(t)
	})

	t.Run("存储失败向上返回以触发重试", func(t *testing.T) {
		repo := new(mocks.MockObjectRepository)
		repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

		task, err := tasks.NewObjectPersistTask(domain.FlowObject{ID: "obj-1"})
		require.NoError(t, err)

		h := NewObjectPersistenceHandler(repo)
		err = h.ProcessPersist(ctx, task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("坏负载跳过重试", func(t *testing.T) {
		h := NewObjectPersistenceHandler(new(mocks.MockObjectRepository))
		err := h.ProcessPersist(ctx, asynq.NewTask(tasks.TypeObjectPersist, []byte(`{not json`)))
		require.Error(t, err)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("删除任务调用对象仓库", func(t *testing.T) {
		repo := new(mocks.MockObjectRepository)
		repo.On("Delete", mock.Anything, "obj-1").Return(nil)

		task, err := tasks.NewObjectDeleteTask("obj-1", "proj-1")
		require.NoError(t, err)

		h := NewObjectPersistenceHandler(repo)
		assert.NoError(t, h.ProcessDelete(ctx, task))
		repo.AssertExpectations(t)
	})
}

func TestBehaviorPersistenceHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("整条链一起写穿", func(t *testing.T) {
		chain := []domain.FlowBehavior{
			{ID: "b-1", ChainOwner: "cube-1", Index: 0},
			{ID: "b-2", ChainOwner: "cube-1", Index: 1},
		}
		repo := new(mocks.MockBehaviorRepository)
		repo.On("SaveChain", mock.Anything, "cube-1", chain).Return(nil)

		task, err := tasks.NewBehaviorPersistTask("cube-1", chain)
		require.NoError(t, err)

		h := NewBehaviorPersistenceHandler(repo)
		assert.NoError(t, h.ProcessPersist(ctx, task))
		repo.AssertExpectations(t)
	})

	t.Run("删除任务清整条链", func(t *testing.T) {
		repo := new(mocks.MockBehaviorRepository)
		repo.On("DeleteChain", mock.Anything, "cube-1").Return(nil)

		task, err := tasks.NewBehaviorDeleteTask("cube-1")
		require.NoError(t, err)

		h := NewBehaviorPersistenceHandler(repo)
		assert.NoError(t, h.ProcessDelete(ctx, task))
		repo.AssertExpectations(t)
	})
}
