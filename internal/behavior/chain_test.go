package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/dto"
)

func sampleChain() *dto.BehaviorNode {
	return &dto.BehaviorNode{
		ID:              "b-1",
		Name:            "OnClick",
		TriggerObjectID: "cube-1",
		TargetObjectID:  "door-1",
		FlowBehaviour: &dto.BehaviorNode{
			ID:              "b-2",
			Name:            "PlaySound",
			TriggerObjectID: "door-1",
			TargetObjectID:  "speaker-1",
			FlowBehaviour: &dto.BehaviorNode{
				ID:              "b-3",
				Name:            "ToggleLight",
				TriggerObjectID: "speaker-1",
				TargetObjectID:  "lamp-1",
			},
		},
	}
}

func TestListify(t *testing.T) {
	t.Run("空链返回空序列", func(t *testing.T) {
		assert.Empty(t, Listify(nil))
	})

	t.Run("下标连续且拥有者取首节点触发对象", func(t *testing.T) {
		steps := Listify(sampleChain())
		require.Len(t, steps, 3)

		for i, step := range steps {
			assert.Equal(t, i, step.Index)
			assert.Equal(t, "cube-1", step.ChainOwner)
		}
		assert.Equal(t, "b-1", steps[0].ID)
		assert.Equal(t, "b-3", steps[2].ID)
		assert.Equal(t, "speaker-1", steps[2].Trigger)
		assert.Equal(t, "lamp-1", steps[2].Target)
	})

	t.Run("单节点链", func(t *testing.T) {
		steps := Listify(&dto.BehaviorNode{ID: "b-solo", TriggerObjectID: "obj-1"})
		require.Len(t, steps, 1)
		assert.Equal(t, 0, steps[0].Index)
		assert.Equal(t, "obj-1", steps[0].ChainOwner)
	})
}

func TestReconstitute(t *testing.T) {
	t.Run("空序列返回 nil", func(t *testing.T) {
		assert.Nil(t, Reconstitute(nil))
		assert.Nil(t, Reconstitute([]domain.FlowBehavior{}))
	})

	t.Run("按下标顺序重建链表", func(t *testing.T) {
		steps := []domain.FlowBehavior{
			{ID: "b-1", Name: "OnClick", Trigger: "cube-1", Target: "door-1", Index: 0, ChainOwner: "cube-1"},
			{ID: "b-2", Name: "PlaySound", Trigger: "door-1", Target: "speaker-1", Index: 1, ChainOwner: "cube-1"},
		}

		head := Reconstitute(steps)
		require.NotNil(t, head)
		assert.Equal(t, "b-1", head.ID)
		require.NotNil(t, head.FlowBehaviour)
		assert.Equal(t, "b-2", head.FlowBehaviour.ID)
		assert.Nil(t, head.FlowBehaviour.FlowBehaviour)
	})
}

func TestRoundTrip(t *testing.T) {
	original := sampleChain()

	rebuilt := Reconstitute(Listify(original))
	assert.Equal(t, original, rebuilt)
}
