// Package behavior 负责行为链在 wire 递归形式和内部有序形式之间的转换。
//
// wire 上一条链是单向链表：每个节点把下一步嵌在 FlowBehaviour 字段里。
// 核心内部永远只操作摊平后的有序序列 (Index 0..n-1)，链的身份取首节点
// 的触发对象 ID (ChainOwner)。两个方向必须能往返：对任意合法链 x，
// Reconstitute(Listify(x)) 与 x 结构等价。
package behavior

import (
	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/dto"
)

// Listify 把递归 wire 结构摊平成有序的行为记录序列。
// 空链 (nil 节点) 返回空序列。
func Listify(node *dto.BehaviorNode) []domain.FlowBehavior {
	if node == nil {
		return nil
	}

	owner := node.TriggerObjectID
	var steps []domain.FlowBehavior

	for temp, index := node, 0; temp != nil; temp, index = temp.FlowBehaviour, index+1 {
		steps = append(steps, domain.FlowBehavior{
			ID:         temp.ID,
			Name:       temp.Name,
			Trigger:    temp.TriggerObjectID,
			Target:     temp.TargetObjectID,
			Index:      index,
			ChainOwner: owner,
		})
	}
	return steps
}

// Reconstitute 是 Listify 的逆操作：按 Index 顺序重建递归 wire 结构。
// 调用者保证传入的序列下标连续且有序，空序列返回 nil。
func Reconstitute(steps []domain.FlowBehavior) *dto.BehaviorNode {
	if len(steps) == 0 {
		return nil
	}

	var head *dto.BehaviorNode
	// 从链尾往前构建，每一步把已建好的部分挂到新节点后面
	for i := len(steps) - 1; i >= 0; i-- {
		head = &dto.BehaviorNode{
			ID:              steps[i].ID,
			Name:            steps[i].Name,
			TriggerObjectID: steps[i].Trigger,
			TargetObjectID:  steps[i].Target,
			FlowBehaviour:   head,
		}
	}
	return head
}
