package repository

import (
	"context"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// BehaviorRepository 定义了行为链的持久化操作。
// 链以 owner 为单位整条读写：一条链总是作为整体被替换或删除。
type BehaviorRepository interface {
	// SaveChain 保存 owner 名下的整条链，覆盖已有的同 owner 链。
	SaveChain(ctx context.Context, owner string, chain []domain.FlowBehavior) error

	// FindByOwner 返回 owner 名下按 Index 排序的链。
	// 链不存在时返回 ErrBehaviorNotFound。
	FindByOwner(ctx context.Context, owner string) ([]domain.FlowBehavior, error)

	// DeleteChain 删除 owner 名下的整条链。
	DeleteChain(ctx context.Context, owner string) error
}
