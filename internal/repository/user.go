// Package repository 定义了核心与持久化边界之间的窄契约。
// 核心把每个实现都当作异步、可容忍 fire-and-forget 的外部协作者，
// 只有结果值参与后续逻辑的调用 (如登录认证) 才同步等待。
package repository

import (
	"context"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByUsername 根据用户名查找用户。
	// 用户不存在时返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// Save 保存用户信息 (基于主键创建或更新)。
	Save(ctx context.Context, user *domain.User) error

	// Delete 根据用户名删除用户。
	Delete(ctx context.Context, username string) error
}
