package repository

import (
	"context"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// ProjectRepository 定义了项目数据的存储和检索操作。
type ProjectRepository interface {
	// FindByID 根据项目 ID 查找项目。
	// 项目不存在时返回 ErrProjectNotFound。
	FindByID(ctx context.Context, id string) (*domain.Project, error)

	// FindByOwner 返回某个用户名下的全部项目。
	FindByOwner(ctx context.Context, owner string) ([]domain.Project, error)

	// Save 保存项目信息 (基于主键创建或更新)。
	Save(ctx context.Context, project *domain.Project) error

	// Delete 根据项目 ID 删除项目及其关联数据。
	Delete(ctx context.Context, id string) error
}
