package repository

import (
	"context"

	"github.com/yashBhosale/reality-flow/internal/domain"
)

// ObjectRepository 定义了场景对象的持久化操作。
// 房间内存表是活跃会话期间的权威数据源，这里的写入由后台任务异步执行。
type ObjectRepository interface {
	// Save 保存对象 (基于对象 ID 创建或更新)。
	Save(ctx context.Context, obj *domain.FlowObject) error

	// FindByID 根据对象 ID 查找对象。
	// 对象不存在时返回 ErrObjectNotFound。
	FindByID(ctx context.Context, id string) (*domain.FlowObject, error)

	// FindByProject 返回某个项目名下的全部对象。
	FindByProject(ctx context.Context, projectID string) ([]domain.FlowObject, error)

	// Delete 根据对象 ID 删除对象。
	Delete(ctx context.Context, id string) error
}
