package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/repository"
)

// projectRepository 是 repository.ProjectRepository 的 GORM 实现。
type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建基于 GORM 的项目仓库。
func NewProjectRepository(db *gorm.DB) repository.ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProjectNotFound
		}
		return nil, fmt.Errorf("gorm: find project by id: %w", err)
	}
	return &project, nil
}

func (r *projectRepository) FindByOwner(ctx context.Context, owner string) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).Where("owner = ?", owner).Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find projects by owner: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) Save(ctx context.Context, project *domain.Project) error {
	err := r.db.WithContext(ctx).Save(project).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save project: %w", err)
	}
	return nil
}

// Delete 删除项目及其名下的所有对象与行为链，整体在一个事务中完成。
func (r *projectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&domain.FlowObject{}).Error; err != nil {
			return fmt.Errorf("gorm: delete project objects: %w", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&domain.FlowBehavior{}).Error; err != nil {
			return fmt.Errorf("gorm: delete project behaviors: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&domain.Project{})
		if result.Error != nil {
			return fmt.Errorf("gorm: delete project: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrProjectNotFound
		}
		return nil
	})
}
