package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/repository"
)

// objectRepository 是 repository.ObjectRepository 的 GORM 实现。
type objectRepository struct {
	db *gorm.DB
}

// NewObjectRepository 创建基于 GORM 的场景对象仓库。
func NewObjectRepository(db *gorm.DB) repository.ObjectRepository {
	return &objectRepository{db: db}
}

// Save 以 upsert 方式落库：同一对象的后续更新覆盖先前记录。
func (r *objectRepository) Save(ctx context.Context, obj *domain.FlowObject) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(obj).Error
	if err != nil {
		return fmt.Errorf("gorm: save object: %w", err)
	}
	return nil
}

func (r *objectRepository) FindByID(ctx context.Context, id string) (*domain.FlowObject, error) {
	var obj domain.FlowObject
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, fmt.Errorf("gorm: find object by id: %w", err)
	}
	return &obj, nil
}

func (r *objectRepository) FindByProject(ctx context.Context, projectID string) ([]domain.FlowObject, error) {
	var objects []domain.FlowObject
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&objects).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find objects by project: %w", err)
	}
	return objects, nil
}

func (r *objectRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.FlowObject{})
	if result.Error != nil {
		return fmt.Errorf("gorm: delete object: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}
