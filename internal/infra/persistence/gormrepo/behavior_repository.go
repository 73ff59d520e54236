package gormrepo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yashBhosale/reality-flow/internal/domain"
	"github.com/yashBhosale/reality-flow/internal/repository"
)

// behaviorRepository 是 repository.BehaviorRepository 的 GORM 实现。
type behaviorRepository struct {
	db *gorm.DB
}

// NewBehaviorRepository 创建基于 GORM 的行为链仓库。
func NewBehaviorRepository(db *gorm.DB) repository.BehaviorRepository {
	return &behaviorRepository{db: db}
}

// SaveChain 先清空旧链再整体写入新链，避免残留的旧节点。
func (r *behaviorRepository) SaveChain(ctx context.Context, owner string, chain []domain.FlowBehavior) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chain_owner = ?", owner).Delete(&domain.FlowBehavior{}).Error; err != nil {
			return fmt.Errorf("gorm: clear behavior chain: %w", err)
		}
		if len(chain) == 0 {
			return nil
		}
		if err := tx.Create(&chain).Error; err != nil {
			return fmt.Errorf("gorm: save behavior chain: %w", err)
		}
		return nil
	})
}

func (r *behaviorRepository) FindByOwner(ctx context.Context, owner string) ([]domain.FlowBehavior, error) {
	var chain []domain.FlowBehavior
	err := r.db.WithContext(ctx).
		Where("chain_owner = ?", owner).
		Order("chain_index ASC").
		Find(&chain).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find behavior chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, repository.ErrBehaviorNotFound
	}
	return chain, nil
}

func (r *behaviorRepository) DeleteChain(ctx context.Context, owner string) error {
	result := r.db.WithContext(ctx).Where("chain_owner = ?", owner).Delete(&domain.FlowBehavior{})
	if result.Error != nil {
		return fmt.Errorf("gorm: delete behavior chain: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrBehaviorNotFound
	}
	return nil
}
