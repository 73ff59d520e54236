package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/yashBhosale/reality-flow/internal/repository"
	"github.com/yashBhosale/reality-flow/internal/tasks"
)

// BehaviorPersistenceHandler 处理行为链的落库和删除任务。
type BehaviorPersistenceHandler struct {
	behaviorRepo repository.BehaviorRepository
}

// NewBehaviorPersistenceHandler 创建 Handler 实例。
func NewBehaviorPersistenceHandler(behaviorRepo repository.BehaviorRepository) *BehaviorPersistenceHandler {
	return &BehaviorPersistenceHandler{behaviorRepo: behaviorRepo}
}

// ProcessPersist 实现 behavior:persist 任务：整条链写穿到存储。
func (h *BehaviorPersistenceHandler) ProcessPersist(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.BehaviorPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal behavior persist payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.behaviorRepo.SaveChain(ctx, payload.ChainOwner, payload.Chain); err != nil {
		logCtx.WithError(err).WithField("chain_owner", payload.ChainOwner).Error("Failed to save behavior chain")
		return fmt.Errorf("failed to save behavior chain %s: %w", payload.ChainOwner, err)
	}

	logCtx.WithFields(logrus.Fields{"chain_owner": payload.ChainOwner, "steps": len(payload.Chain)}).Debug("Behavior chain persisted")
	return nil
}

// ProcessDelete 实现 behavior:delete 任务。
func (h *BehaviorPersistenceHandler) ProcessDelete(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.BehaviorDeletePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal behavior delete payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.behaviorRepo.DeleteChain(ctx, payload.ChainOwner); err != nil {
		logCtx.WithError(err).WithField("chain_owner", payload.ChainOwner).Error("Failed to delete behavior chain")
		return fmt.Errorf("failed to delete behavior chain %s: %w", payload.ChainOwner, err)
	}

	logCtx.WithField("chain_owner", payload.ChainOwner).Debug("Behavior chain deleted from store")
	return nil
}
