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

// ObjectPersistenceHandler 处理场景对象的落库和删除任务。
type ObjectPersistenceHandler struct {
	objectRepo repository.ObjectRepository
}

// NewObjectPersistenceHandler 创建 Handler 实例。
func NewObjectPersistenceHandler(objectRepo repository.ObjectRepository) *ObjectPersistenceHandler {
	return &ObjectPersistenceHandler{objectRepo: objectRepo}
}

// ProcessPersist 实现 object:persist 任务：把对象写穿到存储。
func (h *ObjectPersistenceHandler) ProcessPersist(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.ObjectPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal object persist payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.objectRepo.Save(ctx, &payload.Object); err != nil {
		logCtx.WithError(err).WithField("object_id", payload.Object.ID).Error("Failed to save object")
		return fmt.Errorf("failed to save object %s: %w", payload.Object.ID, err)
	}

	logCtx.WithField("object_id", payload.Object.ID).Debug("Object persisted")
	return nil
}

// ProcessDelete 实现 object:delete 任务。
func (h *ObjectPersistenceHandler) ProcessDelete(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.ObjectDeletePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal object delete payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.objectRepo.Delete(ctx, payload.ObjectID); err != nil {
		logCtx.WithError(err).WithField("object_id", payload.ObjectID).Error("Failed to delete object")
		return fmt.Errorf("failed to delete object %s: %w", payload.ObjectID, err)
	}

	logCtx.WithField("object_id", payload.ObjectID).Debug("Object deleted from store")
	return nil
}
