// Package worker 托管 Asynq 后台任务服务器：持久化边界的异步写穿侧。
package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/yashBhosale/reality-flow/internal/repository"
	"github.com/yashBhosale/reality-flow/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑。
type WorkerServer struct {
	server       *asynq.Server
	log          *logrus.Entry
	objectRepo   repository.ObjectRepository
	behaviorRepo repository.BehaviorRepository
}

// NewWorkerServer 创建一个新的 WorkerServer 实例。
func NewWorkerServer(redisOpt asynq.RedisClientOpt, objectRepo repository.ObjectRepository, behaviorRepo repository.BehaviorRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:       server,
		log:          logEntry,
		objectRepo:   objectRepo,
		behaviorRepo: behaviorRepo,
	}
}

// Start 运行 Worker Server。应该在一个单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	objectHandler := NewObjectPersistenceHandler(ws.objectRepo)
	mux.HandleFunc(tasks.TypeObjectPersist, objectHandler.ProcessPersist)
	mux.HandleFunc(tasks.TypeObjectDelete, objectHandler.ProcessDelete)

	behaviorHandler := NewBehaviorPersistenceHandler(ws.behaviorRepo)
	mux.HandleFunc(tasks.TypeBehaviorPersist, behaviorHandler.ProcessPersist)
	mux.HandleFunc(tasks.TypeBehaviorDelete, behaviorHandler.ProcessDelete)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server。
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
