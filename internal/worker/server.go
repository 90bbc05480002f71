// Package worker 封装 asynq 后台任务的消费端。
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/service"
	"hiveboard/internal/tasks"
)

// Server 封装 asynq worker server 的启动和关闭逻辑。
type Server struct {
	server *asynq.Server
	log    *logrus.Entry

	canvasSvc *service.CanvasService
	roomSvc   *service.RoomService
}

// NewServer 创建 worker Server 实例。
func NewServer(redisOpt asynq.RedisClientOpt, canvasSvc *service.CanvasService, roomSvc *service.RoomService, logger *logrus.Logger) *Server {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueCanvas:  6,
				tasks.QueueCleanup: 1,
				"default":          3,
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

	return &Server{
		server:    server,
		log:       logEntry,
		canvasSvc: canvasSvc,
		roomSvc:   roomSvc,
	}
}

// Start 运行 worker server，应在单独的 goroutine 中调用。
func (s *Server) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCanvasPersist, NewCanvasPersistHandler(s.canvasSvc).ProcessTask)
	mux.HandleFunc(tasks.TypeRoomSweep, NewRoomSweepHandler(s.roomSvc).ProcessTask)

	s.log.Info("Worker server starting...")
	if err := s.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			s.log.Fatalf("Could not run worker server: %v", err)
		}
		s.log.Info("Worker server stopped.")
	}
}

// Shutdown 优雅地关闭 worker server。
func (s *Server) Shutdown() {
	s.log.Info("Shutting down worker server...")
	s.server.Shutdown()
	s.log.Info("Worker server shut down complete.")
}
