package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/scholar-assistant/api"
	"github.com/fyerfyer/scholar-assistant/api/handler"
	"github.com/fyerfyer/scholar-assistant/api/middleware"
	"github.com/fyerfyer/scholar-assistant/config"
	"github.com/fyerfyer/scholar-assistant/internal/bootstrap"
	"github.com/fyerfyer/scholar-assistant/internal/database"
	"github.com/fyerfyer/scholar-assistant/internal/repository"
	"github.com/fyerfyer/scholar-assistant/internal/services"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 命令行参数，非零值覆盖配置文件
var (
	configFile   = flag.String("config", "config.yaml", "Path to config file")
	envFile      = flag.String("env", ".env", "Path to .env file")
	port         = flag.Int("port", 0, "Server port (overrides config)")
	mode         = flag.String("mode", "", "Run mode debug/release (overrides config)")
	logLevel     = flag.String("log-level", "", "Log level debug/info/warn/error (overrides config)")
	queueEnabled = flag.Bool("queue", false, "Enable async processing through the task queue")
	readTimeout  = flag.Duration("read-timeout", 30*time.Second, "Read timeout")
	writeTimeout = flag.Duration("write-timeout", 0, "Write timeout, 0 for none since sync processing can be long")
)

func main() {
	flag.Parse()

	// .env 文件可选
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Failed to load env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)

	gin.SetMode(cfg.Server.Mode)

	logger := bootstrap.ConfigureLogger(middleware.GetLogger(), cfg.Log)
	logger.Info("Starting Scholar Assistant...")

	if err := database.Setup(bootstrap.DatabaseConfig(cfg.Database), logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	llmClient, err := bootstrap.NewLLMClient(cfg.LLM)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM client: %v", err)
	}
	tr := bootstrap.NewTransformer(cfg, llmClient, logger)

	archiveStorage, err := bootstrap.NewStorage(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	repo := repository.NewPaperRepository()
	statusManager := services.NewPaperStatusManager(repo, logger)

	// 上次退出时停留在处理中的论文标记为失败
	if n, err := statusManager.RecoverInterrupted(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to recover interrupted papers")
	} else if n > 0 {
		logger.WithField("count", n).Info("Interrupted papers marked as failed")
	}

	opts := []services.PaperOption{
		services.WithLogger(logger),
		services.WithStatusManager(statusManager),
		services.WithStorage(archiveStorage),
		services.WithTimeout(cfg.Pipeline.ProcessTimeout),
		services.WithBodyOffset(cfg.Pipeline.BodyOffset),
	}

	var worker taskqueue.Worker
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, worker, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		opts = append(opts, services.WithTaskQueue(queue))
		logger.Info("Paper processing will use async task queue")
	}

	paperService := services.NewPaperService(repo, tr, opts...)

	if worker != nil {
		taskHandler := services.NewPaperTaskHandler(paperService, logger)
		for _, taskType := range taskHandler.GetTaskTypes() {
			worker.RegisterHandler(taskType, taskHandler)
		}
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start task worker: %v", err)
		}
		defer worker.Stop()
	}

	r := api.SetupRouter(handler.NewPaperHandler(paperService))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	// 优雅关闭
	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// applyFlags 用命令行参数覆盖配置文件
func applyFlags(cfg *config.Config) {
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *mode != "" {
		cfg.Server.Mode = *mode
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *queueEnabled {
		cfg.Queue.Enable = true
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Queue.RedisAddr = addr
	}
}

// setupTaskQueue 创建任务队列和工作者
func setupTaskQueue(cfg *config.Config, logger *logrus.Logger) (taskqueue.Queue, taskqueue.Worker, error) {
	queueCfg := bootstrap.QueueConfig(cfg.Queue)

	queue, err := taskqueue.NewRedisQueue(queueCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect task queue: %w", err)
	}
	queue.SetLogger(logger)

	logger.WithFields(logrus.Fields{
		"redis_addr":  queueCfg.RedisAddr,
		"concurrency": queueCfg.Concurrency,
		"retry_limit": queueCfg.RetryLimit,
	}).Info("Task queue initialized")

	return queue, taskqueue.NewRedisWorker(queue, queueCfg), nil
}
