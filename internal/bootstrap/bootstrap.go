// Package bootstrap 根据配置组装服务端和命令行共用的组件
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/scholar-assistant/config"
	"github.com/fyerfyer/scholar-assistant/internal/cache"
	"github.com/fyerfyer/scholar-assistant/internal/database"
	"github.com/fyerfyer/scholar-assistant/internal/llm"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/fyerfyer/scholar-assistant/pkg/storage"
	"github.com/fyerfyer/scholar-assistant/pkg/taskqueue"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureLogger 按配置设置日志级别和输出
// 配置了日志文件时同时输出到标准输出和按大小轮转的文件
func ConfigureLogger(logger *logrus.Logger, cfg config.LogConfig) *logrus.Logger {
	if logger == nil {
		logger = logrus.New()
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File == "" {
		return logger
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		logger.WithError(err).Warn("Failed to create log directory, logging to stdout only")
		return logger
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}))
	return logger
}

// NewLLMClient 创建大模型客户端
func NewLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	opts := []llm.Option{
		llm.WithAPIKey(cfg.APIKey),
		llm.WithModel(cfg.Model),
		llm.WithMaxTokens(cfg.MaxTokens),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, llm.WithTimeout(cfg.Timeout))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, llm.WithBaseURL(cfg.Endpoint))
	}

	client, err := llm.NewClient(cfg.Provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	return client, nil
}

// NewPolicy 根据配置构造重试策略
func NewPolicy(cfg config.PipelineConfig) transform.Policy {
	policy := transform.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	policy.Backoff = cfg.RetryBackoff
	if cfg.StrictRetry {
		policy.Retryable = transform.RetryTransient
	}
	return policy
}

// NewCache 创建转换结果缓存，未启用时返回nil
func NewCache(cfg config.CacheConfig) (cache.Cache, error) {
	if !cfg.Enable {
		return nil, nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Type = cfg.Type
	cacheCfg.RedisAddr = cfg.Address
	cacheCfg.RedisPassword = cfg.Password
	cacheCfg.RedisDB = cfg.DB
	if cfg.TTL > 0 {
		cacheCfg.DefaultTTL = time.Duration(cfg.TTL) * time.Second
	}

	c, err := cache.NewCache(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", cfg.Type, err)
	}
	return c, nil
}

// NewTransformer 创建带重试策略和缓存的转换器
func NewTransformer(cfg *config.Config, client llm.Client, logger *logrus.Logger) *transform.Transformer {
	opts := []transform.Option{
		transform.WithLogger(logger),
		transform.WithPolicy(NewPolicy(cfg.Pipeline)),
	}
	if cfg.Pipeline.AttemptTimeout > 0 {
		opts = append(opts, transform.WithAttemptTimeout(cfg.Pipeline.AttemptTimeout))
	}

	c, err := NewCache(cfg.Cache)
	if err != nil {
		// 缓存不可用时不影响处理
		logger.WithError(err).Warn("Transform cache disabled")
	} else if c != nil {
		opts = append(opts, transform.WithCache(c, time.Duration(cfg.Cache.TTL)*time.Second))
	}

	return transform.New(client, opts...)
}

// NewStorage 创建归档存储
func NewStorage(cfg config.StorageConfig) (storage.Storage, error) {
	return storage.NewStorage(storage.Config{
		Type:  cfg.Type,
		Local: storage.LocalConfig{Path: cfg.Path},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		},
	})
}

// DatabaseConfig 转换数据库配置
func DatabaseConfig(cfg config.DatabaseConfig) *database.Config {
	dbCfg := database.DefaultConfig()
	if cfg.Type != "" {
		dbCfg.Type = cfg.Type
	}
	if cfg.DSN != "" {
		dbCfg.DSN = cfg.DSN
	}
	return dbCfg
}

// QueueConfig 转换任务队列配置
func QueueConfig(cfg config.QueueConfig) *taskqueue.Config {
	queueCfg := taskqueue.DefaultConfig()
	queueCfg.RedisAddr = cfg.RedisAddr
	queueCfg.RedisPassword = cfg.RedisPassword
	queueCfg.RedisDB = cfg.RedisDB
	if cfg.Concurrency > 0 {
		queueCfg.Concurrency = cfg.Concurrency
	}
	if cfg.RetryLimit >= 0 {
		queueCfg.RetryLimit = cfg.RetryLimit
	}
	if cfg.RetryDelay > 0 {
		queueCfg.RetryDelay = time.Duration(cfg.RetryDelay) * time.Second
	}
	return queueCfg
}
