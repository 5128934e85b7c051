// Package app 提供各入口进程共用的启动步骤：加载 .env 与配置、创建日志、捕获退出信号。
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"spread-signal-monitor/internal/config"
)

// LoadConfig 加载可选的 .env 文件与配置文件
// 配置文件不存在时使用默认配置（仍应用环境变量覆盖并验证）。
// 参数 envPath: .env 文件路径
// 参数 configPath: YAML 配置文件路径
func LoadConfig(envPath, configPath string) (*config.Config, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 %s 失败: %w", envPath, err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		cfg := config.Default()
		cfg.ApplyEnv(os.Getenv)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("配置验证失败: %w", err)
		}
		return cfg, nil
	}
	return config.Load(configPath)
}

// NewLogger 创建生产环境 JSON 日志
// 参数 level: 日志级别，非法值回退为 info
// 参数 name: 应用名称，写入每条日志的 app 字段
func NewLogger(level, name string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	if name != "" {
		logger = logger.With(zap.String("app", name))
	}
	return logger
}

// SignalContext 返回在 SIGINT/SIGTERM 时取消的 context
func SignalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer ossignal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("收到退出信号，开始优雅关闭")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
