// Package main 是价差聚合器进程的入口点。
// 订阅 Redis 行情总线，按控制存储中的路由选择配对两家交易所，
// 每个周期输出价差快照，并由高斯带信号引擎产出开平仓决策。
//
// 仅输出决策，不下单。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"spread-signal-monitor/internal/aggregator"
	"spread-signal-monitor/internal/app"
	"spread-signal-monitor/internal/bus"
	"spread-signal-monitor/internal/control"
	"spread-signal-monitor/internal/metrics"
	"spread-signal-monitor/internal/output/jsonl"
)

func main() {
	var configPath, envPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.StringVar(&envPath, "env", ".env", ".env 文件路径")
	flag.Parse()

	cfg, err := app.LoadConfig(envPath, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.App.LogLevel, cfg.App.Name)
	defer logger.Sync()

	ctx, cancel := app.SignalContext(context.Background(), logger)
	defer cancel()

	rdb, err := bus.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Error("连接 Redis 失败", zap.Error(err))
		os.Exit(1)
	}
	defer rdb.Close()

	sink, err := jsonl.NewSink(cfg.Output)
	if err != nil {
		logger.Error("创建输出失败", zap.Error(err))
		os.Exit(1)
	}

	srv := metrics.Serve(cfg.Metrics.Addr)

	agg := aggregator.New(cfg, control.NewStore(rdb), bus.New(rdb, logger), sink, logger)
	if err := agg.Run(ctx); err != nil {
		logger.Error("聚合器退出", zap.Error(err))
	}

	if err := sink.Close(); err != nil {
		logger.Warn("关闭输出失败", zap.Error(err))
	}
	if n := sink.EncodeErrors(); n > 0 {
		logger.Warn("部分输出记录编码失败已丢弃", zap.Int64("count", n))
	}
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		_ = srv.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	logger.Info("关闭完成")
}
