// Package main 是交易所行情连接器进程的入口点。
// 为每个配置的交易所启动一个连接器：按控制存储中的路由选择决定是否连接与订阅哪些交易对，
// 并把最新成交价发布到 Redis 行情总线。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"spread-signal-monitor/internal/app"
	"spread-signal-monitor/internal/bus"
	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/connector"
	"spread-signal-monitor/internal/control"
	"spread-signal-monitor/internal/exchange"
	"spread-signal-monitor/internal/metrics"
	"spread-signal-monitor/internal/output/jsonl"
	"spread-signal-monitor/internal/util/timeutil"
)

type connectorsSnapshot struct {
	// TsUnixNs 指标采集时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// Connectors 各连接器指标
	Connectors []connector.ConnectionMetrics `json:"connectors"`
}

func main() {
	var configPath, envPath, exchanges string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.StringVar(&envPath, "env", ".env", ".env 文件路径")
	flag.StringVar(&exchanges, "exchanges", "", "逗号分隔的交易所列表，为空表示全部已配置交易所")
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

	names, err := selectExchanges(cfg, exchanges)
	if err != nil {
		logger.Error("交易所参数无效", zap.Error(err))
		os.Exit(1)
	}

	rdb, err := bus.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Error("连接 Redis 失败", zap.Error(err))
		os.Exit(1)
	}
	defer rdb.Close()

	tickBus := bus.New(rdb, logger)
	store := control.NewStore(rdb)

	srv := metrics.Serve(cfg.Metrics.Addr)

	var statsWriter *jsonl.Writer
	if cfg.Output.MetricsEnabled {
		statsWriter, err = jsonl.NewWriter(filepath.Join(cfg.Output.Dir, jsonl.ConnectorsFile), cfg.Output.BufferSize)
		if err != nil {
			logger.Error("创建 connectors writer 失败", zap.Error(err))
			os.Exit(1)
		}
	}

	connectors := make([]*connector.Connector, 0, len(names))
	for _, name := range names {
		venue, err := exchange.NewVenue(name)
		if err != nil {
			logger.Error("创建交易所接入失败", zap.Error(err))
			os.Exit(1)
		}
		c, err := connector.New(venue, store, tickBus, connector.OptionsFromConfig(cfg, name), logger)
		if err != nil {
			logger.Error("创建连接器失败", zap.String("exchange", name), zap.Error(err))
			os.Exit(1)
		}
		connectors = append(connectors, c)
	}
	logger.Info("连接器进程启动", zap.Strings("exchanges", names), zap.String("redis", cfg.Redis.Addr))

	var wg sync.WaitGroup
	for _, c := range connectors {
		wg.Add(1)
		go func(c *connector.Connector) {
			defer wg.Done()
			c.Start(ctx)
		}(c)
	}

	reportLoop(ctx, logger, connectors, statsWriter, cfg.Output.MetricsIntervalMs)

	// 优雅关闭（10s 超时）
	for _, c := range connectors {
		c.Stop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
		_ = statsWriter.Close()
	}()
	select {
	case <-time.After(10 * time.Second):
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		_ = srv.Shutdown(shutdownCtx)
		shutdownCancel()
	}
}

// selectExchanges 解析 -exchanges 参数；为空时返回全部已配置交易所
func selectExchanges(cfg *config.Config, raw string) ([]string, error) {
	var names []string
	if strings.TrimSpace(raw) == "" {
		for name := range cfg.Connectors.Exchanges {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}

	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, ok := cfg.Exchange(name); !ok {
			return nil, fmt.Errorf("未配置的交易所: %s", name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("交易所列表为空")
	}
	return names, nil
}

// reportLoop 周期输出连接指标，直到 ctx 取消
func reportLoop(ctx context.Context, logger *zap.Logger, connectors []*connector.Connector, w *jsonl.Writer, intervalMs int) {
	if intervalMs <= 0 {
		intervalMs = 10000
	}
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := connectorsSnapshot{TsUnixNs: timeutil.NowNano()}
			for _, c := range connectors {
				m := c.Metrics()
				snap.Connectors = append(snap.Connectors, m)
				if m.Active {
					logger.Info("连接指标",
						zap.String("exchange", m.Exchange),
						zap.Bool("connected", m.Connected),
						zap.Int64("ticks", m.TicksPublished),
						zap.Int64("reconnects", m.ReconnectCount),
						zap.Int64("decode_errors", m.DecodeErrorCount),
						zap.Int64("last_message_age_ms", m.LastMessageAgeMs))
				}
			}
			_ = w.Write(snap)
			_ = w.Flush()
		}
	}
}
