// Package main 是路由选择运维工具。
// 写入控制存储中的 exchange_a / exchange_b / symbol，或打印当前选择。
//
// 用法:
//
//	switch -a binance -b okx -symbol BTCUSDT
//	switch -a binance -b okx -symbol BTCUSDT -check
//	switch -show
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"spread-signal-monitor/internal/app"
	"spread-signal-monitor/internal/bus"
	"spread-signal-monitor/internal/control"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/metadata"
)

func main() {
	var configPath, envPath, exA, exB, symbols string
	var show, check bool
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.StringVar(&envPath, "env", ".env", ".env 文件路径")
	flag.StringVar(&exA, "a", "", "交易所 A")
	flag.StringVar(&exB, "b", "", "交易所 B")
	flag.StringVar(&symbols, "symbol", "", "逗号分隔的交易对，第一个为配对交易对")
	flag.BoolVar(&show, "show", false, "仅打印当前路由选择")
	flag.BoolVar(&check, "check", false, "写入前通过交易所公共 API 校验交易对")
	flag.Parse()

	cfg, err := app.LoadConfig(envPath, configPath)
	if err != nil {
		fatalf("加载配置失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := bus.NewClient(ctx, cfg.Redis)
	if err != nil {
		fatalf("连接 Redis 失败: %v", err)
	}
	defer rdb.Close()
	store := control.NewStore(rdb)

	if !show {
		sel, err := buildSelection(exA, exB, symbols)
		if err != nil {
			fatalf("%v", err)
		}
		if check {
			fetcher := metadata.NewHTTPFetcher(cfg.Metadata.TimeoutMs)
			if err := metadata.CheckSelection(ctx, fetcher, cfg.Metadata.URLs, sel); err != nil {
				fatalf("交易对校验失败:\n%v", err)
			}
		}
		if err := store.SetSelection(ctx, sel); err != nil {
			fatalf("%v", err)
		}
	}

	sel, err := store.Selection(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("exchange_a=%s exchange_b=%s symbol=%v\n", sel.ExchangeA, sel.ExchangeB, sel.Symbols)
}

// buildSelection 校验参数并生成路由选择
func buildSelection(exA, exB, symbols string) (model.RoutingSelection, error) {
	for _, ex := range []string{exA, exB} {
		if !model.IsKnownExchange(ex) {
			return model.RoutingSelection{}, fmt.Errorf("不支持的交易所: %q（可选 %v）", ex, model.KnownExchanges())
		}
	}
	if exA == exB {
		return model.RoutingSelection{}, fmt.Errorf("交易所 A 与 B 不能相同: %s", exA)
	}
	syms := control.ParseSymbols(symbols)
	if len(syms) == 0 {
		return model.RoutingSelection{}, fmt.Errorf("交易对不能为空")
	}
	return model.RoutingSelection{ExchangeA: exA, ExchangeB: exB, Symbols: syms}, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
