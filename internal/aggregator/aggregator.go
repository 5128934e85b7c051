// Package aggregator 实现价差聚合器。
// 接收 goroutine 按当前路由选择过滤总线消息并写入价格缓存；
// 快照 goroutine 按固定周期读取缓存（无新值时沿用上期价格），计算价差并驱动信号引擎。
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spread-signal-monitor/internal/bus"
	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/core/signal"
	"spread-signal-monitor/internal/core/store"
	"spread-signal-monitor/internal/metrics"
	"spread-signal-monitor/internal/stats/gap"
	"spread-signal-monitor/internal/util/backoff"
	"spread-signal-monitor/internal/util/timeutil"
)

// ControlReader 读取当前路由选择
type ControlReader interface {
	Selection(ctx context.Context) (model.RoutingSelection, error)
}

// Subscriber 总线订阅
type Subscriber interface {
	Listen(ctx context.Context, ready func(), handle func(bus.Message)) error
}

// Output 决策、快照与指标输出
type Output interface {
	WriteDecision(rec model.DecisionRecord) error
	WriteSnapshot(snap model.SpreadSnapshot) error
	WriteMetrics(v any) error
}

// MetricsRecord 周期指标记录（写入 metrics.jsonl）
type MetricsRecord struct {
	TsUnixNs  int64              `json:"ts_unix_ns"`
	Selection string             `json:"selection"`
	Messages  int64              `json:"messages"`
	Snapshots int64              `json:"snapshots"`
	Decisions int64              `json:"decisions"`
	Samples   int                `json:"samples"`
	Band      model.GaussianBand `json:"band"`
	GapA      gap.Stats          `json:"gap_a"`
	GapB      gap.Stats          `json:"gap_b"`
	// AgeAMs / AgeBMs 距该侧最近一次写入的毫秒数，从未写入为 -1
	AgeAMs    int64              `json:"age_a_ms"`
	AgeBMs    int64              `json:"age_b_ms"`
}

// Aggregator 价差聚合器
type Aggregator struct {
	interval        time.Duration
	metricsInterval time.Duration

	control ControlReader
	sub     Subscriber
	out     Output
	logger  *zap.Logger

	prices *store.Store
	gaps   *gap.Tracker

	// engine 只由快照 goroutine 访问
	engine *signal.Engine

	// mu 保护 sel / chA / chB（接收 goroutine 读，快照 goroutine 写）
	// 通道匹配与缓存写入在读锁内完成，配对切换时的缓存清空在写锁内完成，
	// 旧配对的消息不会在清空之后落入缓存。
	mu      sync.RWMutex
	sel     model.RoutingSelection
	haveSel bool
	chA     string
	chB     string

	// resubscribe 订阅中断后的重建退避
	resubscribe *backoff.Backoff

	ready     chan struct{}
	readyOnce sync.Once

	messages  int64
	snapshots int64
	decisions int64
}

// New 创建聚合器
// 参数 cfg: 应用配置（使用 aggregator / signal / output 段）
// 参数 control: 控制存储
// 参数 sub: 总线订阅
// 参数 out: 输出
// 参数 logger: 日志记录器
func New(cfg *config.Config, control ControlReader, sub Subscriber, out Output, logger *zap.Logger) *Aggregator {
	interval := time.Duration(cfg.Aggregator.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return &Aggregator{
		interval:        interval,
		metricsInterval: time.Duration(cfg.Output.MetricsIntervalMs) * time.Millisecond,
		control:         control,
		sub:             sub,
		out:             out,
		logger:          logger.Named("aggregator"),
		prices:          store.New(),
		gaps:            gap.NewTracker(cfg.Aggregator.GapWindowSize),
		engine:          signal.NewEngine(cfg.Signal),
		resubscribe:     backoff.NewDefault(),
		ready:           make(chan struct{}),
	}
}

// Ready 首次订阅确认后关闭
func (a *Aggregator) Ready() <-chan struct{} {
	return a.ready
}

// Channels 当前配对的两个通道
func (a *Aggregator) Channels() (chA, chB string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chA, a.chB
}

// Run 运行聚合器，直到 ctx 取消
func (a *Aggregator) Run(ctx context.Context) error {
	a.refreshSelection(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.receiveLoop(ctx)
	}()
	defer wg.Wait()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var metricsC <-chan time.Time
	if a.metricsInterval > 0 {
		mt := time.NewTicker(a.metricsInterval)
		defer mt.Stop()
		metricsC = mt.C
	}

	a.logger.Info("聚合器启动", zap.Duration("interval", a.interval))
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("聚合器已停止")
			return nil
		case now := <-ticker.C:
			a.Step(ctx, now)
		case now := <-metricsC:
			a.writeMetrics(now)
		}
	}
}

// receiveLoop 维持总线订阅，断开后指数退避重建
func (a *Aggregator) receiveLoop(ctx context.Context) {
	bo := a.resubscribe
	for ctx.Err() == nil {
		err := a.sub.Listen(ctx, func() {
			bo.Reset()
			a.readyOnce.Do(func() { close(a.ready) })
			a.logger.Info("已订阅行情通道", zap.String("pattern", bus.Pattern))
		}, a.HandleMessage)
		if ctx.Err() != nil {
			return
		}

		delay := bo.Next()
		a.logger.Warn("行情订阅中断，准备重建", zap.Error(err), zap.Duration("delay", delay))
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// HandleMessage 处理一条总线消息，只保留当前配对的两个通道
func (a *Aggregator) HandleMessage(m bus.Message) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.haveSel || (m.Channel != a.chA && m.Channel != a.chB) {
		return
	}

	atomic.AddInt64(&a.messages, 1)
	a.prices.Update(m.Channel, m.Price, m.ReceivedAtUnixNs)
	a.gaps.Observe(m.Channel, m.ReceivedAtUnixNs)
}

// Step 生成一个周期的快照
// 返回: 快照与是否产生（选择不完整或任一侧从未有价格时不产生）
func (a *Aggregator) Step(ctx context.Context, now time.Time) (model.SpreadSnapshot, bool) {
	a.refreshSelection(ctx)

	a.mu.RLock()
	sel := a.sel
	chA, chB := a.chA, a.chB
	ok := a.haveSel && chA != ""
	a.mu.RUnlock()
	if !ok {
		return model.SpreadSnapshot{}, false
	}

	quotes := a.prices.Snapshot(chA, chB)
	qa, qb := quotes[0], quotes[1]
	if !qa.Fresh && qa.Known {
		metrics.SnapshotStale.WithLabelValues("a").Inc()
	}
	if !qb.Fresh && qb.Known {
		metrics.SnapshotStale.WithLabelValues("b").Inc()
	}
	if !qa.Known || !qb.Known {
		a.logger.Debug("等待两侧价格", zap.Bool("a_known", qa.Known), zap.Bool("b_known", qb.Known))
		return model.SpreadSnapshot{}, false
	}

	decision := a.engine.PutPrices(qa.Price, qb.Price)
	spread, spreadPct := model.ComputeSpread(qa.Price, qb.Price)
	snap := model.SpreadSnapshot{
		TsUnixNs:  now.UnixNano(),
		A:         qa,
		B:         qb,
		Spread:    spread,
		SpreadPct: spreadPct,
		Decision:  decision,
	}
	atomic.AddInt64(&a.snapshots, 1)

	metrics.SnapshotPrice.WithLabelValues("a").Set(qa.Price)
	metrics.SnapshotPrice.WithLabelValues("b").Set(qb.Price)
	metrics.SpreadPct.Set(spreadPct)

	if err := a.out.WriteSnapshot(snap); err != nil {
		a.logger.Warn("写入快照失败", zap.Error(err))
	}
	a.logger.Debug("价差快照",
		zap.Float64("price_a", qa.Price),
		zap.Float64("price_b", qb.Price),
		zap.Float64("spread", spread),
		zap.Float64("spread_pct", spreadPct))

	if !decision.IsNone() {
		a.emitDecision(sel, qa.Price, qb.Price, decision, now)
	}
	return snap, true
}

func (a *Aggregator) emitDecision(sel model.RoutingSelection, priceA, priceB float64, d model.Decision, now time.Time) {
	ratio, _ := signal.Ratio(priceA, priceB)
	rec := model.DecisionRecord{
		ID:         uuid.NewString(),
		ExchangeA:  sel.ExchangeA,
		ExchangeB:  sel.ExchangeB,
		Symbol:     sel.PrimarySymbol(),
		Action:     d.Action,
		Direction:  d.Direction,
		PriceA:     priceA,
		PriceB:     priceB,
		Ratio:      ratio,
		Band:       a.engine.Band(),
		DetectedAt: now,
	}
	action, direction := d.Pair()
	atomic.AddInt64(&a.decisions, 1)
	metrics.Decisions.WithLabelValues(string(action), string(direction)).Inc()

	if err := a.out.WriteDecision(rec); err != nil {
		a.logger.Warn("写入决策失败", zap.Error(err))
	}
	a.logger.Info("信号决策",
		zap.String("id", rec.ID),
		zap.String("action", string(action)),
		zap.String("direction", string(direction)),
		zap.Float64("ratio", ratio),
		zap.Float64("mean", rec.Band.Mean),
		zap.Float64("std", rec.Band.Std))
}

// refreshSelection 读取路由选择，配对通道变化时清空价格缓存与信号窗口
// 读取失败保持当前配对。
func (a *Aggregator) refreshSelection(ctx context.Context) {
	sel, err := a.control.Selection(ctx)
	if err != nil {
		a.logger.Debug("读取路由选择失败，保持当前配对", zap.Error(err))
		return
	}

	var chA, chB string
	if sel.IsComplete() {
		chA = bus.ChannelName(sel.ExchangeA, sel.PrimarySymbol())
		chB = bus.ChannelName(sel.ExchangeB, sel.PrimarySymbol())
	}

	a.mu.Lock()
	if a.haveSel && a.sel.Equal(sel) {
		a.mu.Unlock()
		return
	}
	prev := a.sel
	pairChanged := !a.haveSel || chA != a.chA || chB != a.chB
	a.sel = sel.Clone()
	a.haveSel = true
	a.chA, a.chB = chA, chB
	if pairChanged {
		a.prices.Reset()
		a.gaps.Reset()
	}
	a.mu.Unlock()

	if !pairChanged {
		return
	}
	a.engine.Reset()
	a.logger.Info("配对通道变化",
		zap.String("before", prev.String()),
		zap.String("after", sel.String()),
		zap.String("channel_a", chA),
		zap.String("channel_b", chB))
}

func (a *Aggregator) writeMetrics(now time.Time) {
	a.mu.RLock()
	sel := a.sel.String()
	chA, chB := a.chA, a.chB
	a.mu.RUnlock()

	rec := MetricsRecord{
		TsUnixNs:  now.UnixNano(),
		Selection: sel,
		Messages:  atomic.LoadInt64(&a.messages),
		Snapshots: atomic.LoadInt64(&a.snapshots),
		Decisions: atomic.LoadInt64(&a.decisions),
		Samples:   a.engine.Len(),
		Band:      a.engine.Band(),
		GapA:      a.gaps.Stats(chA),
		GapB:      a.gaps.Stats(chB),
		AgeAMs:    ageMs(now, a.prices.LastUpdate(chA)),
		AgeBMs:    ageMs(now, a.prices.LastUpdate(chB)),
	}
	if err := a.out.WriteMetrics(rec); err != nil {
		a.logger.Warn("写入指标失败", zap.Error(err))
	}
}

func ageMs(now time.Time, lastNs int64) int64 {
	if lastNs == 0 {
		return -1
	}
	return timeutil.NanoToMs(now.UnixNano() - lastNs)
}
