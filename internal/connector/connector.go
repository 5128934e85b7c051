// Package connector 实现可在运行时重新配置的交易所连接器引擎。
// 每个交易所一个实例：维持零或一条 WebSocket 连接，把解码后的 Tick 发布到总线，
// 并在每一帧到达时比对控制存储中的路由选择，发现变化立即断开重连。
package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/metrics"
	"spread-signal-monitor/internal/util/backoff"
	"spread-signal-monitor/internal/util/timeutil"
)

// ErrReconfigured 连接因路由选择变化被主动断开
var ErrReconfigured = errors.New("路由选择已变化")

// Options 连接器运行参数
type Options struct {
	// URL 交易所 WebSocket 基础地址
	URL string
	// ProxyURL 出站代理，为空表示读取环境变量
	ProxyURL string
	// InitialSymbols 首次成功读取控制存储前使用的交易对
	InitialSymbols []string
	// ReconnectDelay 连接结束后的固定等待
	ReconnectDelay time.Duration
	// IdleInterval 非活跃时的轮询间隔
	IdleInterval time.Duration
	// HandshakeTimeout 握手超时
	HandshakeTimeout time.Duration
	// PingInterval 心跳间隔，0 表示不发送
	PingInterval time.Duration
	// ReadTimeout 读取超时，0 表示不设置
	ReadTimeout time.Duration
}

// OptionsFromConfig 从配置生成指定交易所的运行参数
func OptionsFromConfig(cfg *config.Config, exchange string) Options {
	ex, _ := cfg.Exchange(exchange)
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Options{
		URL:              ex.URL,
		ProxyURL:         cfg.Connectors.ProxyURL,
		InitialSymbols:   ex.InitialSymbols,
		ReconnectDelay:   ms(cfg.Connectors.ReconnectDelayMs),
		IdleInterval:     ms(cfg.Connectors.IdleIntervalMs),
		HandshakeTimeout: ms(cfg.Connectors.HandshakeTimeoutMs),
		PingInterval:     ms(ex.PingIntervalMs),
		ReadTimeout:      ms(ex.ReadTimeoutMs),
	}
}

// Connector 通用连接器引擎
type Connector struct {
	venue   Venue
	control ControlReader
	pub     Publisher
	opts    Options
	logger  *zap.Logger
	dialer  *websocket.Dialer

	// mu 保护 state / cached / haveCached
	mu         sync.Mutex
	state      model.ConnectorState
	cached     model.RoutingSelection
	haveCached bool

	// connMu 保护 conn；writeMu 串行化写入（gorilla/websocket 不允许并发写）
	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	reconnect *backoff.Backoff

	stopped  int32
	stopCh   chan struct{}
	stopOnce sync.Once

	reconnectCount    int64
	reconfigureCount  int64
	decodeErrCount    int64
	publishErrCount   int64
	ticksPublished    int64
	lastMsgTime       int64
	lastDecodeErrLog  int64
	lastPublishErrLog int64
}

// New 创建连接器
// 参数 venue: 交易所接入描述
// 参数 control: 控制存储
// 参数 pub: 总线发布者
// 参数 opts: 运行参数
// 参数 logger: 日志记录器
func New(venue Venue, control ControlReader, pub Publisher, opts Options, logger *zap.Logger) (*Connector, error) {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("解析代理地址失败: %w", err)
		}
		dialer.Proxy = http.ProxyURL(u)
	}

	name := venue.Name()
	initial := append([]string(nil), opts.InitialSymbols...)
	return &Connector{
		venue:   venue,
		control: control,
		pub:     pub,
		opts:    opts,
		logger:  logger.Named(name),
		dialer:  dialer,
		state: model.ConnectorState{
			Exchange: name,
			Active:   len(initial) > 0,
			Symbols:  initial,
		},
		reconnect: backoff.NewFixed(opts.ReconnectDelay),
		stopCh:    make(chan struct{}),
	}, nil
}

// Name 交易所标识
func (c *Connector) Name() string {
	return c.venue.Name()
}

// State 返回连接器状态拷贝
func (c *Connector) State() model.ConnectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Symbols = append([]string(nil), c.state.Symbols...)
	return st
}

// ShouldRun 读取路由选择并刷新自身状态
// 本交易所是 A 侧或 B 侧时返回 true；非活跃时清空交易对。
// 读取失败时保持现有状态（视为未变化）。
func (c *Connector) ShouldRun(ctx context.Context) bool {
	sel, err := c.control.Selection(ctx)
	if err != nil {
		c.logger.Warn("读取路由选择失败，保持当前状态", zap.Error(err))
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.state.Active
	}
	return c.apply(sel)
}

// apply 用读取到的路由选择覆盖本地状态
func (c *Connector) apply(sel model.RoutingSelection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.venue.Name()
	active := sel.Involves(name)
	var symbols []string
	if active {
		symbols = append([]string(nil), sel.Symbols...)
	}

	if c.state.Active != active {
		c.logger.Info("连接器活跃状态变化",
			zap.Bool("active", active),
			zap.String("selection", sel.String()))
	}

	c.state = model.ConnectorState{Exchange: name, Active: active, Symbols: symbols}
	c.cached = sel.Clone()
	c.haveCached = true

	if active {
		metrics.ConnectorActive.WithLabelValues(name).Set(1)
	} else {
		metrics.ConnectorActive.WithLabelValues(name).Set(0)
	}
	return active
}

// selectionChanged 比较控制存储与本地缓存
// 读取失败视为未变化。
func (c *Connector) selectionChanged(ctx context.Context) (bool, model.RoutingSelection) {
	sel, err := c.control.Selection(ctx)
	if err != nil {
		return false, model.RoutingSelection{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveCached && c.cached.Equal(sel) {
		return false, sel
	}
	// 尚无缓存（启动时控制存储不可读）按初始状态比较
	if !c.haveCached && sel.Involves(c.state.Exchange) && symbolsEqual(sel.Symbols, c.state.Symbols) {
		return false, sel
	}
	return true, sel
}

// RunOnce 建立一条连接并处理帧直到连接结束
// 没有需要负责的交易对时立即返回 nil（调用方进入空闲等待）。
// 连接结束一律返回错误：I/O 错误、远端关闭，或路由变化（ErrReconfigured）。
func (c *Connector) RunOnce(ctx context.Context) error {
	c.mu.Lock()
	symbols := append([]string(nil), c.state.Symbols...)
	c.mu.Unlock()

	if len(symbols) == 0 {
		return nil
	}

	endpoint, err := c.venue.Endpoint(c.opts.URL, symbols)
	if err != nil {
		return fmt.Errorf("生成连接地址失败: %w", err)
	}

	header := http.Header{}
	header.Set("User-Agent", "spread-signal-monitor/1.0")

	conn, _, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("连接 %s WebSocket 失败: %w", c.venue.Name(), err)
	}
	if !c.setConn(conn) {
		conn.Close()
		return nil
	}
	defer c.closeConn()

	c.logger.Info("WebSocket 连接成功", zap.String("url", endpoint), zap.Strings("symbols", symbols))

	frames, err := c.venue.SubscribeFrames(symbols)
	if err != nil {
		return fmt.Errorf("构建订阅请求失败: %w", err)
	}
	for _, f := range frames {
		if err := c.write(conn, websocket.TextMessage, f); err != nil {
			return fmt.Errorf("发送订阅请求失败: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// ctx 取消时强制关闭连接，解除 ReadMessage 阻塞
		<-runCtx.Done()
		conn.Close()
	}()
	if c.opts.PingInterval > 0 {
		go c.heartbeatLoop(runCtx, conn)
	}

	dec := c.venue.NewDecoder()
	for {
		if c.opts.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isStopped() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("读取 %s 消息失败: %w", c.venue.Name(), err)
		}
		atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())

		if err := c.OnFrame(ctx, dec, data); err != nil {
			return err
		}
	}
}

// OnFrame 处理一帧
// 先比对路由选择：有任何变化立即关闭连接并返回 ErrReconfigured，不解码该帧。
// 解码失败只记录（采样）并跳过，不断开连接。
func (c *Connector) OnFrame(ctx context.Context, dec Decoder, raw []byte) error {
	if changed, sel := c.selectionChanged(ctx); changed {
		c.logger.Info("路由选择变化，断开连接",
			zap.String("before", c.cachedSelection().String()),
			zap.String("after", sel.String()))
		c.closeConn()
		atomic.AddInt64(&c.reconfigureCount, 1)
		return ErrReconfigured
	}

	ticks, err := dec.Decode(raw)
	if err != nil {
		atomic.AddInt64(&c.decodeErrCount, 1)
		metrics.DecodeErrors.WithLabelValues(c.venue.Name()).Inc()
		c.maybeLogDecodeError(err, raw)
		return nil
	}

	for _, t := range ticks {
		if t.ObservedAtUnixNs == 0 {
			t.ObservedAtUnixNs = timeutil.NowNano()
		}
		if err := c.pub.Publish(ctx, t); err != nil {
			atomic.AddInt64(&c.publishErrCount, 1)
			metrics.PublishErrors.WithLabelValues(c.venue.Name()).Inc()
			c.maybeLogPublishError(err, t)
			continue
		}
		atomic.AddInt64(&c.ticksPublished, 1)
		metrics.TicksPublished.WithLabelValues(t.Exchange, t.Symbol).Inc()
	}
	return nil
}

// Start 监督循环，直到 Stop 或 ctx 取消
// 活跃时运行连接；连接结束后等待固定重连间隔；非活跃或无交易对时按空闲间隔轮询。
func (c *Connector) Start(ctx context.Context) {
	c.logger.Info("连接器启动")
	defer c.logger.Info("连接器已停止")

	for !c.isStopped() && ctx.Err() == nil {
		if !c.ShouldRun(ctx) {
			c.sleep(ctx, c.opts.IdleInterval)
			continue
		}

		err := c.RunOnce(ctx)
		if c.isStopped() || ctx.Err() != nil {
			return
		}
		if err == nil {
			c.sleep(ctx, c.opts.IdleInterval)
			continue
		}

		reason := "error"
		if errors.Is(err, ErrReconfigured) {
			reason = "reconfigured"
		} else {
			c.logger.Warn("连接结束", zap.Error(err))
		}
		atomic.AddInt64(&c.reconnectCount, 1)
		metrics.Reconnects.WithLabelValues(c.venue.Name(), reason).Inc()

		delay := c.reconnect.Next()
		c.logger.Info("准备重连", zap.String("reason", reason), zap.Duration("delay", delay))
		c.sleep(ctx, delay)
	}
}

// Stop 停止连接器并强制关闭当前连接
func (c *Connector) Stop() {
	c.stopOnce.Do(func() {
		atomic.StoreInt32(&c.stopped, 1)
		close(c.stopCh)
	})
	c.closeConn()
}

// Metrics 获取连接指标
func (c *Connector) Metrics() ConnectionMetrics {
	st := c.State()

	c.connMu.Lock()
	connected := c.conn != nil
	c.connMu.Unlock()

	ageMs := int64(-1)
	if last := atomic.LoadInt64(&c.lastMsgTime); last > 0 {
		ageMs = timeutil.SinceMs(last)
	}

	return ConnectionMetrics{
		Exchange:          st.Exchange,
		Active:            st.Active,
		Connected:         connected,
		ReconnectCount:    atomic.LoadInt64(&c.reconnectCount),
		ReconfigureCount:  atomic.LoadInt64(&c.reconfigureCount),
		DecodeErrorCount:  atomic.LoadInt64(&c.decodeErrCount),
		PublishErrorCount: atomic.LoadInt64(&c.publishErrCount),
		TicksPublished:    atomic.LoadInt64(&c.ticksPublished),
		LastMessageAgeMs:  ageMs,
	}
}

// heartbeatLoop 心跳循环
func (c *Connector) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	frame := c.venue.Heartbeat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var err error
			if frame == nil {
				c.writeMu.Lock()
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				c.writeMu.Unlock()
			} else {
				err = c.write(conn, websocket.TextMessage, frame)
			}
			if err != nil {
				c.logger.Debug("发送心跳失败", zap.Error(err))
				return
			}
		}
	}
}

func (c *Connector) write(conn *websocket.Conn, typ int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(typ, data)
}

// setConn 保存当前连接；已停止时返回 false
func (c *Connector) setConn(conn *websocket.Conn) bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.isStopped() {
		return false
	}
	c.conn = conn
	c.reconnect.Reset()
	return true
}

// closeConn 关闭连接
func (c *Connector) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Connector) cachedSelection() model.RoutingSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached.Clone()
}

func (c *Connector) isStopped() bool {
	return atomic.LoadInt32(&c.stopped) == 1
}

// sleep 等待 d，Stop 或 ctx 取消时提前返回
func (c *Connector) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-c.stopCh:
	case <-t.C:
	}
}

// maybeLogDecodeError 采样记录解码错误原始消息，避免刷盘
// 采样策略：每 100 次错误记录 1 条，且至少间隔 1 分钟。
func (c *Connector) maybeLogDecodeError(err error, data []byte) {
	count := atomic.LoadInt64(&c.decodeErrCount)
	if count%100 != 1 {
		return
	}
	if !c.allowLog(&c.lastDecodeErrLog) {
		return
	}

	sample := data
	if len(sample) > 200 {
		sample = sample[:200]
	}
	c.logger.Warn("解码消息失败（采样）", zap.Error(err), zap.Int64("count", count), zap.ByteString("data", sample))
}

// maybeLogPublishError 发布失败日志限流（每分钟一条）
func (c *Connector) maybeLogPublishError(err error, t model.Tick) {
	if !c.allowLog(&c.lastPublishErrLog) {
		return
	}
	c.logger.Warn("发布行情失败", zap.Error(err), zap.String("symbol", t.Symbol))
}

func (c *Connector) allowLog(lastNs *int64) bool {
	nowNs := timeutil.NowNano()
	last := atomic.LoadInt64(lastNs)
	if last > 0 && nowNs-last < int64(time.Minute) {
		return false
	}
	return atomic.CompareAndSwapInt64(lastNs, last, nowNs)
}

func symbolsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
