// Package config 负责加载和验证 YAML 配置文件。
// 提供连接器、聚合器、信号引擎、Redis 与输出等所有配置项。
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"spread-signal-monitor/internal/core/model"
)

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Redis 总线与控制存储使用的 Redis 配置
	Redis RedisConfig `yaml:"redis"`
	// Connectors 交易所连接器配置
	Connectors ConnectorsConfig `yaml:"connectors"`
	// Aggregator 价差聚合器配置
	Aggregator AggregatorConfig `yaml:"aggregator"`
	// Signal 信号引擎配置
	Signal SignalConfig `yaml:"signal"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
	// Metadata 合约列表 API 配置（切换路由前校验交易对）
	Metadata MetadataConfig `yaml:"metadata"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// Addr 地址，如 localhost:6379
	Addr string `yaml:"addr"`
	// Password 密码
	Password string `yaml:"password"`
	// DB 库编号
	DB int `yaml:"db"`
	// DialTimeoutMs 建连超时（毫秒）
	DialTimeoutMs int `yaml:"dial_timeout_ms"`
}

// ConnectorsConfig 连接器公共配置与各交易所配置
type ConnectorsConfig struct {
	// ReconnectDelayMs 固定重连间隔（毫秒），不做指数退避
	ReconnectDelayMs int `yaml:"reconnect_delay_ms"`
	// IdleIntervalMs 非活跃时的轮询间隔（毫秒）
	IdleIntervalMs int `yaml:"idle_interval_ms"`
	// HandshakeTimeoutMs WebSocket 握手超时（毫秒）
	HandshakeTimeoutMs int `yaml:"handshake_timeout_ms"`
	// ProxyURL 出站代理，如 socks5://127.0.0.1:1080，为空表示直连
	ProxyURL string `yaml:"proxy_url"`
	// Exchanges 各交易所 WebSocket 配置（key 为交易所标识）
	Exchanges map[string]ExchangeWSConfig `yaml:"exchanges"`
}

// ExchangeWSConfig 单个交易所的 WebSocket 配置
type ExchangeWSConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒），0 表示不设置
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	// InitialSymbols 启动时的交易对列表，首次控制轮询后以控制存储为准
	InitialSymbols []string `yaml:"initial_symbols"`
}

// AggregatorConfig 价差聚合器配置
type AggregatorConfig struct {
	// IntervalMs 快照周期（毫秒）
	IntervalMs int `yaml:"interval_ms"`
	// GapWindowSize 到达间隔统计窗口大小
	GapWindowSize int `yaml:"gap_window_size"`
}

// SignalConfig 信号引擎配置
type SignalConfig struct {
	// WindowSize 滚动窗口容量
	WindowSize int `yaml:"window_size"`
	// MinSamples 预热样本数，窗口长度小于该值时不产出决策
	MinSamples int `yaml:"min_samples"`
	// StdTimes 高斯带宽度（标准差倍数 k）
	StdTimes float64 `yaml:"std_times"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// DecisionsEnabled 是否输出决策文件
	DecisionsEnabled bool `yaml:"decisions_enabled"`
	// SnapshotsEnabled 是否输出快照文件（价差展示）
	SnapshotsEnabled bool `yaml:"snapshots_enabled"`
	// MetricsEnabled 是否输出指标文件
	MetricsEnabled bool `yaml:"metrics_enabled"`
	// MetricsIntervalMs 指标输出间隔（毫秒）
	MetricsIntervalMs int `yaml:"metrics_interval_ms"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Addr 监听地址，为空表示不启动
	Addr string `yaml:"addr"`
}

// MetadataConfig 合约列表 API 配置
type MetadataConfig struct {
	// URLs 各交易所合约列表地址（key 为交易所标识）
	URLs map[string]string `yaml:"urls"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// Default 返回仅包含默认值的配置（四家交易所使用官方公共地址）
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// defaultURLs 各交易所公共行情地址
var defaultURLs = map[string]string{
	model.ExchangeBinance: "wss://fstream.binance.com/stream",
	model.ExchangeOKX:     "wss://ws.okx.com:8443/ws/v5/public",
	model.ExchangeBybit:   "wss://stream.bybit.com/v5/public/linear",
	model.ExchangeBitget:  "wss://ws.bitget.com/v2/ws/public",
}

// defaultMetadataURLs 各交易所 USDT 永续合约列表地址
var defaultMetadataURLs = map[string]string{
	model.ExchangeBinance: "https://fapi.binance.com/fapi/v1/exchangeInfo",
	model.ExchangeOKX:     "https://www.okx.com/api/v5/public/instruments?instType=SWAP",
	model.ExchangeBybit:   "https://api.bybit.com/v5/market/instruments-info?category=linear&limit=1000",
	model.ExchangeBitget:  "https://api.bitget.com/api/v2/mix/market/contracts?productType=USDT-FUTURES",
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "spread-signal-monitor"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.DialTimeoutMs == 0 {
		c.Redis.DialTimeoutMs = 5000
	}

	if c.Connectors.ReconnectDelayMs == 0 {
		c.Connectors.ReconnectDelayMs = 5000 // 5 秒
	}
	if c.Connectors.IdleIntervalMs == 0 {
		c.Connectors.IdleIntervalMs = 1000
	}
	if c.Connectors.HandshakeTimeoutMs == 0 {
		c.Connectors.HandshakeTimeoutMs = 10000
	}
	if c.Connectors.Exchanges == nil {
		c.Connectors.Exchanges = make(map[string]ExchangeWSConfig, len(defaultURLs))
	}
	for ex, url := range defaultURLs {
		wc := c.Connectors.Exchanges[ex]
		if wc.URL == "" {
			wc.URL = url
		}
		if wc.PingIntervalMs == 0 {
			wc.PingIntervalMs = 20000
		}
		c.Connectors.Exchanges[ex] = wc
	}

	if c.Aggregator.IntervalMs == 0 {
		c.Aggregator.IntervalMs = 1000
	}
	if c.Aggregator.GapWindowSize == 0 {
		c.Aggregator.GapWindowSize = 1000
	}

	if c.Signal.WindowSize == 0 {
		c.Signal.WindowSize = 100
	}
	if c.Signal.MinSamples == 0 {
		c.Signal.MinSamples = 10
	}
	if c.Signal.StdTimes == 0 {
		c.Signal.StdTimes = 1.5
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.MetricsIntervalMs == 0 {
		c.Output.MetricsIntervalMs = 10000
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}

	if c.Metadata.TimeoutMs == 0 {
		c.Metadata.TimeoutMs = 10000 // 10 秒
	}
	if c.Metadata.URLs == nil {
		c.Metadata.URLs = make(map[string]string, len(defaultMetadataURLs))
	}
	for ex, url := range defaultMetadataURLs {
		if c.Metadata.URLs[ex] == "" {
			c.Metadata.URLs[ex] = url
		}
	}
}

// ApplyEnv 使用环境变量覆盖配置
// 参数 getenv: 环境变量读取函数（测试时可注入）
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := getenv("WS_PROXY_URL"); v != "" {
		c.Connectors.ProxyURL = v
	}
	if v := getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// Validate 验证配置合法性
// 返回: 若配置无效则返回描述性错误（汇总所有字段错误）
func (c *Config) Validate() error {
	var errs []string

	if c.Redis.Addr == "" {
		errs = append(errs, "redis.addr: Redis 地址不能为空")
	}
	if c.Redis.DB < 0 {
		errs = append(errs, "redis.db: 库编号不能为负数")
	}

	if c.Connectors.ReconnectDelayMs <= 0 {
		errs = append(errs, "connectors.reconnect_delay_ms: 重连间隔必须为正数")
	}
	if c.Connectors.IdleIntervalMs <= 0 {
		errs = append(errs, "connectors.idle_interval_ms: 空闲轮询间隔必须为正数")
	}
	if c.Connectors.HandshakeTimeoutMs < 0 {
		errs = append(errs, "connectors.handshake_timeout_ms: 握手超时不能为负数")
	}

	names := make([]string, 0, len(c.Connectors.Exchanges))
	for name := range c.Connectors.Exchanges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		wc := c.Connectors.Exchanges[name]
		if !model.IsKnownExchange(name) {
			errs = append(errs, fmt.Sprintf("connectors.exchanges.%s: 不支持的交易所", name))
			continue
		}
		if wc.URL == "" {
			errs = append(errs, fmt.Sprintf("connectors.exchanges.%s.url: WebSocket 地址不能为空", name))
		}
		if wc.PingIntervalMs < 0 {
			errs = append(errs, fmt.Sprintf("connectors.exchanges.%s.ping_interval_ms: 心跳间隔不能为负数", name))
		}
		if wc.ReadTimeoutMs < 0 {
			errs = append(errs, fmt.Sprintf("connectors.exchanges.%s.read_timeout_ms: 读取超时不能为负数", name))
		}
	}

	if c.Aggregator.IntervalMs <= 0 {
		errs = append(errs, "aggregator.interval_ms: 快照周期必须为正数")
	}
	if c.Aggregator.GapWindowSize <= 0 {
		errs = append(errs, "aggregator.gap_window_size: 统计窗口必须为正数")
	}

	if c.Signal.WindowSize <= 0 {
		errs = append(errs, "signal.window_size: 窗口容量必须为正数")
	}
	if c.Signal.MinSamples <= 0 {
		errs = append(errs, "signal.min_samples: 预热样本数必须为正数")
	}
	if c.Signal.MinSamples > c.Signal.WindowSize {
		errs = append(errs, fmt.Sprintf("signal.min_samples: 预热样本数 %d 不能超过窗口容量 %d", c.Signal.MinSamples, c.Signal.WindowSize))
	}
	if c.Signal.StdTimes <= 0 {
		errs = append(errs, "signal.std_times: 标准差倍数必须为正数")
	}

	if c.Output.MetricsIntervalMs <= 0 {
		errs = append(errs, "output.metrics_interval_ms: 指标输出间隔必须为正数")
	}
	if c.Output.BufferSize < 0 {
		errs = append(errs, "output.buffer_size: 缓冲区大小不能为负数")
	}

	if c.Metadata.TimeoutMs <= 0 {
		errs = append(errs, "metadata.timeout_ms: 请求超时必须为正数")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Exchange 获取指定交易所的 WebSocket 配置
// 返回: 配置与是否存在
func (c *Config) Exchange(name string) (ExchangeWSConfig, bool) {
	wc, ok := c.Connectors.Exchanges[name]
	return wc, ok
}
