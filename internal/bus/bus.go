// Package bus 实现基于 Redis 发布/订阅的 Tick 总线。
// 通道命名: {exchange}:channel:ticker:{symbol}
// 消息体: {"last_price": <字符串或数字>}
// 投递语义: 至多一次、不持久化；同一通道内保持发布顺序。
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/util/timeutil"
)

const (
	// Pattern 聚合器使用的模式订阅
	Pattern = "*:channel:ticker:*"

	channelInfix = ":channel:ticker:"
)

// ChannelName 构造总线通道名
func ChannelName(exchange, symbol string) string {
	return exchange + channelInfix + symbol
}

// ParseChannel 从通道名解析交易所与交易对
// 返回: ok 为 false 表示不是行情通道
func ParseChannel(channel string) (exchange, symbol string, ok bool) {
	exchange, symbol, ok = strings.Cut(channel, channelInfix)
	if !ok || exchange == "" || symbol == "" {
		return "", "", false
	}
	return exchange, symbol, true
}

// Payload 总线消息体
// decimal 反序列化同时接受 "100.5" 与 100.5 两种形式。
type Payload struct {
	LastPrice decimal.Decimal `json:"last_price"`
}

// Message 从总线收到的一条行情
type Message struct {
	// Channel 原始通道名
	Channel string
	// Exchange 交易所
	Exchange string
	// Symbol 交易对
	Symbol string
	// Price 最新价格
	Price float64
	// ReceivedAtUnixNs 本机收到时间（纳秒）
	ReceivedAtUnixNs int64
}

// NewClient 创建 Redis 客户端并验证连通性
// 参数 ctx: 上下文，用于 PING
// 参数 cfg: Redis 配置
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: time.Duration(cfg.DialTimeoutMs) * time.Millisecond,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return client, nil
}

// Bus Tick 总线
type Bus struct {
	rdb    redis.UniversalClient
	logger *zap.Logger
}

// New 创建总线
// 参数 rdb: Redis 客户端（发布与订阅共用）
// 参数 logger: 日志记录器
func New(rdb redis.UniversalClient, logger *zap.Logger) *Bus {
	return &Bus{
		rdb:    rdb,
		logger: logger.Named("bus"),
	}
}

// Publish 将 Tick 发布到对应通道
func (b *Bus) Publish(ctx context.Context, tick model.Tick) error {
	if !tick.IsValid() {
		return fmt.Errorf("无效 Tick: %+v", tick)
	}

	data, err := json.Marshal(Payload{LastPrice: decimal.NewFromFloat(tick.Price)})
	if err != nil {
		return fmt.Errorf("序列化行情失败: %w", err)
	}

	if err := b.rdb.Publish(ctx, ChannelName(tick.Exchange, tick.Symbol), data).Err(); err != nil {
		return fmt.Errorf("发布行情失败: %w", err)
	}
	return nil
}

// Listen 模式订阅所有行情通道并逐条回调
// 阻塞直到 ctx 取消（返回 nil）或订阅连接出错（返回错误，由调用方决定是否重建）。
// 无法解析的消息记录日志后跳过。
// 参数 ready: 订阅确认后调用一次，可为 nil
func (b *Bus) Listen(ctx context.Context, ready func(), handle func(Message)) error {
	pubsub := b.rdb.PSubscribe(ctx, Pattern)

	// ReceiveMessage 只在截止时间或收到消息时返回，ctx 取消时需关闭订阅连接来解除阻塞
	stop := make(chan struct{})
	defer close(stop)
	defer pubsub.Close()
	go func() {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
		case <-stop:
		}
	}()

	// 等待订阅确认，保证 ready 之后发布的消息不会丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("订阅行情通道失败: %w", err)
	}
	if ready != nil {
		ready()
	}

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("接收行情失败: %w", err)
		}

		m, err := Decode(msg.Channel, []byte(msg.Payload))
		if err != nil {
			b.logger.Debug("忽略无法解析的总线消息", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		handle(m)
	}
}

// Decode 解析一条总线消息
func Decode(channel string, payload []byte) (Message, error) {
	exchange, symbol, ok := ParseChannel(channel)
	if !ok {
		return Message{}, fmt.Errorf("非行情通道: %s", channel)
	}

	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Message{}, fmt.Errorf("解析消息体失败: %w", err)
	}

	if !p.LastPrice.IsPositive() {
		return Message{}, fmt.Errorf("价格非正: %s", p.LastPrice.String())
	}

	price, _ := p.LastPrice.Float64()
	return Message{
		Channel:          channel,
		Exchange:         exchange,
		Symbol:           symbol,
		Price:            price,
		ReceivedAtUnixNs: timeutil.NowNano(),
	}, nil
}
