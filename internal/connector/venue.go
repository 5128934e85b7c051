package connector

import "spread-signal-monitor/internal/core/model"

// Decoder 将交易所原始帧解码为 Tick
// 每条连接创建一个新实例；实现可以在实例内保存跨帧状态（如上一笔价格），
// 但只被该连接的读取循环调用。
type Decoder interface {
	// Decode 解码一帧，心跳/订阅确认等非行情帧返回空列表
	Decode(raw []byte) ([]model.Tick, error)
}

// Venue 交易所接入描述
// 连接器引擎只依赖该接口，重连、控制轮询、心跳调度由引擎统一处理。
type Venue interface {
	// Name 交易所标识
	Name() string
	// Endpoint 根据基础地址与交易对生成连接地址（部分交易所在 URL 中携带订阅）
	Endpoint(baseURL string, symbols []string) (string, error)
	// SubscribeFrames 建连后发送的订阅帧，可以为空
	SubscribeFrames(symbols []string) ([][]byte, error)
	// Heartbeat 应用层心跳帧；返回 nil 表示使用协议层 ping
	Heartbeat() []byte
	// NewDecoder 为一条新连接创建解码器
	NewDecoder() Decoder
}
