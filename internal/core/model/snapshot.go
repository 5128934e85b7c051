package model

// Quote 单个通道在某一快照周期的报价
type Quote struct {
	// Channel 总线通道名
	Channel string `json:"channel"`
	// Price 价格（本周期新值或沿用值）
	Price float64 `json:"price"`
	// Known 是否存在可用价格（新值或沿用值）
	Known bool `json:"known"`
	// Fresh 是否为本周期新到达的值
	Fresh bool `json:"fresh"`
}

// SpreadSnapshot 聚合器周期快照（写入 snapshots.jsonl，供展示使用）
type SpreadSnapshot struct {
	// TsUnixNs 快照时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// A / B 两侧报价
	A Quote `json:"a"`
	B Quote `json:"b"`
	// Spread 绝对价差 A-B
	Spread float64 `json:"spread"`
	// SpreadPct 相对 B 的价差百分比；B 为 0 时定义为 0
	SpreadPct float64 `json:"spread_pct"`
	// Decision 本周期决策（可能为空）
	Decision Decision `json:"decision"`
}

// ComputeSpread 计算绝对价差与百分比价差
// spread = a - b；spread_pct = spread / b * 100，b == 0 时为 0
func ComputeSpread(a, b float64) (spread, spreadPct float64) {
	spread = a - b
	if b == 0 {
		return spread, 0
	}
	return spread, spread / b * 100
}
