package model

import (
	"time"
)

// Action 信号动作
type Action string

const (
	// ActionNone 无决策
	ActionNone Action = ""
	// ActionEnter 入场
	ActionEnter Action = "enter"
	// ActionExit 离场
	ActionExit Action = "exit"
)

// Direction 价差方向
type Direction string

const (
	// DirectionNone 无方向
	DirectionNone Direction = ""
	// DirectionLongAShortB 做多 A、做空 B（A 相对 B 偏便宜）
	DirectionLongAShortB Direction = "longA_shortB"
	// DirectionShortALongB 做空 A、做多 B（A 相对 B 偏贵）
	DirectionShortALongB Direction = "shortA_longB"
)

// Region 比率相对高斯带的位置
type Region int

const (
	// RegionInside 带内
	RegionInside Region = 0
	// RegionBelow 低于下沿
	RegionBelow Region = 1
	// RegionAbove 高于上沿
	RegionAbove Region = 2
)

// String 返回区域名称
func (r Region) String() string {
	switch r {
	case RegionBelow:
		return "below"
	case RegionAbove:
		return "above"
	default:
		return "inside"
	}
}

// GaussianBand 滚动窗口的高斯拟合结果（总体标准差）
type GaussianBand struct {
	// Mean 均值
	Mean float64 `json:"mean"`
	// Std 总体标准差（除数为窗口长度）
	Std float64 `json:"std"`
}

// Decision 建议性信号决策
// 引擎跨调用无状态：分类持续成立时会在连续周期重复产出相同决策，由消费方自行去重。
type Decision struct {
	// Action 动作: enter / exit；为空表示无决策
	Action Action `json:"action"`
	// Direction 方向: longA_shortB / shortA_longB
	Direction Direction `json:"direction"`
}

// IsNone 判断是否为“无决策”
func (d Decision) IsNone() bool {
	return d.Action == ActionNone
}

// Pair 以 (action, direction) 元组形式返回
func (d Decision) Pair() (Action, Direction) {
	return d.Action, d.Direction
}

// DecisionRecord 决策输出记录（写入 decisions.jsonl）
type DecisionRecord struct {
	// ID 决策唯一标识
	ID string `json:"id"`
	// ExchangeA / ExchangeB / Symbol 产生决策时的路由选择
	ExchangeA string `json:"exchange_a"`
	ExchangeB string `json:"exchange_b"`
	Symbol    string `json:"symbol"`
	// Action / Direction 决策内容
	Action    Action    `json:"action"`
	Direction Direction `json:"direction"`
	// PriceA / PriceB 快照价格
	PriceA float64 `json:"price_a"`
	PriceB float64 `json:"price_b"`
	// Ratio 相对价差 (A-B)/B
	Ratio float64 `json:"ratio"`
	// Band 决策时的高斯带
	Band GaussianBand `json:"band"`
	// DetectedAt 检测时间
	DetectedAt time.Time `json:"detected_at"`
}
