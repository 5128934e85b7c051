// Package signal 实现跨交易所价差的均值回归信号（滚动高斯带分类）。
package signal

import (
	"math"

	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/core/model"
)

// Engine 高斯带信号引擎
// 每个价差对应独立实例；除滚动窗口外不保存任何跨调用状态（不记录是否已持仓）。
// 非并发安全，由聚合器的快照 goroutine 独占调用。
type Engine struct {
	// cfg 信号配置
	cfg config.SignalConfig
	// win 相对价差滚动窗口
	win *window
	// band 最近一次拟合结果
	band model.GaussianBand
}

// NewEngine 创建信号引擎
// 参数 cfg: 信号配置（窗口容量、预热样本数、标准差倍数）
func NewEngine(cfg config.SignalConfig) *Engine {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 10
	}
	if cfg.StdTimes <= 0 {
		cfg.StdTimes = 1.5
	}
	return &Engine{
		cfg: cfg,
		win: newWindow(cfg.WindowSize),
	}
}

// Ratio 计算相对价差 (a - b) / b
// 返回: 比率与是否可计算（b 为 0 时不可计算）
func Ratio(priceA, priceB float64) (float64, bool) {
	if priceB == 0 {
		return 0, false
	}
	return (priceA - priceB) / priceB, true
}

// PutPrices 输入一对同步价格并返回决策
// B 侧价格为 0 时不产生样本，直接返回无决策。
func (e *Engine) PutPrices(priceA, priceB float64) model.Decision {
	r, ok := Ratio(priceA, priceB)
	if !ok {
		return model.Decision{}
	}
	return e.Observe(r)
}

// Observe 追加一个比率样本并按决策表分类
// 决策表（按顺序匹配）：
//
//	mean < 0 且 below -> enter longA_shortB
//	mean > 0 且 above -> enter shortA_longB
//	mean < 0 且 above -> exit  shortA_longB
//	mean > 0 且 below -> exit  longA_shortB
func (e *Engine) Observe(r float64) model.Decision {
	e.win.add(r)

	if e.win.len() < e.cfg.MinSamples {
		return model.Decision{}
	}

	e.band = Fit(e.win.values())
	region := Classify(r, e.band, e.cfg.StdTimes)

	switch {
	case e.band.Mean < 0 && region == model.RegionBelow:
		return model.Decision{Action: model.ActionEnter, Direction: model.DirectionLongAShortB}
	case e.band.Mean > 0 && region == model.RegionAbove:
		return model.Decision{Action: model.ActionEnter, Direction: model.DirectionShortALongB}
	case e.band.Mean < 0 && region == model.RegionAbove:
		return model.Decision{Action: model.ActionExit, Direction: model.DirectionShortALongB}
	case e.band.Mean > 0 && region == model.RegionBelow:
		return model.Decision{Action: model.ActionExit, Direction: model.DirectionLongAShortB}
	}
	return model.Decision{}
}

// Band 返回最近一次拟合的高斯带（预热期间为零值）
func (e *Engine) Band() model.GaussianBand {
	return e.band
}

// Len 返回当前窗口样本数
func (e *Engine) Len() int {
	return e.win.len()
}

// Reset 清空窗口（交易对切换时调用）
func (e *Engine) Reset() {
	e.win.reset()
	e.band = model.GaussianBand{}
}

// Fit 计算样本的均值与总体标准差（除数为样本数）
func Fit(samples []float64) model.GaussianBand {
	n := len(samples)
	if n == 0 {
		return model.GaussianBand{}
	}

	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(n)

	var ss float64
	for _, v := range samples {
		d := v - mean
		ss += d * d
	}
	return model.GaussianBand{Mean: mean, Std: math.Sqrt(ss / float64(n))}
}

// Classify 判断比率相对 [mean-k*std, mean+k*std] 的位置
// 边界严格：恰好落在边界上视为带内。
func Classify(r float64, band model.GaussianBand, k float64) model.Region {
	if r < band.Mean-band.Std*k {
		return model.RegionBelow
	}
	if r > band.Mean+band.Std*k {
		return model.RegionAbove
	}
	return model.RegionInside
}
