// Package gap 统计总线通道上相邻 Tick 的到达间隔。
// 聚合器按通道记录，用于判断沿用价格时某一侧的行情是否真的断流。
package gap

import (
	"sort"
	"sync"
)

// Stats 到达间隔统计快照（滚动窗口，单位毫秒）
type Stats struct {
	// Channel 总线通道名
	Channel string `json:"channel"`
	// Count 累计间隔样本数
	Count int64 `json:"count"`
	// P50Ms 间隔 P50
	P50Ms float64 `json:"p50_ms"`
	// P90Ms 间隔 P90
	P90Ms float64 `json:"p90_ms"`
	// P99Ms 间隔 P99
	P99Ms float64 `json:"p99_ms"`
	// MaxMs 窗口内最大间隔
	MaxMs float64 `json:"max_ms"`
}

type rollingWindow struct {
	size  int
	buf   []int64
	pos   int
	count int64
	full  bool
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, buf: make([]int64, 0, size)}
}

func (w *rollingWindow) add(v int64) {
	w.count++
	if w.size <= 0 {
		return
	}

	if !w.full {
		w.buf = append(w.buf, v)
		if len(w.buf) == w.size {
			w.full = true
			w.pos = 0
		}
		return
	}

	w.buf[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}
}

// quantiles 返回指定分位数（最近邻取整），窗口为空时全部为 0
func (w *rollingWindow) quantiles(qs ...float64) []int64 {
	values := make([]int64, len(qs))
	if len(w.buf) == 0 {
		return values
	}

	tmp := make([]int64, len(w.buf))
	copy(tmp, w.buf)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	n := len(tmp)
	for i, q := range qs {
		switch {
		case q <= 0:
			values[i] = tmp[0]
		case q >= 1:
			values[i] = tmp[n-1]
		default:
			values[i] = tmp[int(float64(n-1)*q)]
		}
	}
	return values
}

type channelTracker struct {
	lastNs int64
	win    *rollingWindow
}

// Tracker 按通道统计到达间隔
// 接收 goroutine 调用 Observe，快照 goroutine 调用 Stats，内部加锁。
type Tracker struct {
	mu         sync.Mutex
	windowSize int
	channels   map[string]*channelTracker
}

// NewTracker 创建间隔追踪器
// 参数 windowSize: 每个通道的滚动窗口大小
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Tracker{
		windowSize: windowSize,
		channels:   make(map[string]*channelTracker, 2),
	}
}

// Observe 记录一次到达
// 参数 channel: 总线通道名
// 参数 arrivedNs: 到达时间（纳秒）；乱序到达（早于上次）的样本被忽略
func (t *Tracker) Observe(channel string, arrivedNs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ct, ok := t.channels[channel]
	if !ok {
		t.channels[channel] = &channelTracker{lastNs: arrivedNs, win: newRollingWindow(t.windowSize)}
		return
	}
	if arrivedNs < ct.lastNs {
		return
	}
	ct.win.add(arrivedNs - ct.lastNs)
	ct.lastNs = arrivedNs
}

// Stats 获取指定通道的统计快照（未知通道返回零值）
func (t *Tracker) Stats(channel string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	ct, ok := t.channels[channel]
	if !ok {
		return Stats{Channel: channel}
	}

	qs := ct.win.quantiles(0.50, 0.90, 0.99, 1)
	return Stats{
		Channel: channel,
		Count:   ct.win.count,
		P50Ms:   float64(qs[0]) / 1_000_000.0,
		P90Ms:   float64(qs[1]) / 1_000_000.0,
		P99Ms:   float64(qs[2]) / 1_000_000.0,
		MaxMs:   float64(qs[3]) / 1_000_000.0,
	}
}

// Reset 清空所有通道（交易对切换时调用）
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = make(map[string]*channelTracker, 2)
}
