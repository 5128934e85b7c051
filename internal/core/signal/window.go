package signal

// window 固定容量的环形窗口（单写者，由 Engine 独占）
// 写满后覆盖最旧样本。
type window struct {
	size int
	buf  []float64
	pos  int
	full bool
}

func newWindow(size int) *window {
	if size <= 0 {
		size = 1
	}
	return &window{size: size, buf: make([]float64, 0, size)}
}

func (w *window) add(v float64) {
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

func (w *window) len() int {
	return len(w.buf)
}

func (w *window) reset() {
	w.buf = w.buf[:0]
	w.pos = 0
	w.full = false
}

// values 按从旧到新的顺序返回样本拷贝
func (w *window) values() []float64 {
	out := make([]float64, 0, len(w.buf))
	if !w.full {
		return append(out, w.buf...)
	}
	out = append(out, w.buf[w.pos:]...)
	return append(out, w.buf[:w.pos]...)
}
