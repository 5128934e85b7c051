// Package jsonl 实现异步 JSONL 文件写入。
// 聚合器快照 goroutine 只投递记录，编码与文件 I/O 在后台 goroutine 完成。
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// ErrClosed 写入器已关闭
var ErrClosed = errors.New("writer 已关闭")

type opType int

const (
	opWrite opType = iota
	opFlush
	opClose
)

type op struct {
	typ  opType
	val  any
	done chan error
}

// Writer 异步 JSONL 写入器
type Writer struct {
	path string
	ch   chan op

	closeOnce sync.Once
	closeErr  error
	closed    int32

	// sendMu 保证关闭后不再向 ch 发送
	sendMu sync.Mutex
	wg     sync.WaitGroup

	written   int64
	encodeErr int64
}

// NewWriter 创建 JSONL 写入器（追加模式）
// 参数 path: 输出文件路径
// 参数 bufferSize: 投递缓冲区大小
func NewWriter(path string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path: path,
		ch:   make(chan op, bufferSize),
	}

	w.wg.Add(1)
	go w.loop(f)

	return w, nil
}

// Path 输出文件路径
func (w *Writer) Path() string {
	return w.path
}

// Write 投递一条记录
// 缓冲区满时阻塞；关闭后返回 ErrClosed。nil 写入器忽略写入。
func (w *Writer) Write(v any) error {
	if w == nil {
		return nil
	}
	return w.send(op{typ: opWrite, val: v})
}

// Flush 等待之前投递的记录写入文件
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	done := make(chan error, 1)
	if err := w.send(op{typ: opFlush, done: done}); err != nil {
		return nil
	}
	return <-done
}

// Written 已写入的记录数
func (w *Writer) Written() int64 {
	if w == nil {
		return 0
	}
	return atomic.LoadInt64(&w.written)
}

// EncodeErrors 因 JSON 编码失败被丢弃的记录数
func (w *Writer) EncodeErrors() int64 {
	if w == nil {
		return 0
	}
	return atomic.LoadInt64(&w.encodeErr)
}

// Close 关闭写入器（会先 flush）
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.sendMu.Lock()
		atomic.StoreInt32(&w.closed, 1)
		done := make(chan error, 1)
		w.ch <- op{typ: opClose, done: done}
		w.sendMu.Unlock()

		w.closeErr = <-done
	})
	w.wg.Wait()
	return w.closeErr
}

func (w *Writer) send(o op) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return ErrClosed
	}
	w.ch <- o
	return nil
}

func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	bw := bufio.NewWriterSize(f, 64<<10)
	reply := func(done chan error, err error) {
		if done != nil {
			done <- err
		}
	}

	for req := range w.ch {
		switch req.typ {
		case opWrite:
			b, err := json.Marshal(req.val)
			if err != nil {
				atomic.AddInt64(&w.encodeErr, 1)
				continue
			}
			b = append(b, '\n')
			if _, err := bw.Write(b); err != nil {
				continue
			}
			atomic.AddInt64(&w.written, 1)
		case opFlush:
			reply(req.done, bw.Flush())
		case opClose:
			reply(req.done, bw.Flush())
			return
		}
	}
}
