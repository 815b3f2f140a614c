// Package jsonl 实现信号/交易/状态记录的异步 JSONL 落盘。
// 热路径的 Write 只做非阻塞投递，缓冲满时丢弃并计数；
// JSON 编码与文件 I/O 在后台 goroutine 完成。
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

type reqType int

const (
	reqWrite reqType = iota
	reqFlush
	reqClose
)

type request struct {
	typ    reqType
	record any
	done   chan error
}

// fileBufferSize 后台写入的文件缓冲区大小
const fileBufferSize = 1 << 20

// Writer 异步 JSONL 写入器
// 单条记录 = 一行 JSON。聚合器 goroutine 投递，后台 goroutine 落盘；
// 投递缓冲满时丢弃该条记录并累加丢弃计数，绝不阻塞热路径。
type Writer struct {
	// path 输出文件路径
	path string
	// ch 投递通道
	ch chan request

	// dropped 缓冲满丢弃的记录条数
	dropped atomic.Uint64
	// encodeErrs 编码/写入失败的记录条数
	encodeErrs atomic.Uint64

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewWriter 创建 JSONL 写入器
// 参数 path: 输出文件路径（目录不存在时自动创建，文件以追加模式打开）
// 参数 bufferSize: 投递缓冲条数；非正值使用默认 1000
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
		ch:   make(chan request, bufferSize),
	}

	w.wg.Add(1)
	go w.loop(f)

	return w, nil
}

// Write 异步写入一条 JSONL 记录
// 缓冲满时该条被丢弃并计入 Dropped，不阻塞调用方；
// 落盘记录允许有损，引擎状态本身不依赖这些文件。
func (w *Writer) Write(v any) error {
	if w == nil {
		return fmt.Errorf("writer 为空")
	}
	if w.closed.Load() {
		return fmt.Errorf("writer 已关闭")
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if w.closed.Load() {
		return fmt.Errorf("writer 已关闭")
	}

	select {
	case w.ch <- request{typ: reqWrite, record: v}:
	default:
		w.dropped.Add(1)
	}
	return nil
}

// Dropped 获取因缓冲满被丢弃的记录条数
func (w *Writer) Dropped() uint64 {
	if w == nil {
		return 0
	}
	return w.dropped.Load()
}

// EncodeErrors 获取编码或写入失败的记录条数
func (w *Writer) EncodeErrors() uint64 {
	if w == nil {
		return 0
	}
	return w.encodeErrs.Load()
}

// Path 获取输出文件路径
func (w *Writer) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// Flush 强制 flush 文件缓冲区（同步等待完成）
func (w *Writer) Flush() error {
	if w == nil || w.closed.Load() {
		return nil
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if w.closed.Load() {
		return nil
	}
	done := make(chan error, 1)
	w.ch <- request{typ: reqFlush, done: done}
	return <-done
}

// Close 关闭写入器（会先 flush，等待后台 goroutine 退出）
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.sendMu.Lock()
		defer w.sendMu.Unlock()
		done := make(chan error, 1)
		w.ch <- request{typ: reqClose, done: done}
		w.closeErr = <-done
		close(w.ch)
	})
	w.wg.Wait()
	return w.closeErr
}

// loop 后台落盘循环
// 持有文件独占所有权，退出时关闭文件。
func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	bw := bufio.NewWriterSize(f, fileBufferSize)

	for req := range w.ch {
		switch req.typ {
		case reqWrite:
			w.writeRecord(bw, req.record)
		case reqFlush:
			req.done <- bw.Flush()
		case reqClose:
			req.done <- bw.Flush()
			return
		}
	}
}

// writeRecord 编码并写入单条记录
// 编码或写入失败只计数，不中断循环。
func (w *Writer) writeRecord(bw *bufio.Writer, record any) {
	b, err := json.Marshal(record)
	if err != nil {
		w.encodeErrs.Add(1)
		return
	}
	if _, err := bw.Write(b); err != nil {
		w.encodeErrs.Add(1)
		return
	}
	if err := bw.WriteByte('\n'); err != nil {
		w.encodeErrs.Add(1)
	}
}
