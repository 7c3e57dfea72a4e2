package display

import (
	"sync"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Display 屏幕协作者
type Display interface {
	// Write 将原始像素复制到暂存帧，超出容量的部分截断，返回写入字节数
	Write(pixels []byte) int
	// Inflate 解压到暂存帧，失败时暂存帧保持不变
	Inflate(compressed []byte) error
	// Flush 将暂存帧提交到屏幕
	Flush()
	// Clear 清除屏幕和文本行
	Clear()
	// Print 输出一行状态文本
	Print(line string)
	// Capacity 帧缓冲区字节数
	Capacity() int
}

// Matrix LED 点阵的主机端实现：双缓冲帧 + 文本控制台
type Matrix struct {
	width  int
	height int

	mu      sync.RWMutex
	staged  []byte
	front   []byte
	flushes uint64

	lines    []string
	maxLines int
	sinks    []func(line string)
}

// NewMatrix 创建点阵，宽高为像素数
func NewMatrix(width, height int) *Matrix {
	if width <= 0 {
		width = constants.MatrixWidth
	}
	if height <= 0 {
		height = constants.MatrixHeight
	}
	size := width * height * constants.BytesPerPixel
	maxLines := height / constants.FontHeight
	if maxLines < 1 {
		maxLines = 1
	}
	return &Matrix{
		width:    width,
		height:   height,
		staged:   make([]byte, size),
		front:    make([]byte, size),
		maxLines: maxLines,
	}
}

// Width 像素宽度
func (m *Matrix) Width() int { return m.width }

// Height 像素高度
func (m *Matrix) Height() int { return m.height }

// Capacity 实现Display接口
func (m *Matrix) Capacity() int {
	return len(m.staged)
}

// AddSink 注册状态行回调
func (m *Matrix) AddSink(sink func(line string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// Write 实现Display接口
func (m *Matrix) Write(pixels []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(m.staged, pixels)
	if n < len(pixels) {
		logger.WithFields(logrus.Fields{
			"received": len(pixels),
			"capacity": len(m.staged),
		}).Warn("像素数据超出帧缓冲区，已截断")
	}
	return n
}

// Inflate 实现Display接口
func (m *Matrix) Inflate(compressed []byte) error {
	pixels, err := InflateExact(compressed, m.Capacity())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"compressed": len(compressed),
			"error":      err.Error(),
		}).Warn("压缩像素解压失败")
		return err
	}

	m.mu.Lock()
	copy(m.staged, pixels)
	m.mu.Unlock()
	return nil
}

// Flush 实现Display接口
func (m *Matrix) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.front, m.staged)
	m.flushes++
	logger.Debugf("帧已刷新, 次数: %d", m.flushes)
}

// Clear 实现Display接口
func (m *Matrix) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.staged)
	clear(m.front)
	m.lines = m.lines[:0]
}

// Print 实现Display接口，超过行数时向上滚动
func (m *Matrix) Print(line string) {
	m.mu.Lock()
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = append(m.lines[:0], m.lines[len(m.lines)-m.maxLines:]...)
	}
	sinks := append([]func(string){}, m.sinks...)
	m.mu.Unlock()

	logger.WithField("line", line).Info("屏幕状态")
	for _, sink := range sinks {
		sink(line)
	}
}

// Lines 当前屏幕上的文本行
func (m *Matrix) Lines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.lines...)
}

// Flushes 刷新次数
func (m *Matrix) Flushes() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}

// Staged 暂存帧副本
func (m *Matrix) Staged() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.staged...)
}

// Front 当前显示帧副本
func (m *Matrix) Front() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.front...)
}
