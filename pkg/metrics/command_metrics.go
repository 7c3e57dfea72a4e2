package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
)

// CommandMetrics 命令处理指标
type CommandMetrics struct {
	mu              sync.RWMutex
	commandCounts   map[string]uint64        // 命令计数
	frameErrors     map[string]uint64        // 帧错误计数，按错误类型
	processingTimes map[string]time.Duration // 累计处理时间
	connectionCount int64                    // 当前连接数
	bytesReceived   uint64
	lastResetTime   time.Time
}

// Summary 指标快照
type Summary struct {
	CommandCounts      map[string]uint64 `json:"commandCounts"`
	FrameErrorCounts   map[string]uint64 `json:"frameErrorCounts"`
	AvgProcessingTimes map[string]string `json:"avgProcessingTimes"`
	ConnectionCount    int64             `json:"connectionCount"`
	BytesReceived      uint64            `json:"bytesReceived"`
	TotalCommands      uint64            `json:"totalCommands"`
	TotalFrameErrors   uint64            `json:"totalFrameErrors"`
	Uptime             string            `json:"uptime"`
	LastResetTime      string            `json:"lastResetTime"`
}

var globalMetrics = New()

// New 创建独立的指标实例
func New() *CommandMetrics {
	return &CommandMetrics{
		commandCounts:   make(map[string]uint64),
		frameErrors:     make(map[string]uint64),
		processingTimes: make(map[string]time.Duration),
		lastResetTime:   time.Now(),
	}
}

// Global 获取全局指标实例
func Global() *CommandMetrics {
	return globalMetrics
}

// RecordCommand 记录一次命令执行
func (m *CommandMetrics) RecordCommand(command string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCounts[command]++
	m.processingTimes[command] += duration
}

// RecordFrameError 记录一次帧错误
func (m *CommandMetrics) RecordFrameError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameErrors[kind]++
}

// AddBytes 累计接收字节数
func (m *CommandMetrics) AddBytes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesReceived += uint64(n)
}

// ConnectionOpened 连接数加一
func (m *CommandMetrics) ConnectionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionCount++
}

// ConnectionClosed 连接数减一
func (m *CommandMetrics) ConnectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectionCount > 0 {
		m.connectionCount--
	}
}

// CommandCount 获取命令计数
func (m *CommandMetrics) CommandCount(command string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commandCounts[command]
}

// Summary 获取指标摘要
func (m *CommandMetrics) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{
		CommandCounts:      make(map[string]uint64, len(m.commandCounts)),
		FrameErrorCounts:   make(map[string]uint64, len(m.frameErrors)),
		AvgProcessingTimes: make(map[string]string, len(m.processingTimes)),
		ConnectionCount:    m.connectionCount,
		BytesReceived:      m.bytesReceived,
		Uptime:             time.Since(m.lastResetTime).Truncate(time.Second).String(),
		LastResetTime:      m.lastResetTime.Format(constants.TimeFormatDefault),
	}
	for cmd, count := range m.commandCounts {
		s.CommandCounts[cmd] = count
		s.TotalCommands += count
		if count > 0 {
			s.AvgProcessingTimes[cmd] = (m.processingTimes[cmd] / time.Duration(count)).String()
		}
	}
	for kind, count := range m.frameErrors {
		s.FrameErrorCounts[kind] = count
		s.TotalFrameErrors += count
	}
	return s
}

// Commands 已记录的命令（排序后）
func (m *CommandMetrics) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.commandCounts))
	for cmd := range m.commandCounts {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Reset 重置指标，连接数保留
func (m *CommandMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCounts = make(map[string]uint64)
	m.frameErrors = make(map[string]uint64)
	m.processingTimes = make(map[string]time.Duration)
	m.bytesReceived = 0
	m.lastResetTime = time.Now()
}
