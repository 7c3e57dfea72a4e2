package protocol

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/bujia-iot/multiverse-display/pkg/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Outcome 一次命令执行的结果
type Outcome struct {
	Command  Command
	Status   string // 显示在屏幕上的状态行
	Err      error
	Terminal bool // 重启类命令，之后会话不再处理数据
}

// Dispatcher 执行完整帧
type Dispatcher interface {
	Dispatch(ctx context.Context, frame Frame) Outcome
}

// StatusPrinter 状态行输出
type StatusPrinter interface {
	Print(line string)
}

// SessionHandler 传输层事件接口，TCP、串口等传输共用
type SessionHandler interface {
	OnConnect(ctx context.Context)
	OnData(ctx context.Context, chunk []byte)
	OnError(err error)
	OnClose()
}

// Session 一个传输连接的协议会话，独占一个解码器，按字节顺序分发命令
type Session struct {
	id        string
	transport string
	remote    string
	createdAt time.Time

	mu         sync.Mutex
	decoder    *FrameDecoder
	dispatcher Dispatcher
	status     StatusPrinter
	sink       func(line string)
	metrics    *metrics.CommandMetrics
	terminated bool

	frames     atomic.Int64
	frameErrs  atomic.Int64
	bytesTotal atomic.Int64
}

// SessionOption 会话可选项
type SessionOption func(*Session)

// WithStatusSink 状态行额外回写到传输端（串口）
func WithStatusSink(sink func(line string)) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// WithMetrics 替换指标实例
func WithMetrics(m *metrics.CommandMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithRemote 记录对端地址
func WithRemote(remote string) SessionOption {
	return func(s *Session) { s.remote = remote }
}

// NewSession 创建会话
func NewSession(transport string, maxBuffer int, dispatcher Dispatcher, status StatusPrinter, opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.NewString(),
		transport:  transport,
		createdAt:  time.Now(),
		decoder:    NewFrameDecoder(maxBuffer),
		dispatcher: dispatcher,
		status:     status,
		metrics:    metrics.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID 会话ID
func (s *Session) ID() string { return s.id }

// Transport 传输类型
func (s *Session) Transport() string { return s.transport }

// Remote 对端地址
func (s *Session) Remote() string { return s.remote }

// Terminated 是否已执行重启类命令
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Stats 会话统计
func (s *Session) Stats() (frames, frameErrors, bytes int64) {
	return s.frames.Load(), s.frameErrs.Load(), s.bytesTotal.Load()
}

func (s *Session) log() *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"sessionID": s.id,
		"transport": s.transport,
		"remote":    s.remote,
	})
}

// OnConnect 实现SessionHandler接口
func (s *Session) OnConnect(_ context.Context) {
	s.log().Info("客户端已连接")
	s.report("Client connected")
}

// OnData 实现SessionHandler接口
func (s *Session) OnData(ctx context.Context, chunk []byte) {
	s.Process(ctx, chunk)
}

// Process 解码数据块并依次分发完整帧，返回每个帧或帧错误对应的结果
func (s *Session) Process(ctx context.Context, chunk []byte) []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil
	}
	s.bytesTotal.Add(int64(len(chunk)))
	s.metrics.AddBytes(len(chunk))
	logger.HexDump("收到原始数据", chunk)

	var outcomes []Outcome
	for _, ev := range s.decoder.Feed(chunk) {
		if ev.Err != nil {
			s.frameErrs.Add(1)
			s.metrics.RecordFrameError(errors.CodeOf(ev.Err).String())
			line := StatusForError(ev.Err)
			s.log().WithField("error", ev.Err.Error()).Warn("帧解析失败")
			s.report(line)
			outcomes = append(outcomes, Outcome{Status: line, Err: ev.Err})
			continue
		}

		s.frames.Add(1)
		out := s.dispatcher.Dispatch(ctx, *ev.Frame)
		if s.sink != nil && out.Status != "" {
			s.sink(out.Status)
		}
		outcomes = append(outcomes, out)

		if out.Terminal {
			s.terminated = true
			s.decoder.Reset()
			s.log().WithField("command", out.Command.String()).Info("会话已终止")
			break
		}
	}
	return outcomes
}

// OnError 实现SessionHandler接口
func (s *Session) OnError(err error) {
	s.log().WithField("error", err.Error()).Error("传输错误")
	s.report(fmt.Sprintf("%s error: %v", s.transport, err))
}

// OnClose 实现SessionHandler接口，无条件清空接收状态
func (s *Session) OnClose() {
	s.mu.Lock()
	s.decoder.Reset()
	s.mu.Unlock()

	frames, errs, total := s.Stats()
	s.log().WithFields(logrus.Fields{
		"frames":   frames,
		"errors":   errs,
		"bytes":    total,
		"duration": time.Since(s.createdAt).String(),
	}).Info("客户端已断开")
	s.report("Client disconnected")
}

func (s *Session) report(line string) {
	if s.status != nil {
		s.status.Print(line)
	}
	if s.sink != nil {
		s.sink(line)
	}
}

// StatusForError 帧错误对应的状态行
func StatusForError(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrInvalidFraming:
		return "Invalid message prefix"
	case errors.ErrUnknownCommand:
		return "Unknown command"
	case errors.ErrBufferOverflow:
		return "Payload too large"
	case errors.ErrMalformedPayload:
		return "Malformed key-value command"
	case errors.ErrDecompressionFailure:
		return "Decompression failed"
	case errors.ErrStorageFull:
		return "Config store full"
	case errors.ErrStorageWriteFailed:
		return "Flash write failed"
	}
	return "Error: " + err.Error()
}
