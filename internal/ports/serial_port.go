package ports

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/config"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/bujia-iot/multiverse-display/pkg/protocol"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const serialReadBufferSize = 4096

// SerialOpener 打开串口，测试时可替换
type SerialOpener func(name string, mode *serial.Mode) (serial.Port, error)

// SerialTransport USB串口传输，状态行以换行结尾回写给主机
type SerialTransport struct {
	cfg        config.SerialConfig
	open       SerialOpener
	newSession SessionFactory
}

// NewSerialTransport 创建串口传输
func NewSerialTransport(cfg config.SerialConfig, factory SessionFactory) *SerialTransport {
	return &SerialTransport{cfg: cfg, open: serial.Open, newSession: factory}
}

// SetOpener 替换串口打开函数
func (t *SerialTransport) SetOpener(open SerialOpener) {
	t.open = open
}

// Run 打开串口并处理数据直到 ctx 取消或串口出错
func (t *SerialTransport) Run(ctx context.Context) error {
	port, err := t.open(t.cfg.Device, &serial.Mode{BaudRate: t.cfg.BaudRate})
	if err != nil {
		return errors.Wrap(errors.ErrTransportFailed, "open serial port "+t.cfg.Device, err)
	}
	defer port.Close()

	timeout := time.Duration(t.cfg.ReadTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		return errors.Wrap(errors.ErrTransportFailed, "set serial read timeout", err)
	}

	logger.WithFields(logrus.Fields{
		"device":   t.cfg.Device,
		"baudRate": t.cfg.BaudRate,
		"timeout":  timeout.String(),
	}).Info("串口传输启动")

	return ServeStream(ctx, "serial", port, t.newSession)
}

// ServeStream 在一个读写流上运行协议会话。
// Read 返回 0 字节表示读超时，继续等待。
func ServeStream(ctx context.Context, transport string, rw io.ReadWriter, factory SessionFactory) error {
	var writeMu sync.Mutex
	sink := func(line string) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := io.WriteString(rw, line+"\n"); err != nil {
			logger.WithFields(logrus.Fields{
				"transport": transport,
				"error":     err.Error(),
			}).Warn("状态行回写失败")
		}
	}
	session := factory(transport, protocol.WithStatusSink(sink), protocol.WithRemote(transport))
	session.OnConnect(ctx)
	defer session.OnClose()

	buf := make([]byte, serialReadBufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := rw.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			session.OnData(ctx, chunk)
			if session.Terminated() {
				return nil
			}
		}
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			session.OnError(err)
			return errors.Wrap(errors.ErrTransportFailed, transport+" read", err)
		}
	}
}
