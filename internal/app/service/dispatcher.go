package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/display"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/bujia-iot/multiverse-display/pkg/lifecycle"
	"github.com/bujia-iot/multiverse-display/pkg/metrics"
	"github.com/bujia-iot/multiverse-display/pkg/network"
	"github.com/bujia-iot/multiverse-display/pkg/protocol"
	"github.com/sirupsen/logrus"
)

// ConfigStore 分发器使用的配置存储操作
type ConfigStore interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte) error
	Delete(key []byte) bool
	Commit(ctx context.Context) (bool, error)
	FactoryReset(ctx context.Context) error
}

// CommandDispatcher 将完整帧映射为对配置存储、屏幕和生命周期的操作。
// 每次分发恰好输出一行状态。
type CommandDispatcher struct {
	store     ConfigStore
	display   display.Display
	addrs     network.AddressProvider
	lifecycle lifecycle.Lifecycle
	metrics   *metrics.CommandMetrics

	// 重启前留给屏幕显示状态的时间
	rebootDelay time.Duration
}

// NewCommandDispatcher 创建命令分发器
func NewCommandDispatcher(store ConfigStore, disp display.Display, addrs network.AddressProvider, lc lifecycle.Lifecycle) *CommandDispatcher {
	return &CommandDispatcher{
		store:     store,
		display:   disp,
		addrs:     addrs,
		lifecycle: lc,
		metrics:   metrics.Global(),
	}
}

// SetMetrics 替换指标实例
func (d *CommandDispatcher) SetMetrics(m *metrics.CommandMetrics) {
	d.metrics = m
}

// SetRebootDelay 设置重启前的等待时间
func (d *CommandDispatcher) SetRebootDelay(delay time.Duration) {
	d.rebootDelay = delay
}

// Dispatch 实现protocol.Dispatcher接口
func (d *CommandDispatcher) Dispatch(ctx context.Context, frame protocol.Frame) protocol.Outcome {
	start := time.Now()
	out := d.execute(ctx, frame)
	d.metrics.RecordCommand(frame.Command.String(), time.Since(start))
	out.Command = frame.Command
	if out.Status == "" && out.Err != nil {
		out.Status = protocol.StatusForError(out.Err)
	}
	d.display.Print(out.Status)

	fields := logrus.Fields{
		"command":    frame.Command.String(),
		"payloadLen": len(frame.Payload),
		"status":     out.Status,
	}
	if out.Err != nil {
		fields["error"] = out.Err.Error()
		logger.WithFields(fields).Warn("命令执行失败")
	} else {
		logger.WithFields(fields).Info("命令执行完成")
	}

	if out.Terminal {
		d.finish(frame.Command)
	}
	return out
}

func (d *CommandDispatcher) execute(ctx context.Context, frame protocol.Frame) protocol.Outcome {
	switch string(frame.Command) {
	case constants.CmdReset:
		return protocol.Outcome{Status: "Resetting...", Terminal: true}

	case constants.CmdBootloader:
		return protocol.Outcome{Status: "Entering BOOTSEL mode...", Terminal: true}

	case constants.CmdFactoryReset:
		out := protocol.Outcome{Status: "Factory resetting...", Terminal: true}
		if err := d.store.FactoryReset(ctx); err != nil {
			out.Err = err
		}
		return out

	case constants.CmdClearScreen:
		d.display.Clear()
		return protocol.Outcome{Status: "Cleared display"}

	case constants.CmdSync:
		d.display.Flush()
		return protocol.Outcome{Status: "Display synchronized"}

	case constants.CmdIPv4:
		return protocol.Outcome{Status: d.addrs.IPv4()}

	case constants.CmdIPv6:
		return protocol.Outcome{Status: d.addrs.IPv6()}

	case constants.CmdStore:
		wrote, err := d.store.Commit(ctx)
		if err != nil {
			return protocol.Outcome{Err: err}
		}
		if wrote {
			return protocol.Outcome{Status: "Config written to flash"}
		}
		return protocol.Outcome{Status: "Flash already up to date"}

	case constants.CmdGet:
		key, err := protocol.ParseKey(frame.Payload)
		if err != nil {
			return protocol.Outcome{Err: err}
		}
		value, _ := d.store.Get(key)
		return protocol.Outcome{Status: fmt.Sprintf("Get %s: %s", key, value)}

	case constants.CmdSet:
		key, value, err := protocol.ParseKeyValue(frame.Payload)
		if err != nil {
			return protocol.Outcome{Err: err}
		}
		if err := d.store.Set(key, value); err != nil {
			if errors.IsErrCode(err, errors.ErrMalformedPayload) {
				return protocol.Outcome{Status: "Key or value too long", Err: err}
			}
			return protocol.Outcome{Err: err}
		}
		return protocol.Outcome{Status: fmt.Sprintf("Set %s to %s", key, value)}

	case constants.CmdDelete:
		key, err := protocol.ParseKey(frame.Payload)
		if err != nil {
			return protocol.Outcome{Err: err}
		}
		if d.store.Delete(key) {
			return protocol.Outcome{Status: fmt.Sprintf("Deleted key: %s", key)}
		}
		return protocol.Outcome{Status: fmt.Sprintf("Key not found: %s", key)}

	case constants.CmdData, constants.CmdShowData:
		d.display.Write(frame.Payload)
		return d.imageReceived(frame.Command)

	case constants.CmdZipped, constants.CmdShowZipped:
		if err := d.display.Inflate(frame.Payload); err != nil {
			return protocol.Outcome{Err: err}
		}
		return d.imageReceived(frame.Command)

	case constants.CmdPrint:
		text := printableText(frame.Payload)
		if text == "" {
			return protocol.Outcome{
				Status: "Nothing to print",
				Err:    errors.New(errors.ErrMalformedPayload, "no printable characters"),
			}
		}
		return protocol.Outcome{Status: text}

	default:
		return protocol.Outcome{Err: errors.Newf(errors.ErrUnknownCommand, "unknown command %q", frame.Command)}
	}
}

func (d *CommandDispatcher) imageReceived(cmd protocol.Command) protocol.Outcome {
	if string(cmd) == constants.CmdShowData || string(cmd) == constants.CmdShowZipped {
		d.display.Flush()
		return protocol.Outcome{Status: "Image received and updated"}
	}
	return protocol.Outcome{Status: "Image received (waiting for sync)"}
}

// finish 执行重启类命令的生命周期动作
func (d *CommandDispatcher) finish(cmd protocol.Command) {
	if d.rebootDelay > 0 {
		time.Sleep(d.rebootDelay)
	}
	reason := fmt.Sprintf("%s command", cmd)
	if string(cmd) == constants.CmdBootloader {
		d.lifecycle.RebootToBootloader(reason)
		return
	}
	d.lifecycle.Reboot(reason)
}

// printableText 截取前 MaxPrintLength 字节并只保留可打印 ASCII
func printableText(payload []byte) string {
	if len(payload) > constants.MaxPrintLength {
		payload = payload[:constants.MaxPrintLength]
	}
	var b strings.Builder
	b.Grow(len(payload))
	for _, c := range payload {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		}
	}
	return b.String()
}
