package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/sirupsen/logrus"
)

// Mode 重启方式
type Mode int

const (
	ModeReboot     Mode = iota + 1 // 正常重启
	ModeBootloader                 // 重启进入固件升级模式
)

// 进程退出码，由外部守护进程区分重启方式
const (
	ExitCodeReboot     = 10
	ExitCodeBootloader = 11
)

// String 返回重启方式名称
func (m Mode) String() string {
	switch m {
	case ModeReboot:
		return "reboot"
	case ModeBootloader:
		return "bootloader"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ExitCode 重启方式对应的退出码
func (m Mode) ExitCode() int {
	if m == ModeBootloader {
		return ExitCodeBootloader
	}
	return ExitCodeReboot
}

// Lifecycle 设备生命周期协作者，调用后当前执行上下文结束
type Lifecycle interface {
	Reboot(reason string)
	RebootToBootloader(reason string)
}

// RebootRequest 作为取消原因传递给服务管理器
type RebootRequest struct {
	Mode   Mode
	Reason string
}

// Error 实现error接口
func (r *RebootRequest) Error() string {
	return fmt.Sprintf("%s requested: %s", r.Mode, r.Reason)
}

// ProcessLifecycle 通过取消根上下文结束进程，第一次请求生效
type ProcessLifecycle struct {
	cancel context.CancelCauseFunc
	once   sync.Once
}

// NewProcessLifecycle 创建进程级生命周期，cancel 通常来自 context.WithCancelCause
func NewProcessLifecycle(cancel context.CancelCauseFunc) *ProcessLifecycle {
	return &ProcessLifecycle{cancel: cancel}
}

// Reboot 实现Lifecycle接口
func (p *ProcessLifecycle) Reboot(reason string) {
	p.request(ModeReboot, reason)
}

// RebootToBootloader 实现Lifecycle接口
func (p *ProcessLifecycle) RebootToBootloader(reason string) {
	p.request(ModeBootloader, reason)
}

func (p *ProcessLifecycle) request(mode Mode, reason string) {
	p.once.Do(func() {
		logger.WithFields(logrus.Fields{
			"mode":   mode.String(),
			"reason": reason,
		}).Warn("收到重启请求，准备退出")
		p.cancel(&RebootRequest{Mode: mode, Reason: reason})
	})
}

// RequestFromContext 取出上下文中的重启请求
func RequestFromContext(ctx context.Context) (*RebootRequest, bool) {
	var req *RebootRequest
	if stderrors.As(context.Cause(ctx), &req) {
		return req, true
	}
	return nil, false
}
