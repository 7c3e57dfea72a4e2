package logger

import (
	"context"
	"sync"

	"github.com/aceld/zinx/zlog"
)

// ZinxLoggerAdapter 将Zinx框架日志转到logrus
type ZinxLoggerAdapter struct{}

// InfoF 实现zinx的InfoF日志方法
func (z *ZinxLoggerAdapter) InfoF(format string, v ...interface{}) {
	WithField("component", "zinx").Infof(format, v...)
}

// DebugF 实现zinx的DebugF日志方法
func (z *ZinxLoggerAdapter) DebugF(format string, v ...interface{}) {
	WithField("component", "zinx").Debugf(format, v...)
}

// ErrorF 实现zinx的ErrorF日志方法
func (z *ZinxLoggerAdapter) ErrorF(format string, v ...interface{}) {
	WithField("component", "zinx").Errorf(format, v...)
}

// InfoFX 实现zinx的InfoFX日志方法
func (z *ZinxLoggerAdapter) InfoFX(_ context.Context, format string, v ...interface{}) {
	z.InfoF(format, v...)
}

// DebugFX 实现zinx的DebugFX日志方法
func (z *ZinxLoggerAdapter) DebugFX(_ context.Context, format string, v ...interface{}) {
	z.DebugF(format, v...)
}

// ErrorFX 实现zinx的ErrorFX日志方法
func (z *ZinxLoggerAdapter) ErrorFX(_ context.Context, format string, v ...interface{}) {
	z.ErrorF(format, v...)
}

var zinxLoggerOnce sync.Once

// SetupZinxLogger 设置Zinx框架使用统一日志，只生效一次
func SetupZinxLogger() {
	zinxLoggerOnce.Do(func() {
		zlog.SetLogger(&ZinxLoggerAdapter{})
	})
}
