package network

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Radio 无线射频驱动
type Radio interface {
	// Associate 以指定模式连接接入点，超时或拒绝时返回错误
	Associate(ctx context.Context, ssid, pass string, mode AuthMode, timeout time.Duration) error
}

// Attempt 一次连接尝试的记录
type Attempt struct {
	Mode    AuthMode
	Timeout time.Duration
}

// StaticRadio 主机端模拟射频：只接受配置的认证模式
type StaticRadio struct {
	mu       sync.Mutex
	accepted map[AuthMode]bool
	attempts []Attempt
}

// NewStaticRadio 创建模拟射频
func NewStaticRadio(accepted ...AuthMode) *StaticRadio {
	r := &StaticRadio{accepted: make(map[AuthMode]bool, len(accepted))}
	for _, m := range accepted {
		r.accepted[m] = true
	}
	return r
}

// Associate 实现Radio接口
func (r *StaticRadio) Associate(ctx context.Context, _, _ string, mode AuthMode, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, Attempt{Mode: mode, Timeout: timeout})
	if !r.accepted[mode] {
		return fmt.Errorf("association with %s rejected", mode)
	}
	return nil
}

// Attempts 返回全部尝试记录
func (r *StaticRadio) Attempts() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Attempt(nil), r.attempts...)
}
