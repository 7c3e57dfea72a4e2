package network

import (
	"context"
	"sync"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LinkState 链路状态
type LinkState int

const (
	LinkIdle LinkState = iota
	LinkTryingStoredMode
	LinkTryingFallbackModes
	LinkConnected
	LinkFailed
)

// String 返回状态名称
func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkTryingStoredMode:
		return "trying_stored_mode"
	case LinkTryingFallbackModes:
		return "trying_fallback_modes"
	case LinkConnected:
		return "connected"
	case LinkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 重试策略
const (
	StoredModeTimeout   = 5 * time.Second
	FallbackBaseTimeout = 2 * time.Second
	FallbackRounds      = 3
)

// SettingsStore 链路管理器读写的配置
type SettingsStore interface {
	GetString(key string) (string, bool)
	SetString(key, value string) error
	Commit(ctx context.Context) (bool, error)
}

// StatusPrinter 状态行输出
type StatusPrinter interface {
	Print(line string)
}

// LinkManager 按认证模式顺序重试的无线连接状态机
type LinkManager struct {
	radio  Radio
	store  SettingsStore
	status StatusPrinter

	mu    sync.RWMutex
	state LinkState
	mode  AuthMode
}

// NewLinkManager 创建链路管理器
func NewLinkManager(radio Radio, store SettingsStore, status StatusPrinter) *LinkManager {
	return &LinkManager{radio: radio, store: store, status: status}
}

// State 当前状态
func (m *LinkManager) State() LinkState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Mode 连接成功时使用的认证模式
func (m *LinkManager) Mode() AuthMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

func (m *LinkManager) setState(s LinkState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Connect 先用保存的模式尝试，失败后按回退顺序多轮重试。
// 全部失败返回 ErrLinkFailure；上下文取消时返回上下文错误。
func (m *LinkManager) Connect(ctx context.Context) (AuthMode, error) {
	ssid, _ := m.store.GetString(constants.KeySSID)
	pass, _ := m.store.GetString(constants.KeyPassword)
	m.print("Connecting to Wi-Fi: " + ssid)

	stored := DefaultAuthMode
	if raw, ok := m.store.GetString(constants.KeyWiFiAuth); ok {
		stored, _ = ParseAuthMode(raw)
	}

	log := logger.WithFields(logrus.Fields{
		"ssid":       ssid,
		"storedMode": stored.String(),
	})

	if stored.Supported() {
		m.setState(LinkTryingStoredMode)
		err := m.radio.Associate(ctx, ssid, pass, stored, StoredModeTimeout)
		if err == nil {
			return m.connected(ctx, stored, stored)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			m.setState(LinkIdle)
			return 0, ctxErr
		}
		log.WithField("error", err.Error()).Warn("保存的认证模式连接失败，开始回退")
	}

	m.setState(LinkTryingFallbackModes)
	for round := 1; round <= FallbackRounds; round++ {
		timeout := FallbackBaseTimeout * time.Duration(round)
		for _, mode := range FallbackOrder {
			if mode == stored {
				continue
			}
			err := m.radio.Associate(ctx, ssid, pass, mode, timeout)
			if err == nil {
				return m.connected(ctx, stored, mode)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				m.setState(LinkIdle)
				return 0, ctxErr
			}
			log.WithFields(logrus.Fields{
				"round":   round,
				"mode":    mode.String(),
				"timeout": timeout.String(),
			}).Debug("认证模式连接失败")
		}
	}

	m.setState(LinkFailed)
	m.print("Unable to connect to Wi-Fi")
	log.Error("无线连接失败，所有认证模式均已尝试")
	return 0, errors.Newf(errors.ErrLinkFailure, "unable to associate with %q", ssid)
}

func (m *LinkManager) connected(ctx context.Context, stored, mode AuthMode) (AuthMode, error) {
	m.mu.Lock()
	m.state = LinkConnected
	m.mode = mode
	m.mu.Unlock()

	logger.WithField("mode", mode.String()).Info("无线连接成功")
	if mode == stored {
		return mode, nil
	}

	// 记住成功的模式，下次启动优先使用
	if err := m.store.SetString(constants.KeyWiFiAuth, FormatAuthMode(mode)); err != nil {
		logger.WithField("error", err.Error()).Warn("保存认证模式失败")
		return mode, nil
	}
	if _, err := m.store.Commit(ctx); err != nil {
		logger.WithField("error", err.Error()).Warn("认证模式写入闪存失败")
	}
	return mode, nil
}

func (m *LinkManager) print(line string) {
	if m.status != nil {
		m.status.Print(line)
	}
}
