package app

import (
	"context"
	"fmt"

	httpapi "github.com/bujia-iot/multiverse-display/internal/adapter/http"
	"github.com/bujia-iot/multiverse-display/internal/app/service"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/config"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	redisflash "github.com/bujia-iot/multiverse-display/internal/infrastructure/redis"
	"github.com/bujia-iot/multiverse-display/internal/ports"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/discovery"
	"github.com/bujia-iot/multiverse-display/pkg/display"
	"github.com/bujia-iot/multiverse-display/pkg/lifecycle"
	"github.com/bujia-iot/multiverse-display/pkg/network"
	"github.com/bujia-iot/multiverse-display/pkg/protocol"
	"github.com/bujia-iot/multiverse-display/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ServiceManager 负责启动顺序和各组件的生命周期
type ServiceManager struct {
	cfg *config.Config

	redisClient *redis.Client

	Store      *storage.ConfigStore
	Matrix     *display.Matrix
	Link       *network.LinkManager
	Dispatcher *service.CommandDispatcher
	Responder  *discovery.Responder
	Addrs      network.AddressProvider

	tcp *ports.TCPServer
}

// NewServiceManager 创建服务管理器
func NewServiceManager(cfg *config.Config) *ServiceManager {
	return &ServiceManager{cfg: cfg}
}

// Init 按启动顺序初始化: 配置存储 -> 屏幕 -> 无线链路 -> 命令分发器
func (m *ServiceManager) Init(ctx context.Context, lc lifecycle.Lifecycle) error {
	flash, err := m.openFlash(ctx)
	if err != nil {
		return err
	}

	m.Matrix = display.NewMatrix(m.cfg.Device.Width, m.cfg.Device.Height)
	m.Matrix.AddSink(func(line string) {
		logger.WithField("line", line).Debug("状态行")
	})

	m.Store = storage.NewConfigStore(flash, m.defaults())
	recovered, err := m.Store.Load(ctx)
	if err != nil {
		return err
	}
	if recovered {
		m.Matrix.Print("Config store reset to defaults")
	}
	if _, err := m.Store.Commit(ctx); err != nil {
		// 写失败不阻止启动，脏标记保留，下次 stor 会重试
		logger.WithField("error", err.Error()).Warn("默认配置写入失败")
	}

	if m.Addrs == nil {
		m.Addrs = network.InterfaceAddresses{Name: m.cfg.Multicast.Interface}
	}

	if m.cfg.WiFi.Enabled {
		m.Link = network.NewLinkManager(m.radio(), m.Store, m.Matrix)
		if _, err := m.Link.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			// 链路失败只降级
			logger.WithField("error", err.Error()).Warn("无线链路不可用，继续启动")
		}
	}

	m.Dispatcher = service.NewCommandDispatcher(m.Store, m.Matrix, m.Addrs, lc)
	m.Responder = &discovery.Responder{
		Width:   m.cfg.Device.Width,
		Height:  m.cfg.Device.Height,
		Build:   m.cfg.Device.Build,
		Store:   m.Store,
		Addrs:   m.Addrs,
		Display: m.Matrix,
	}
	return nil
}

// defaults 内置默认配置，配置文件中的 device.defaults 覆盖同名键
func (m *ServiceManager) defaults() map[string]string {
	out := constants.DefaultConfigValues()
	for k, v := range m.cfg.Device.Defaults {
		out[k] = v
	}
	return out
}

func (m *ServiceManager) openFlash(ctx context.Context) (storage.Flash, error) {
	switch m.cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryFlash(nil), nil
	case "redis":
		client, err := redisflash.NewClient(ctx, m.cfg.Redis)
		if err != nil {
			return nil, err
		}
		m.redisClient = client
		return redisflash.NewFlash(client, m.cfg.Storage.RedisKey), nil
	default:
		return storage.NewFileFlash(m.cfg.Storage.Path), nil
	}
}

func (m *ServiceManager) radio() network.Radio {
	accepted := make([]network.AuthMode, 0, len(m.cfg.WiFi.AcceptedModes))
	for _, mode := range m.cfg.WiFi.AcceptedModes {
		accepted = append(accepted, network.AuthMode(mode))
	}
	return network.NewStaticRadio(accepted...)
}

// NewSession 为传输连接创建协议会话
func (m *ServiceManager) NewSession(transport string, opts ...protocol.SessionOption) *protocol.Session {
	return protocol.NewSession(transport, m.cfg.Device.MaxBufferSize, m.Dispatcher, m.Matrix, opts...)
}

// Run 启动所有启用的传输，阻塞到 ctx 取消或某个必需传输失败
func (m *ServiceManager) Run(ctx context.Context) error {
	settings := storage.LoadSettings(m.Store)
	g, gctx := errgroup.WithContext(ctx)

	if m.cfg.TCPServer.Enabled {
		port := m.cfg.TCPServer.Port
		if port == 0 {
			port = settings.Port
		}
		m.tcp = ports.NewTCPServer(m.cfg.TCPServer, port, m.NewSession)
		if err := m.tcp.Start(gctx); err != nil {
			return err
		}
		m.Matrix.Print(fmt.Sprintf("TCP server listening on port %d", port))
		g.Go(func() error {
			<-gctx.Done()
			m.tcp.Stop()
			return nil
		})
	}

	if m.cfg.Multicast.Enabled {
		group := m.cfg.Multicast.Group
		if group == "" {
			group = settings.MulticastIP
		}
		port := m.cfg.Multicast.Port
		if port == 0 {
			port = settings.MulticastPort
		}
		mcast, err := ports.NewMulticastServer(group, port, m.cfg.Multicast.Interface, m.Responder)
		if err != nil {
			m.Matrix.Print("Failed to join multicast group")
			logger.WithField("error", err.Error()).Warn("组播发现不可用")
		} else {
			m.Matrix.Print(fmt.Sprintf("Listening for multicast sync on %s:%d", group, port))
			g.Go(func() error {
				// 发现服务失败只降级
				if err := mcast.Run(gctx); err != nil {
					m.Matrix.Print("Failed to join multicast group")
					logger.WithField("error", err.Error()).Warn("组播发现服务退出")
				}
				return nil
			})
		}
	}

	if m.cfg.Serial.Enabled {
		serialPort := ports.NewSerialTransport(m.cfg.Serial, m.NewSession)
		g.Go(func() error {
			return serialPort.Run(gctx)
		})
	}

	if m.cfg.HTTPAPIServer.Enabled {
		handlers := httpapi.NewHandlers(m.cfg.Device.Build, m.Store, m.Responder, m.NewSession)
		if m.Link != nil {
			handlers.LinkState = func() string { return m.Link.State().String() }
		}
		if m.tcp != nil {
			handlers.ActiveSessions = m.tcp.ActiveSessions
		}
		httpServer := ports.NewHTTPServer(m.cfg.HTTPAPIServer, handlers)
		g.Go(func() error {
			return httpServer.Run(gctx)
		})
	}

	logger.WithFields(logrus.Fields{
		"tcp":       m.cfg.TCPServer.Enabled,
		"multicast": m.cfg.Multicast.Enabled,
		"serial":    m.cfg.Serial.Enabled,
		"http":      m.cfg.HTTPAPIServer.Enabled,
	}).Info("所有传输已启动")

	return g.Wait()
}

// Shutdown 释放外部资源
func (m *ServiceManager) Shutdown() error {
	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			return fmt.Errorf("关闭Redis连接失败: %w", err)
		}
	}
	return nil
}
