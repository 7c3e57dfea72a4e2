package ports

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aceld/zinx/zconf"
	"github.com/aceld/zinx/ziface"
	"github.com/aceld/zinx/znet"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/config"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/metrics"
	"github.com/bujia-iot/multiverse-display/pkg/protocol"
	"github.com/sirupsen/logrus"
)

// RawDataMsgID 原始数据块使用的路由ID
const RawDataMsgID uint32 = 0

// SessionFactory 为新的传输连接创建协议会话
type SessionFactory func(transport string, opts ...protocol.SessionOption) *protocol.Session

// TCPServer 封装Zinx TCP服务器，每个连接对应一个协议会话
type TCPServer struct {
	cfg        config.TCPServerConfig
	port       int
	newSession SessionFactory

	server ziface.IServer
	ctx    context.Context
	active atomic.Int32
	mu     sync.Mutex
}

// NewTCPServer 创建TCP服务器，port 为实际监听端口
func NewTCPServer(cfg config.TCPServerConfig, port int, factory SessionFactory) *TCPServer {
	return &TCPServer{
		cfg:        cfg,
		port:       port,
		newSession: factory,
		ctx:        context.Background(),
	}
}

// Run 启动服务器并阻塞到 ctx 取消
func (s *TCPServer) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Start 配置并启动Zinx服务器，不阻塞
func (s *TCPServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("tcp server already started")
	}
	s.ctx = ctx
	logger.SetupZinxLogger()

	zinxCfg := s.cfg.Zinx
	zconf.GlobalObject.Name = zinxCfg.Name
	zconf.GlobalObject.Host = s.cfg.Host
	zconf.GlobalObject.TCPPort = s.port
	zconf.GlobalObject.Version = zinxCfg.Version
	zconf.GlobalObject.MaxConn = zinxCfg.MaxConn
	zconf.GlobalObject.MaxPacketSize = zinxCfg.MaxPacketSize
	zconf.GlobalObject.WorkerPoolSize = uint32(zinxCfg.WorkerPoolSize)
	zconf.GlobalObject.MaxWorkerTaskLen = uint32(zinxCfg.MaxWorkerTaskLen)

	server := znet.NewUserConfServer(zconf.GlobalObject)
	if server == nil {
		return fmt.Errorf("创建Zinx服务器实例失败")
	}
	server.SetDecoder(&passthroughDecoder{})
	server.AddRouter(RawDataMsgID, &rawDataRouter{server: s})
	server.SetOnConnStart(s.onConnStart)
	server.SetOnConnStop(s.onConnStop)

	logger.WithFields(logrus.Fields{
		"host":           s.cfg.Host,
		"port":           s.port,
		"maxConn":        zinxCfg.MaxConn,
		"workerPoolSize": zinxCfg.WorkerPoolSize,
	}).Info("TCP服务器启动")

	server.Start()
	s.server = server
	return nil
}

// Stop 停止服务器并关闭所有连接
func (s *TCPServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	s.server.Stop()
	s.server = nil
	logger.Info("TCP服务器已停止")
}

// ActiveSessions 当前连接数
func (s *TCPServer) ActiveSessions() int {
	return int(s.active.Load())
}

func (s *TCPServer) onConnStart(conn ziface.IConnection) {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	session := s.newSession("tcp", protocol.WithRemote(remote))
	conn.SetProperty(constants.PropKeySession, session)
	conn.SetProperty(constants.PropKeySessionID, session.ID())
	s.active.Add(1)
	metrics.Global().ConnectionOpened()

	logger.WithFields(logrus.Fields{
		"connID":    conn.GetConnID(),
		"remote":    remote,
		"sessionID": session.ID(),
	}).Debug("TCP连接建立")
	session.OnConnect(s.ctx)
}

func (s *TCPServer) onConnStop(conn ziface.IConnection) {
	session := sessionOf(conn)
	if session == nil {
		return
	}
	s.active.Add(-1)
	metrics.Global().ConnectionClosed()
	conn.RemoveProperty(constants.PropKeySession)
	session.OnClose()
}

func sessionOf(conn ziface.IConnection) *protocol.Session {
	val, err := conn.GetProperty(constants.PropKeySession)
	if err != nil || val == nil {
		return nil
	}
	session, _ := val.(*protocol.Session)
	return session
}

// passthroughDecoder 不做长度字段解析，原始数据块直接交给路由，
// 帧重组由每个会话自己的解码器完成
type passthroughDecoder struct{}

// GetLengthField 返回nil，Zinx传递原始数据
func (d *passthroughDecoder) GetLengthField() *ziface.LengthField {
	return nil
}

// Intercept 把所有数据块路由到 RawDataMsgID
func (d *passthroughDecoder) Intercept(chain ziface.IChain) ziface.IcResp {
	iMessage := chain.GetIMessage()
	if iMessage == nil {
		return chain.ProceedWithIMessage(iMessage, nil)
	}
	iMessage.SetMsgID(RawDataMsgID)
	return chain.ProceedWithIMessage(iMessage, nil)
}

// rawDataRouter 将数据块交给连接的会话
type rawDataRouter struct {
	znet.BaseRouter
	server *TCPServer
}

// Handle 处理原始数据块
func (r *rawDataRouter) Handle(request ziface.IRequest) {
	conn := request.GetConnection()
	session := sessionOf(conn)
	if session == nil {
		logger.WithField("connID", conn.GetConnID()).Warn("连接没有会话，丢弃数据")
		return
	}

	data := request.GetData()
	if len(data) == 0 {
		return
	}
	// 会话持有自己的解码器，这里复制一份避免复用底层缓冲区
	chunk := make([]byte, len(data))
	copy(chunk, data)

	session.OnData(r.server.ctx, chunk)
	if session.Terminated() {
		conn.Stop()
	}
}
