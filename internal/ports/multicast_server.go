package ports

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// 组播报文最大长度，发现和同步报文都只有4字节
const maxDatagramSize = 512

// 读超时，用于周期性检查 ctx
const datagramPollInterval = 500 * time.Millisecond

// DatagramHandler 处理一个组播报文，需要应答时返回应答内容
type DatagramHandler interface {
	Handle(datagram []byte) ([]byte, bool)
}

// MulticastServer 加入发现组播组并应答发现请求
type MulticastServer struct {
	group   net.IP
	port    int
	iface   string
	handler DatagramHandler
}

// NewMulticastServer 创建组播服务
func NewMulticastServer(group string, port int, iface string, handler DatagramHandler) (*MulticastServer, error) {
	ip := net.ParseIP(group)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return nil, errors.Newf(errors.ErrInvalidParameter, "invalid multicast group %q", group)
	}
	return &MulticastServer{group: ip.To4(), port: port, iface: iface, handler: handler}, nil
}

// Run 加入组播组并处理报文直到 ctx 取消
func (m *MulticastServer) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: m.port})
	if err != nil {
		return errors.Wrap(errors.ErrTransportFailed, "listen multicast port", err)
	}
	defer conn.Close()

	var ifi *net.Interface
	if m.iface != "" {
		if ifi, err = net.InterfaceByName(m.iface); err != nil {
			return errors.Wrap(errors.ErrTransportFailed, fmt.Sprintf("lookup interface %s", m.iface), err)
		}
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: m.group}); err != nil {
		return errors.Wrap(errors.ErrTransportFailed, "join multicast group", err)
	}
	defer pc.LeaveGroup(ifi, &net.UDPAddr{IP: m.group})
	if err := pc.SetMulticastLoopback(true); err != nil {
		logger.WithField("error", err.Error()).Debug("设置组播回环失败")
	}

	logger.WithFields(logrus.Fields{
		"group":     m.group.String(),
		"port":      m.port,
		"interface": m.iface,
	}).Info("组播发现服务启动")

	return Serve(ctx, conn, m.handler)
}

// Serve 在已绑定的UDP连接上处理报文，应答发回发送方
func Serve(ctx context.Context, conn *net.UDPConn, handler DatagramHandler) error {
	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(datagramPollInterval)); err != nil {
			return errors.Wrap(errors.ErrTransportFailed, "set read deadline", err)
		}
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(errors.ErrTransportFailed, "read datagram", err)
		}

		reply, ok := handler.Handle(buf[:n])
		if !ok {
			continue
		}
		if _, err := conn.WriteToUDP(reply, src); err != nil {
			// 应答失败只记录
			logger.WithFields(logrus.Fields{
				"remote": src.String(),
				"error":  err.Error(),
			}).Warn("发现应答发送失败")
			continue
		}
		logger.WithFields(logrus.Fields{
			"remote": src.String(),
			"bytes":  len(reply),
		}).Debug("发现应答已发送")
	}
}
