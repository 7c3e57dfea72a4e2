package discovery

import (
	"encoding/json"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/storage"
	"github.com/sirupsen/logrus"
)

// Descriptor 发现应答，字段顺序固定
type Descriptor struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Rotation   int    `json:"rotation"`
	Order      int    `json:"order"`
	ColorOrder string `json:"color_order"`
	IP         string `json:"ip"`
	Port       int    `json:"port"`
	Build      string `json:"build"`
}

// Flusher 组播 sync 只需要刷新
type Flusher interface {
	Flush()
	Print(line string)
}

// AddressProvider 设备地址
type AddressProvider interface {
	IPv4() string
}

// Responder 处理组播报文，无状态
type Responder struct {
	Width   int
	Height  int
	Build   string
	Store   storage.StringGetter
	Addrs   AddressProvider
	Display Flusher
}

// Describe 根据当前配置生成描述
func (r *Responder) Describe() Descriptor {
	s := storage.LoadSettings(r.Store)
	return Descriptor{
		Width:      r.Width,
		Height:     r.Height,
		Rotation:   s.Rotation,
		Order:      s.Order,
		ColorOrder: s.ColorOrder,
		IP:         r.Addrs.IPv4(),
		Port:       s.Port,
		Build:      r.Build,
	}
}

// Handle 处理一个报文，需要应答时返回应答内容
func (r *Responder) Handle(datagram []byte) ([]byte, bool) {
	switch string(datagram) {
	case constants.CmdDiscovery:
		r.Display.Print("Discovery request received")
		reply, err := json.Marshal(r.Describe())
		if err != nil {
			logger.WithField("error", err.Error()).Error("发现应答序列化失败")
			return nil, false
		}
		return reply, true

	case constants.CmdSync:
		r.Display.Flush()
		logger.Debug("收到组播同步命令")
		return nil, false

	default:
		logger.WithFields(logrus.Fields{
			"length": len(datagram),
		}).Debug("忽略未知组播报文")
		return nil, false
	}
}
