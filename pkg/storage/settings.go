package storage

import (
	"strconv"
	"strings"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
)

// Settings 从配置存储解析出的运行参数
type Settings struct {
	SSID          string
	Password      string
	MulticastIP   string
	Port          int
	MulticastPort int
	Rotation      int
	Order         int
	Brightness    int
	ColorOrder    string
}

var colorOrders = map[string]bool{
	"RGB": true, "RBG": true, "GRB": true,
	"GBR": true, "BRG": true, "BGR": true,
}

// StringGetter 只读键值来源
type StringGetter interface {
	GetString(key string) (string, bool)
}

// LoadSettings 解析运行参数，非法或越界的数值回退到默认值
func LoadSettings(store StringGetter) Settings {
	get := func(key string) string {
		v, _ := store.GetString(key)
		return v
	}

	s := Settings{
		SSID:          get(constants.KeySSID),
		Password:      get(constants.KeyPassword),
		MulticastIP:   get(constants.KeyMcastIP),
		Port:          parseBounded(get(constants.KeyPort), constants.DefaultServerPort, 0, 65535),
		MulticastPort: parseBounded(get(constants.KeyMcastPort), constants.DefaultMulticastPort, 0, 65535),
		Rotation:      parseBounded(get(constants.KeyRotation), 0, 0, 270),
		Order:         parseBounded(get(constants.KeyOrder), 1, 0, 65535),
		Brightness:    parseBounded(get(constants.KeyBrightness), 127, 0, 255),
		ColorOrder:    NormalizeColorOrder(get(constants.KeyColorOrder)),
	}
	if s.MulticastIP == "" {
		s.MulticastIP = constants.DefaultMulticastIP
	}
	switch s.Rotation {
	case 0, 90, 180, 270:
	default:
		s.Rotation = 0
	}
	return s
}

// NormalizeColorOrder 去除空白并转大写，未知取值回退到 BGR
func NormalizeColorOrder(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if colorOrders[v] {
		return v
	}
	return "BGR"
}

// parseBounded 仅接受纯数字字符串，超出范围返回默认值
func parseBounded(str string, def, min, max int) int {
	if str == "" {
		return def
	}
	for _, c := range str {
		if c < '0' || c > '9' {
			return def
		}
	}
	v, err := strconv.Atoi(str)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}
