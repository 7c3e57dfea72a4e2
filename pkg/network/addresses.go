package network

import (
	"net"
	"strings"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
)

// AddressProvider 设备地址查询
type AddressProvider interface {
	IPv4() string
	IPv6() string
}

// InterfaceAddresses 从主机网卡读取地址，Name 为空时取第一个非回环的活动网卡
type InterfaceAddresses struct {
	Name string
}

// IPv4 实现AddressProvider接口
func (a InterfaceAddresses) IPv4() string {
	for _, ip := range a.addrs() {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return constants.NoIPv4Address
}

// IPv6 实现AddressProvider接口，多个地址按行分隔
func (a InterfaceAddresses) IPv6() string {
	var out []string
	for _, ip := range a.addrs() {
		if ip.To4() == nil && ip.To16() != nil {
			out = append(out, ip.String())
		}
	}
	if len(out) == 0 {
		return constants.NoIPv6Address
	}
	return strings.Join(out, "\n")
}

func (a InterfaceAddresses) addrs() []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var ips []net.IP
	for _, iface := range ifaces {
		if a.Name != "" && iface.Name != a.Name {
			continue
		}
		if a.Name == "" && (iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				ips = append(ips, ipNet.IP)
			}
		}
	}
	return ips
}

// StaticAddresses 固定地址，测试和 HTTP 接口使用
type StaticAddresses struct {
	V4 string
	V6 []string
}

// IPv4 实现AddressProvider接口
func (s StaticAddresses) IPv4() string {
	if s.V4 == "" {
		return constants.NoIPv4Address
	}
	return s.V4
}

// IPv6 实现AddressProvider接口
func (s StaticAddresses) IPv6() string {
	if len(s.V6) == 0 {
		return constants.NoIPv6Address
	}
	return strings.Join(s.V6, "\n")
}
