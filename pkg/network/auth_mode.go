package network

import (
	"fmt"
	"strconv"
)

// AuthMode 无线认证模式，取值与射频芯片驱动一致
type AuthMode uint32

const (
	AuthWPA3SAE   AuthMode = 0x01000004
	AuthWPA3WPA2  AuthMode = 0x01400004
	AuthWPA2Mixed AuthMode = 0x00400006
	AuthWPA2AES   AuthMode = 0x00400004
)

// DefaultAuthMode 配置缺失或无法解析时使用的模式
const DefaultAuthMode = AuthWPA2AES

// FallbackOrder 回退时依次尝试的模式
var FallbackOrder = []AuthMode{AuthWPA3SAE, AuthWPA3WPA2, AuthWPA2Mixed, AuthWPA2AES}

// String 返回模式名称
func (m AuthMode) String() string {
	switch m {
	case AuthWPA3SAE:
		return "WPA3_SAE_AES"
	case AuthWPA3WPA2:
		return "WPA3_WPA2_AES"
	case AuthWPA2Mixed:
		return "WPA2_MIXED"
	case AuthWPA2AES:
		return "WPA2_AES"
	default:
		return fmt.Sprintf("AuthMode(0x%08X)", uint32(m))
	}
}

// Supported 是否在回退列表中
func (m AuthMode) Supported() bool {
	for _, mode := range FallbackOrder {
		if mode == m {
			return true
		}
	}
	return false
}

// ParseAuthMode 解析配置中的十进制模式值，失败时返回 DefaultAuthMode 和 false
func ParseAuthMode(s string) (AuthMode, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return DefaultAuthMode, false
	}
	return AuthMode(v), true
}

// FormatAuthMode 按配置存储的格式输出
func FormatAuthMode(m AuthMode) string {
	return strconv.FormatUint(uint64(m), 10)
}
