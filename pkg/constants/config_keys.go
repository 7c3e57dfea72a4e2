package constants

// 配置存储中的键名
const (
	KeySSID       = "ssid"
	KeyPassword   = "pass"
	KeyPort       = "port"
	KeyWiFiAuth   = "wifi_auth"
	KeyColorOrder = "color_order"
	KeyMcastIP    = "mcast_ip"
	KeyMcastPort  = "mcast_port"
	KeyRotation   = "rotation"
	KeyOrder      = "order"
	KeyBrightness = "brightness"
)

// DefaultConfigValues 出厂默认配置，缺失的键在加载时补齐
func DefaultConfigValues() map[string]string {
	return map[string]string{
		KeySSID:       "MyNetwork",
		KeyPassword:   "DefaultPass",
		KeyPort:       "8080",
		KeyWiFiAuth:   "16777220",
		KeyColorOrder: "BGR",
	}
}

// 连接属性键，用于在 Zinx 的 IConnection 中存取属性
const (
	PropKeySession   = "displaySession" // 协议会话对象
	PropKeySessionID = "sessionID"      // 会话ID
)
