package constants

// multiverse 显示协议常量定义
// 线路格式: "multiverse:"(11) + 长度(4, 大端) + 命令(4, ASCII) + 数据(长度字节)

// ============================================================================
// 协议基础常量
// ============================================================================

const (
	// 协议标识
	MessagePrefix = "multiverse:" // 帧前缀
	ProtocolName  = "multiverse"  // 协议名称

	// 包结构长度定义（字节）
	PrefixLength    = len(MessagePrefix) // 前缀长度：11
	LengthFieldSize = 4                  // 长度字段长度
	CommandSize     = 4                  // 命令字段长度

	// 头部长度：19字节
	HeaderSize = PrefixLength + LengthFieldSize + CommandSize

	// 数据包位置定义
	LengthFieldPos = PrefixLength                   // 长度字段位置：11
	CommandPos     = LengthFieldPos + LengthFieldSize // 命令位置：15

	// DefaultMaxBufferSize 单帧数据的硬上限
	DefaultMaxBufferSize = 64 * 1024

	// MaxPrintLength prnt 命令最多显示的字符数
	MaxPrintLength = 1024
)

// ============================================================================
// 显示屏常量
// ============================================================================

const (
	MatrixWidth     = 256
	MatrixHeight    = 64
	BytesPerPixel   = 4
	FramebufferSize = MatrixWidth * MatrixHeight * BytesPerPixel

	// 文本控制台行数：8像素字体
	FontHeight      = 8
	StatusLineCount = MatrixHeight / FontHeight
)

// ============================================================================
// 组播与网络默认值
// ============================================================================

const (
	DefaultMulticastIP   = "239.255.111.111"
	DefaultMulticastPort = 54321
	DefaultServerPort    = 54321
	DefaultBuild         = "dev"

	NoIPv6Address = "No IPv6 address assigned"
	NoIPv4Address = "0.0.0.0"
)

// 时间格式
const (
	TimeFormatDefault = "2006-01-02 15:04:05"
)
