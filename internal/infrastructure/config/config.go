package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 是应用程序配置的结构体
type Config struct {
	TCPServer     TCPServerConfig     `mapstructure:"tcpServer"`
	Multicast     MulticastConfig     `mapstructure:"multicast"`
	Serial        SerialConfig        `mapstructure:"serial"`
	HTTPAPIServer HTTPAPIServerConfig `mapstructure:"httpApiServer"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Device        DeviceConfig        `mapstructure:"device"`
	WiFi          WiFiConfig          `mapstructure:"wifi"`
}

// TCPServerConfig TCP服务器配置
type TCPServerConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	Host    string     `mapstructure:"host"`
	Port    int        `mapstructure:"port"` // 0 表示使用配置存储中的 port 设置
	Zinx    ZinxConfig `mapstructure:"zinx"`
}

// ZinxConfig Zinx框架配置
type ZinxConfig struct {
	Name             string `mapstructure:"name"`
	Version          string `mapstructure:"version"`
	MaxConn          int    `mapstructure:"maxConn"`
	WorkerPoolSize   int    `mapstructure:"workerPoolSize"`
	MaxWorkerTaskLen int    `mapstructure:"maxWorkerTaskLen"`
	MaxPacketSize    uint32 `mapstructure:"maxPacketSize"`
}

// MulticastConfig 组播发现配置
type MulticastConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Group     string `mapstructure:"group"` // 为空时使用配置存储中的 mcast_ip
	Port      int    `mapstructure:"port"`  // 0 时使用配置存储中的 mcast_port
	Interface string `mapstructure:"interface"`
}

// SerialConfig 串口配置
type SerialConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Device        string `mapstructure:"device"`
	BaudRate      int    `mapstructure:"baudRate"`
	ReadTimeoutMs int    `mapstructure:"readTimeoutMs"`
}

// HTTPAPIServerConfig HTTP API服务器配置
type HTTPAPIServerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// StorageConfig 配置存储后端
type StorageConfig struct {
	Backend  string `mapstructure:"backend"` // file | memory | redis
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redisKey"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"poolSize"`
	MinIdleConns int    `mapstructure:"minIdleConns"`
	DialTimeout  int    `mapstructure:"dialTimeout"`
	ReadTimeout  int    `mapstructure:"readTimeout"`
	WriteTimeout int    `mapstructure:"writeTimeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	FilePath      string `mapstructure:"filePath"`
	MaxSizeMB     int    `mapstructure:"maxSizeMB"`
	MaxBackups    int    `mapstructure:"maxBackups"`
	MaxAgeDays    int    `mapstructure:"maxAgeDays"`
	Compress      bool   `mapstructure:"compress"`
	LogHexDump    bool   `mapstructure:"logHexDump"`
	EnableConsole bool   `mapstructure:"enableConsole"`
}

// DeviceConfig 显示设备配置
type DeviceConfig struct {
	Width         int               `mapstructure:"width"`
	Height        int               `mapstructure:"height"`
	Build         string            `mapstructure:"build"`
	MaxBufferSize int               `mapstructure:"maxBufferSize"`
	Defaults      map[string]string `mapstructure:"defaults"`
}

// WiFiConfig 无线链路配置
type WiFiConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// AcceptedModes 模拟射频时接入点接受的认证模式
	AcceptedModes []uint32 `mapstructure:"acceptedModes"`
}

// 全局配置实例
var GlobalConfig Config

// Load 加载配置文件，configPath 为空时只使用默认值和环境变量
func Load(configPath string) error {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MULTIVERSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tcpServer.enabled", true)
	v.SetDefault("tcpServer.host", "0.0.0.0")
	v.SetDefault("tcpServer.port", 0)
	v.SetDefault("tcpServer.zinx.name", "multiverse-display")
	v.SetDefault("tcpServer.zinx.version", "V1.0")
	v.SetDefault("tcpServer.zinx.maxConn", 16)
	v.SetDefault("tcpServer.zinx.workerPoolSize", 4)
	v.SetDefault("tcpServer.zinx.maxWorkerTaskLen", 256)
	v.SetDefault("tcpServer.zinx.maxPacketSize", 4096)

	v.SetDefault("multicast.enabled", true)
	v.SetDefault("multicast.group", "")
	v.SetDefault("multicast.port", 0)

	v.SetDefault("serial.enabled", false)
	v.SetDefault("serial.baudRate", 115200)
	v.SetDefault("serial.readTimeoutMs", 100)

	v.SetDefault("httpApiServer.enabled", true)
	v.SetDefault("httpApiServer.host", "127.0.0.1")
	v.SetDefault("httpApiServer.port", 8081)
	v.SetDefault("httpApiServer.timeoutSeconds", 10)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "./data/config.bin")
	v.SetDefault("storage.redisKey", "multiverse:flash:config")

	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("redis.poolSize", 4)
	v.SetDefault("redis.dialTimeout", 5)
	v.SetDefault("redis.readTimeout", 3)
	v.SetDefault("redis.writeTimeout", 3)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.maxSizeMB", 50)
	v.SetDefault("logger.maxBackups", 5)
	v.SetDefault("logger.maxAgeDays", 14)
	v.SetDefault("logger.enableConsole", true)

	v.SetDefault("device.width", 256)
	v.SetDefault("device.height", 64)
	v.SetDefault("device.build", "dev")
	v.SetDefault("device.maxBufferSize", 64*1024)

	v.SetDefault("wifi.enabled", true)
	v.SetDefault("wifi.acceptedModes", []uint32{0x00400004})
}

// Validate 检查配置取值范围
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "file" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for file backend")
	}
	if c.TCPServer.Zinx.WorkerPoolSize < 1 {
		return fmt.Errorf("tcpServer.zinx.workerPoolSize must be at least 1, got %d", c.TCPServer.Zinx.WorkerPoolSize)
	}
	if c.Device.MaxBufferSize <= 0 {
		return fmt.Errorf("device.maxBufferSize must be positive")
	}
	if c.Serial.Enabled && c.Serial.Device == "" {
		return fmt.Errorf("serial.device is required when serial is enabled")
	}
	return nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return &GlobalConfig
}

// FormatHTTPAddress 格式化HTTP服务器地址为host:port格式
func FormatHTTPAddress() string {
	cfg := GetConfig().HTTPAPIServer
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
