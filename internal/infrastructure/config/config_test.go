package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require.NoError(t, Load(""))
	cfg := GetConfig()
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 256, cfg.Device.Width)
	assert.Equal(t, 64, cfg.Device.Height)
	assert.Equal(t, 64*1024, cfg.Device.MaxBufferSize)
	assert.Equal(t, 0, cfg.TCPServer.Port)
	assert.Equal(t, "127.0.0.1:8081", FormatHTTPAddress())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "display.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tcpServer:
  port: 5555
storage:
  backend: memory
device:
  build: "42"
  defaults:
    ssid: Lab
`), 0o644))
	t.Setenv("MULTIVERSE_DEVICE_WIDTH", "128")

	require.NoError(t, Load(path))
	cfg := GetConfig()
	assert.Equal(t, 5555, cfg.TCPServer.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "42", cfg.Device.Build)
	assert.Equal(t, "Lab", cfg.Device.Defaults["ssid"])
	assert.Equal(t, 128, cfg.Device.Width)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知存储后端", func(c *Config) { c.Storage.Backend = "nfs" }},
		{"文件后端缺少路径", func(c *Config) { c.Storage.Path = "" }},
		{"工作池为0", func(c *Config) { c.TCPServer.Zinx.WorkerPoolSize = 0 }},
		{"缓冲区非正", func(c *Config) { c.Device.MaxBufferSize = 0 }},
		{"串口缺少设备", func(c *Config) { c.Serial.Enabled = true; c.Serial.Device = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Load(""))
			cfg := GlobalConfig
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
}
