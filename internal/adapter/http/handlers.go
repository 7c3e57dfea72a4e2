package http

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/discovery"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/bujia-iot/multiverse-display/pkg/metrics"
	"github.com/bujia-iot/multiverse-display/pkg/protocol"
	"github.com/bujia-iot/multiverse-display/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ConfigView 只读的配置存储视图
type ConfigView interface {
	Entries() []storage.Entry
	GetString(key string) (string, bool)
	Dirty() bool
}

// DescriptorSource 发现描述
type DescriptorSource interface {
	Describe() discovery.Descriptor
}

// Handlers 管理接口处理器，依赖由启动流程注入
type Handlers struct {
	Build      string
	Store      ConfigView
	Discovery  DescriptorSource
	NewSession func(transport string, opts ...protocol.SessionOption) *protocol.Session

	// 可选的运行状态
	LinkState      func() string
	ActiveSessions func() int
	Metrics        *metrics.CommandMetrics

	startedAt time.Time
}

// NewHandlers 创建处理器
func NewHandlers(build string, store ConfigView, disc DescriptorSource,
	newSession func(transport string, opts ...protocol.SessionOption) *protocol.Session,
) *Handlers {
	return &Handlers{
		Build:      build,
		Store:      store,
		Discovery:  disc,
		NewSession: newSession,
		Metrics:    metrics.Global(),
		startedAt:  time.Now(),
	}
}

// HandleHealthCheck 健康检查
func (h *Handlers) HandleHealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status: "ok",
		Build:  h.Build,
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.LinkState != nil {
		resp.LinkState = h.LinkState()
	}
	if h.ActiveSessions != nil {
		resp.ActiveSessions = h.ActiveSessions()
	}
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: resp})
}

// HandleConfigList 列出所有配置项
func (h *Handlers) HandleConfigList(c *gin.Context) {
	entries := h.Store.Entries()
	list := make([]ConfigEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, ConfigEntry{Key: string(e.Key), Value: string(e.Value)})
	}
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: ConfigListResponse{
		Entries:  list,
		Count:    len(list),
		Capacity: storage.Capacity,
		Dirty:    h.Store.Dirty(),
	}})
}

// HandleConfigGet 查询单个配置项
func (h *Handlers) HandleConfigGet(c *gin.Context) {
	key := c.Param("key")
	value, ok := h.Store.GetString(key)
	if !ok {
		c.JSON(http.StatusNotFound, APIResponse{Code: 404, Message: "配置项不存在", Data: gin.H{"key": key}})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: ConfigEntry{Key: key, Value: value}})
}

// HandleDiscovery 返回与组播发现相同的描述
func (h *Handlers) HandleDiscovery(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: h.Discovery.Describe()})
}

// HandleMetrics 命令处理指标
func (h *Handlers) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: h.Metrics.Summary()})
}

// HandleCommandList 列出支持的命令
func (h *Handlers) HandleCommandList(c *gin.Context) {
	registry := constants.GetGlobalCommandRegistry()
	var commands []gin.H
	for _, code := range registry.Codes() {
		info, _ := registry.GetCommandInfo(code)
		commands = append(commands, gin.H{
			"code":         info.Code,
			"name":         info.Name,
			"description":  info.Description,
			"hasPayload":   info.HasPayload,
			"datagramOnly": info.DatagramOnly,
		})
	}
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: gin.H{"commands": commands, "count": len(commands)}})
}

// HandleCommand 把命令编码为线路帧，经由一个独立会话执行
func (h *Handlers) HandleCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Code: 400, Message: "参数错误: " + err.Error()})
		return
	}

	payload, err := decodePayload(req.Payload, req.Encoding)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Code: 400, Message: "数据解码失败: " + err.Error()})
		return
	}

	session := h.NewSession("http", protocol.WithRemote(c.ClientIP()))
	outcomes := session.Process(c.Request.Context(), protocol.EncodeFrame(protocol.Command(req.Command), payload))

	results := make([]CommandResult, 0, len(outcomes))
	failed := false
	for _, out := range outcomes {
		r := CommandResult{Command: out.Command.String(), Status: out.Status, Terminal: out.Terminal}
		if out.Err != nil {
			r.Error = out.Err.Error()
			failed = true
		}
		results = append(results, r)
	}

	logger.WithFields(logrus.Fields{
		"command":    req.Command,
		"payloadLen": len(payload),
		"remote":     c.ClientIP(),
		"failed":     failed,
	}).Info("HTTP命令已执行")

	if failed {
		c.JSON(http.StatusUnprocessableEntity, APIResponse{Code: 422, Message: "命令执行失败", Data: results})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "成功", Data: results})
}

func decodePayload(payload, encoding string) ([]byte, error) {
	switch encoding {
	case "", "text":
		return []byte(payload), nil
	case "base64":
		return base64.StdEncoding.DecodeString(payload)
	case "hex":
		return hex.DecodeString(payload)
	}
	return nil, errors.Newf(errors.ErrInvalidParameter, "unsupported encoding %q", encoding)
}

// RegisterRoutes 注册管理接口路由
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/health", h.HandleHealthCheck)

	api := r.Group("/api/v1")
	{
		api.GET("/config", h.HandleConfigList)
		api.GET("/config/:key", h.HandleConfigGet)
		api.GET("/discovery", h.HandleDiscovery)
		api.GET("/commands", h.HandleCommandList)
		api.GET("/metrics", h.HandleMetrics)
		api.POST("/command", h.HandleCommand)
	}
}
