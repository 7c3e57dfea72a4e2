package http

// APIResponse API统一响应结构
type APIResponse struct {
	Code    int         `json:"code"`           // 响应码，0表示成功
	Message string      `json:"message"`        // 响应消息
	Data    interface{} `json:"data,omitempty"` // 响应数据
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status         string `json:"status"`
	Build          string `json:"build"`
	Uptime         string `json:"uptime"`
	LinkState      string `json:"linkState"`
	ActiveSessions int    `json:"activeSessions"`
}

// ConfigEntry 配置项
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConfigListResponse 配置列表
type ConfigListResponse struct {
	Entries  []ConfigEntry `json:"entries"`
	Count    int           `json:"count"`
	Capacity int           `json:"capacity"`
	Dirty    bool          `json:"dirty"`
}

// CommandRequest 通过HTTP注入一条命令
type CommandRequest struct {
	Command  string `json:"command" binding:"required,len=4"`
	Payload  string `json:"payload"`
	Encoding string `json:"encoding"` // text（默认） | base64 | hex
}

// CommandResult 一条命令或帧错误的执行结果
type CommandResult struct {
	Command  string `json:"command,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Terminal bool   `json:"terminal,omitempty"`
}
