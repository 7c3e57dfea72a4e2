package constants

import (
	"fmt"
	"sort"
	"sync"
)

// CommandInfo 命令信息结构体
type CommandInfo struct {
	Code         string // 4字节命令码
	Name         string // 命令名称
	Description  string // 命令描述
	Category     string // 命令分类
	HasPayload   bool   // 是否携带数据
	Terminal     bool   // 执行后不再返回（重启类）
	DatagramOnly bool   // 仅允许通过组播报文发送
}

// CommandRegistry 命令注册表
type CommandRegistry struct {
	commands map[string]*CommandInfo
	mutex    sync.RWMutex
}

var (
	globalRegistry *CommandRegistry
	registryOnce   sync.Once
)

// NewCommandRegistry 创建新的命令注册表
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]*CommandInfo),
	}
}

// GetGlobalCommandRegistry 获取全局命令注册表
func GetGlobalCommandRegistry() *CommandRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewCommandRegistry()
		initDefaultCommands()
	})
	return globalRegistry
}

// RegisterBatch 批量注册命令信息
func (r *CommandRegistry) RegisterBatch(infos []*CommandInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, info := range infos {
		r.commands[info.Code] = info
	}
}

// GetCommandInfo 获取命令完整信息
func (r *CommandRegistry) GetCommandInfo(code string) (*CommandInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	info, exists := r.commands[code]
	return info, exists
}

// GetCommandName 获取命令名称
func (r *CommandRegistry) GetCommandName(code string) string {
	if info, exists := r.GetCommandInfo(code); exists {
		return info.Name
	}
	return fmt.Sprintf("未知命令(%q)", code)
}

// Codes 返回已注册命令码（排序后）
func (r *CommandRegistry) Codes() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	codes := make([]string, 0, len(r.commands))
	for code := range r.commands {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LookupStreamCommand 查找可在字节流（TCP/串口）上使用的命令
func LookupStreamCommand(code string) (*CommandInfo, bool) {
	info, ok := GetGlobalCommandRegistry().GetCommandInfo(code)
	if !ok || info.DatagramOnly {
		return nil, false
	}
	return info, true
}
