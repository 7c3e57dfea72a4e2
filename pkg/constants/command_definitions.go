package constants

// 命令分类常量
const (
	CategoryLifecycle     = "lifecycle"     // 生命周期类命令
	CategoryDisplay       = "display"       // 显示控制类命令
	CategoryQuery         = "query"         // 查询类命令
	CategoryConfiguration = "configuration" // 配置类命令
	CategoryFramebuffer   = "framebuffer"   // 帧数据类命令
	CategoryDiscovery     = "discovery"     // 发现类命令
)

// 命令码（4字节ASCII）
const (
	CmdReset        = "RSET" // 重启
	CmdBootloader   = "BOOT" // 进入固件升级模式
	CmdFactoryReset = "FRST" // 恢复出厂设置
	CmdDiscovery    = "dscv" // 组播发现
	CmdClearScreen  = "clsc" // 清屏
	CmdSync         = "sync" // 刷新暂存帧
	CmdIPv4         = "ipv4" // 显示IPv4地址
	CmdIPv6         = "ipv6" // 显示IPv6地址
	CmdStore        = "stor" // 配置写入闪存
	CmdGet          = "kget" // 读取配置
	CmdSet          = "kset" // 写入配置
	CmdDelete       = "kdel" // 删除配置
	CmdData         = "data" // 原始像素，等待sync
	CmdShowData     = "sdat" // 原始像素，立即刷新
	CmdZipped       = "zipd" // 压缩像素，等待sync
	CmdShowZipped   = "szip" // 压缩像素，立即刷新
	CmdPrint        = "prnt" // 文本显示
)

// initDefaultCommands 初始化默认命令注册表
func initDefaultCommands() {
	registry := globalRegistry

	commands := []*CommandInfo{
		// 生命周期类命令
		{Code: CmdReset, Name: "重启", Description: "打印状态后重启设备", Category: CategoryLifecycle, Terminal: true},
		{Code: CmdBootloader, Name: "升级模式", Description: "打印状态后重启进入固件升级模式", Category: CategoryLifecycle, Terminal: true},
		{Code: CmdFactoryReset, Name: "恢复出厂", Description: "清空配置并写入默认值后重启", Category: CategoryLifecycle, Terminal: true},

		// 显示控制类命令
		{Code: CmdClearScreen, Name: "清屏", Description: "清除显示内容", Category: CategoryDisplay},
		{Code: CmdSync, Name: "同步", Description: "将暂存帧刷新到屏幕", Category: CategoryDisplay},
		{Code: CmdPrint, Name: "文本", Description: "在屏幕上显示可打印ASCII文本", Category: CategoryDisplay, HasPayload: true},

		// 查询类命令
		{Code: CmdIPv4, Name: "IPv4地址", Description: "显示当前IPv4地址", Category: CategoryQuery},
		{Code: CmdIPv6, Name: "IPv6地址", Description: "显示当前IPv6地址", Category: CategoryQuery},

		// 配置类命令
		{Code: CmdStore, Name: "保存配置", Description: "将配置写入非易失存储", Category: CategoryConfiguration},
		{Code: CmdGet, Name: "读取配置", Description: "按键读取配置值", Category: CategoryConfiguration, HasPayload: true},
		{Code: CmdSet, Name: "写入配置", Description: "key:value 形式写入配置", Category: CategoryConfiguration, HasPayload: true},
		{Code: CmdDelete, Name: "删除配置", Description: "按键删除配置", Category: CategoryConfiguration, HasPayload: true},

		// 帧数据类命令
		{Code: CmdData, Name: "像素数据", Description: "原始像素写入暂存帧", Category: CategoryFramebuffer, HasPayload: true},
		{Code: CmdShowData, Name: "像素数据并显示", Description: "原始像素写入并立即刷新", Category: CategoryFramebuffer, HasPayload: true},
		{Code: CmdZipped, Name: "压缩像素", Description: "zlib压缩像素写入暂存帧", Category: CategoryFramebuffer, HasPayload: true},
		{Code: CmdShowZipped, Name: "压缩像素并显示", Description: "zlib压缩像素写入并立即刷新", Category: CategoryFramebuffer, HasPayload: true},

		// 发现类命令，仅组播可用
		{Code: CmdDiscovery, Name: "发现", Description: "组播设备发现", Category: CategoryDiscovery, DatagramOnly: true},
	}

	registry.RegisterBatch(commands)
}
