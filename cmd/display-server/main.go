package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bujia-iot/multiverse-display/internal/app"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/config"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/lifecycle"
)

var configFile = flag.String("config", "configs/display.yaml", "配置文件路径")

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if err := config.Load(*configFile); err != nil {
		fmt.Printf("加载配置文件失败: %v\n", err)
		return 1
	}

	loggerConfig := config.GetConfig().Logger
	if err := logger.Init(&loggerConfig); err != nil {
		fmt.Printf("初始化日志系统失败: %v\n", err)
		return 1
	}
	defer logger.Close()

	logger.Info("LED点阵屏控制服务启动中...")

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	// 信号只取消上下文，重启请求通过取消原因传递
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Infof("收到信号 %s，准备退出", sig)
			cancel(context.Canceled)
		case <-ctx.Done():
		}
	}()

	manager := app.NewServiceManager(config.GetConfig())
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.Errorf("关闭服务失败: %v", err)
		}
	}()

	if err := manager.Init(ctx, lifecycle.NewProcessLifecycle(cancel)); err != nil {
		if req, ok := lifecycle.RequestFromContext(ctx); ok {
			return req.Mode.ExitCode()
		}
		logger.Errorf("初始化失败: %v", err)
		return 1
	}

	if err := manager.Run(ctx); err != nil {
		logger.Errorf("服务异常退出: %v", err)
		return 1
	}

	if req, ok := lifecycle.RequestFromContext(ctx); ok {
		logger.Infof("按请求退出: %s", req.Error())
		return req.Mode.ExitCode()
	}
	logger.Info("LED点阵屏控制服务已安全关闭")
	return 0
}
