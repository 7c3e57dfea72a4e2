package ports

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	httpapi "github.com/bujia-iot/multiverse-display/internal/adapter/http"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/config"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/gin-gonic/gin"
)

// HTTPServer 管理接口服务器
type HTTPServer struct {
	cfg      config.HTTPAPIServerConfig
	handlers *httpapi.Handlers
}

// NewHTTPServer 创建HTTP服务器
func NewHTTPServer(cfg config.HTTPAPIServerConfig, handlers *httpapi.Handlers) *HTTPServer {
	return &HTTPServer{cfg: cfg, handlers: handlers}
}

// Engine 创建并注册路由的Gin引擎
func (s *HTTPServer) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	httpapi.RegisterRoutes(r, s.handlers)
	return r
}

// Run 启动HTTP服务器并阻塞到 ctx 取消
func (s *HTTPServer) Run(ctx context.Context) error {
	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Engine(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API服务器启动在 %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(errors.ErrTransportFailed, "http server", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("HTTP服务器关闭失败: %v", err)
		}
		logger.Info("HTTP API服务器已停止")
		return nil
	}
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP请求")
	}
}
