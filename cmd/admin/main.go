package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-gorm-auth/internal/app"
	"go-gin-gorm-auth/internal/core/config"
	"go-gin-gorm-auth/internal/core/server"
	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg, "auth-admin")
	defer cleanup()
	defer app.RedirectStdLog(log)()

	deps, err := app.Build(cfg, log)
	if err != nil {
		log.Fatal("build dependencies", zap.Error(err))
	}
	defer deps.Close()

	// 首个管理员账号（带外创建，已存在则跳过）
	if cfg.Bootstrap.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := deps.Service.Bootstrap(ctx, cfg.Bootstrap.Email, cfg.Bootstrap.Password, domain.Role(cfg.Bootstrap.Role))
		cancel()
		if err != nil {
			log.Fatal("bootstrap account", zap.Error(err))
		}
		log.Info("bootstrap account", zap.String("email", cfg.Bootstrap.Email), zap.Bool("created", created))
	}

	// 路由（后台端）
	r := router.NewAdminEngine(log, deps.Service, app.RouterOptions(cfg))

	// HTTP Server
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	// 启动前打印可点击地址
	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	// 异步启动；失败立即标红退出
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()
	log.Info("admin api started SUCCESS")

	// 关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}
