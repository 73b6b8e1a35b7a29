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
	"go-gin-gorm-auth/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg, "auth-api")
	defer cleanup()
	defer app.RedirectStdLog(log)()

	// 依赖（DB 失败直接 Fatal）
	deps, err := app.Build(cfg, log)
	if err != nil {
		log.Fatal("build dependencies", zap.Error(err))
	}
	defer deps.Close()

	// 过期 token 对定期清理
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.Auth.PurgeIntervalMin > 0 {
		go deps.Service.RunPurger(ctx, time.Duration(cfg.Auth.PurgeIntervalMin)*time.Minute)
	}

	// 路由（用户端）
	r := router.NewAPIEngine(log, deps.Service, app.RouterOptions(cfg))

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.String("registration", cfg.Auth.Registration),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("user api start FAILED", zap.Error(err))
		}
	}()
	log.Info("user api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("user api stopped gracefully")
}
