// Package app 组装 api / admin 两个进程共用的依赖。
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-gorm-auth/internal/core/auth"
	"go-gin-gorm-auth/internal/core/cache"
	"go-gin-gorm-auth/internal/core/config"
	"go-gin-gorm-auth/internal/core/database"
	"go-gin-gorm-auth/internal/core/logger"
	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/internal/repo"
	"go-gin-gorm-auth/internal/service"
	"go-gin-gorm-auth/internal/transport/http/router"
	"go-gin-gorm-auth/pkg/utils"
)

// NewLogger 按配置构造 zap logger；log.file 非空时启用切割
func NewLogger(cfg *config.Config, svc string) (*zap.Logger, func()) {
	return logger.New(logger.Options{
		Service: svc,
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Filename:   cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		},
	})
}

// RedirectStdLog 标准库 log 转进 zap（info 级）
func RedirectStdLog(l *zap.Logger) func() { return logger.RedirectStdLog(l, zapcore.InfoLevel) }

type Deps struct {
	Store   domain.CredentialStore
	Service *service.AuthService
	closers []func() error
}

// Close 逆序释放（redis → db）
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

func Build(cfg *config.Config, l *zap.Logger) (*Deps, error) {
	d := &Deps{}

	store, err := d.openStore(cfg, l)
	if err != nil {
		d.Close()
		return nil, err
	}

	// redis 可选：配置了地址才启用用户缓存
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		d.closers = append(d.closers, c.Close)
		store = repo.NewCachedUsers(store, c, time.Duration(cfg.Auth.UserCacheTTLSec)*time.Second, l)
		l.Info("user cache enabled", zap.String("redis", cfg.Redis.Addr))
	}
	d.Store = store

	minter := &auth.JWTer{
		Secret: []byte(cfg.Auth.Secret),
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.AccessTTL(),
		Leeway: cfg.Auth.Leeway(),
	}
	d.Service = service.NewAuthService(store, utils.NewHasher(cfg.Auth.BcryptCost), minter, service.Options{
		RefreshTTL:   cfg.Auth.RefreshTTL(),
		Registration: cfg.Auth.Registration,
		Logger:       l,
	})
	return d, nil
}

func (d *Deps) openStore(cfg *config.Config, l *zap.Logger) (domain.CredentialStore, error) {
	if cfg.DB.Driver == "memory" {
		l.Warn("using in-memory credential store; data is lost on restart")
		return repo.NewMemoryStore(), nil
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	d.closers = append(d.closers, func() error { return database.Close(db) })
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return repo.NewCredentialStore(db), nil
}

// RouterOptions HTTP 层参数
func RouterOptions(cfg *config.Config) router.Options {
	return router.Options{CORSOrigins: cfg.App.CORS.AllowOrigins}
}
