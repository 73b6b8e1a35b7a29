package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-auth/internal/core/server"
	"go-gin-gorm-auth/internal/service"
	mdw "go-gin-gorm-auth/internal/transport/http/middleware"
)

// Options 两个 engine 共用的 HTTP 层参数
type Options struct {
	CORSOrigins  []string
	MaxInFlight  int64
	MaxBodyBytes int64
	Timeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

func newEngine(l *zap.Logger, name string, o Options) *gin.Engine {
	o = o.withDefaults()
	r := server.NewRouter(l, o.CORSOrigins)
	r.Use(
		mdw.RequestID(),
		mdw.ConcurrencyLimit(o.MaxInFlight),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout),
		mdw.Metrics(name),
		mdw.AccessLog(l),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	return r
}

func NewAPIEngine(l *zap.Logger, svc *service.AuthService, o Options) *gin.Engine {
	r := newEngine(l, "api", o)
	MountAllAPI(r.Group("/api/v1"), svc)
	return r
}
