package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-gin-gorm-auth/internal/service"
)

// opsModule 运维端点；两侧都挂 /metrics（admin 侧在鉴权之后）
type opsModule struct{}

func (opsModule) MountAPI(g *gin.RouterGroup, _ *service.AuthService) {
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
func (opsModule) MountAdmin(g *gin.RouterGroup, _ *service.AuthService) {
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
func (opsModule) Priority() int { return 0 }

// authModule 用户端账号接口 + 管理端接口
type authModule struct{}

func (authModule) MountAPI(g *gin.RouterGroup, svc *service.AuthService)   { mountAuthActions(g, svc) }
func (authModule) MountAdmin(g *gin.RouterGroup, svc *service.AuthService) { MountAdminActions(g, svc) }

func init() {
	Register(opsModule{})
	Register(authModule{})
}
