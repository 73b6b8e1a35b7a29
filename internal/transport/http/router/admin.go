package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/internal/service"
	httpez "go-gin-gorm-auth/internal/transport/http/ez"
	mdw "go-gin-gorm-auth/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, svc *service.AuthService, o Options) *gin.Engine {
	r := newEngine(l, "admin", o)

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.Auth(svc, domain.RoleAdmin, domain.RoleSuperAdmin))

	MountAllAdmin(admin, svc)
	return r
}

// MountAdminActions 管理端接口集中在这里注册
func MountAdminActions(admin *gin.RouterGroup, svc *service.AuthService) {
	ez := httpez.New(admin)

	// --- POST /admin/v1/register  代他人注册（privileged 模式下需 super_admin） ---
	httpez.RegisterAction(ez, registerAction(svc))

	// --- GET /admin/v1/users  用户列表 ---
	type listQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
		Q      string `form:"q"` // 按 email/name 模糊搜
	}
	type listOut struct {
		Total int64         `json:"total"`
		Items []domain.User `json:"items"`
	}
	httpez.RegisterAction(ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			users, total, err := svc.ListUsers(c.Request.Context(), httpez.CurrentUser(c), in.Offset, in.Limit, in.Q)
			if err != nil {
				return listOut{}, err
			}
			if users == nil {
				users = []domain.User{}
			}
			return listOut{Total: total, Items: users}, nil
		},
	})

	// --- POST /admin/v1/users/:email/disable | enable ---
	setDisabled := func(disabled bool) func(c *gin.Context, _ *struct{}) (*domain.User, error) {
		return func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			email := c.Param("email")
			if email == "" {
				return nil, httpez.BadRequest("missing email")
			}
			return svc.SetDisabled(c.Request.Context(), httpez.CurrentUser(c), email, disabled)
		}
	}
	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPost, Path: "/users/:email/disable", Binder: httpez.BindNone, Auth: true,
		Handler: setDisabled(true),
	})
	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPost, Path: "/users/:email/enable", Binder: httpez.BindNone, Auth: true,
		Handler: setDisabled(false),
	})

	// --- POST /admin/v1/users/:email/reset-password  设临时密码 ---
	type resetIn struct {
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(ez, httpez.Action[resetIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:email/reset-password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *resetIn) (*domain.User, error) {
			return svc.ResetPassword(c.Request.Context(), httpez.CurrentUser(c), c.Param("email"), in.Password)
		},
	})

	// --- POST /admin/v1/tokens/purge  清理过期 token 对 ---
	type purgeOut struct {
		Purged int64 `json:"purged"`
	}
	httpez.RegisterAction(ez, httpez.Action[struct{}, purgeOut]{
		Method: http.MethodPost,
		Path:   "/tokens/purge",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []string{string(domain.RoleAdmin), string(domain.RoleSuperAdmin)},
		Handler: func(c *gin.Context, _ *struct{}) (purgeOut, error) {
			n, err := svc.PurgeExpired(c.Request.Context())
			return purgeOut{Purged: n}, err
		},
	})
}
