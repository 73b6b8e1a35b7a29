package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/internal/service"
	httpez "go-gin-gorm-auth/internal/transport/http/ez"
	mdw "go-gin-gorm-auth/internal/transport/http/middleware"
)

type registerIn struct {
	Email               string `json:"email"      binding:"required,email"`
	Password            string `json:"password"   binding:"required"`
	FirstName           string `json:"first_name" binding:"omitempty,max=64"`
	LastName            string `json:"last_name"  binding:"omitempty,max=64"`
	IsTemporaryPassword bool   `json:"is_temporary_password"`
}

func (in *registerIn) toInput() service.RegisterInput {
	return service.RegisterInput{
		Email:               in.Email,
		Password:            in.Password,
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		IsTemporaryPassword: in.IsTemporaryPassword,
	}
}

func registerAction(svc *service.AuthService) httpez.Action[registerIn, *domain.User] {
	return httpez.Action[registerIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerIn) (*domain.User, error) {
			return svc.Register(c.Request.Context(), httpez.CurrentUser(c), in.toInput())
		},
	}
}

// ---------- 动作注册：register / login / refresh / me / hello / password ----------
func mountAuthActions(api *gin.RouterGroup, svc *service.AuthService) {
	ezPublic := httpez.New(api)

	// 注册：匿名可用；privileged 模式下需带 super_admin 的 token
	optional := api.Group("")
	optional.Use(mdw.OptionalAuth(svc))

	// 鉴权分组
	authUser := api.Group("")
	authUser.Use(mdw.Auth(svc))

	httpez.RegisterAction(httpez.New(optional), registerAction(svc))

	// /login：表单（username 兼容 OAuth2 password 表单）或 JSON
	type loginIn struct {
		Email    string `form:"email"    json:"email"    binding:"omitempty,email"`
		Username string `form:"username" json:"username" binding:"omitempty,email"`
		Password string `form:"password" json:"password" binding:"required"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[loginIn, *domain.TokenPair]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindAuto,
		Handler: func(c *gin.Context, in *loginIn) (*domain.TokenPair, error) {
			email := in.Email
			if email == "" {
				email = in.Username
			}
			if strings.TrimSpace(email) == "" {
				return nil, httpez.BadRequest("email is required")
			}
			return svc.Login(c.Request.Context(), email, in.Password)
		},
	})

	// /refresh：access_token 可放 body，也可走 Authorization 头
	type refreshIn struct {
		AccessToken  string `form:"access_token"  json:"access_token"`
		RefreshToken string `form:"refresh_token" json:"refresh_token"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[refreshIn, *domain.TokenPair]{
		Method: http.MethodPost,
		Path:   "/refresh",
		Binder: httpez.BindAuto,
		Handler: func(c *gin.Context, in *refreshIn) (*domain.TokenPair, error) {
			access := in.AccessToken
			if access == "" {
				access, _ = mdw.BearerToken(c)
			}
			return svc.RefreshPair(c.Request.Context(), access, in.RefreshToken)
		},
	})

	ezAuth := httpez.New(authUser)

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return httpez.CurrentUser(c), nil
		},
	})

	type helloOut struct {
		Message   string      `json:"message"`
		UserEmail string      `json:"user_email"`
		UserRole  domain.Role `json:"user_role"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, helloOut]{
		Method: http.MethodGet,
		Path:   "/hello",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (helloOut, error) {
			u := httpez.CurrentUser(c)
			return helloOut{
				Message:   "Hello, " + u.DisplayName() + "!",
				UserEmail: u.Email,
				UserRole:  u.Role,
			}, nil
		},
	})

	type passwordIn struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[passwordIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *passwordIn) (gin.H, error) {
			u := httpez.CurrentUser(c)
			if err := svc.ChangePassword(c.Request.Context(), u.Email, in.OldPassword, in.NewPassword); err != nil {
				return nil, err
			}
			return gin.H{"email": u.Email}, nil
		},
	})
}
