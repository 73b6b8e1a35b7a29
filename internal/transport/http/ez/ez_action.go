package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-auth/internal/domain"
	resp "go-gin-gorm-auth/internal/transport/http/response"
)

// KeyUser 鉴权中间件写入的当前用户（*domain.User）
const KeyUser = "currentUser"

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindAuto  Binder = "auto"  // 按 Content-Type（JSON / form）
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}
func (e *AErr) Unwrap() error { return e.Err }

// BadRequest handler 自行校验入参失败时用；其余状态码由 FromError 从领域错误推出
func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }

// FromError 业务错误 → HTTP 语义；存储错误与未知错误一律 500 且不带细节
func FromError(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrDuplicateAccount):
		return &AErr{Code: resp.CodeBadRequest, Msg: domain.ErrDuplicateAccount.Error(), Err: err}
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRecord):
		return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrUnauthenticated):
		return &AErr{Code: resp.CodeUnauthorized, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrInsufficientPrivilege):
		return &AErr{Code: resp.CodeForbidden, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrUserNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: err.Error(), Err: err}
	}
	return &AErr{Code: resp.CodeServerError, Msg: "internal error", Err: err}
}

// Abort 写错误响应；401 附带 WWW-Authenticate，500 记入 c.Errors 供日志
func Abort(c *gin.Context, err error) {
	ae := FromError(err)
	if ae.Code == resp.CodeUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	if ae.Code >= resp.CodeServerError && ae.Err != nil {
		_ = c.Error(ae.Err)
	}
	c.AbortWithStatusJSON(ae.Code, resp.Error(ae.Code, ae.Error()))
}

// CurrentUser 取鉴权中间件放入的用户；未登录返回 nil
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(KeyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/login"、"/users/:email/disable"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录
	Roles   []string // 限定角色（可选）
	Status  int      // 成功时的 HTTP 状态，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth {
			u := CurrentUser(c)
			if u == nil {
				Abort(c, domain.ErrUnauthenticated)
				return
			}
			if len(a.Roles) > 0 && !hasRole(u.Role, a.Roles) {
				Abort(c, domain.ErrInsufficientPrivilege)
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindAuto:
			bindErr = c.ShouldBind(&in)
		}
		if bindErr != nil {
			Abort(c, BadRequest(bindErr.Error()))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			Abort(c, err)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

func hasRole(role domain.Role, roles []string) bool {
	for _, r := range roles {
		if string(role) == r {
			return true
		}
	}
	return false
}
