package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-auth/internal/domain"
	httpez "go-gin-gorm-auth/internal/transport/http/ez"
)

// UserResolver 由 service.AuthService 实现
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, accessToken string) (*domain.User, error)
}

// BearerToken 取 Authorization: Bearer xxx；scheme 不区分大小写
func BearerToken(c *gin.Context) (string, bool) {
	ah := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(ah[7:])
	return tok, tok != ""
}

// Auth 要求登录；roles 非空时还要求角色命中
func Auth(r UserResolver, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c)
		if !ok {
			httpez.Abort(c, domain.ErrUnauthenticated)
			return
		}
		u, err := r.ResolveCurrentUser(c.Request.Context(), tok)
		if err != nil {
			httpez.Abort(c, err)
			return
		}
		if len(roles) > 0 && !roleIn(u.Role, roles) {
			httpez.Abort(c, domain.ErrInsufficientPrivilege)
			return
		}
		c.Set(httpez.KeyUser, u)
		c.Next()
	}
}

// OptionalAuth 没带 token 直接放行；带了就必须有效
func OptionalAuth(r UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c)
		if !ok {
			c.Next()
			return
		}
		u, err := r.ResolveCurrentUser(c.Request.Context(), tok)
		if err != nil {
			httpez.Abort(c, err)
			return
		}
		c.Set(httpez.KeyUser, u)
		c.Next()
	}
}

func roleIn(role domain.Role, roles []domain.Role) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
