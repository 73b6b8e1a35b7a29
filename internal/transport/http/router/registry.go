package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-auth/internal/service"
)

// APIModule / AdminModule 模块可选择实现其中一个或两个接口；挂载时拿到共享的 AuthService
type APIModule interface {
	MountAPI(g *gin.RouterGroup, svc *service.AuthService)
}
type AdminModule interface {
	MountAdmin(g *gin.RouterGroup, svc *service.AuthService)
}

// 可选：实现该接口可控制挂载顺序（数值越小越先挂），不实现则默认 100
type prioritizer interface{ Priority() int }

var (
	mu        sync.RWMutex
	apiMods   []APIModule
	adminMods []AdminModule
)

// Register 在 init 中调用；按类型断言分发到 API/Admin 列表
func Register(mod any) {
	mu.Lock()
	defer mu.Unlock()
	if m, ok := mod.(APIModule); ok {
		apiMods = append(apiMods, m)
	}
	if m, ok := mod.(AdminModule); ok {
		adminMods = append(adminMods, m)
	}
}

func sorted[T any](mods []T) []T {
	out := append([]T(nil), mods...)
	sort.SliceStable(out, func(i, j int) bool { return priorityOf(out[i]) < priorityOf(out[j]) })
	return out
}

// MountAllAPI 在 /api/v1 上挂载所有已注册的 API 模块
func MountAllAPI(api *gin.RouterGroup, svc *service.AuthService) {
	mu.RLock()
	mods := sorted(apiMods)
	mu.RUnlock()
	for _, m := range mods {
		m.MountAPI(api, svc)
	}
}

// MountAllAdmin 在 /admin/v1 上挂载所有已注册的 Admin 模块
func MountAllAdmin(admin *gin.RouterGroup, svc *service.AuthService) {
	mu.RLock()
	mods := sorted(adminMods)
	mu.RUnlock()
	for _, m := range mods {
		m.MountAdmin(admin, svc)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
