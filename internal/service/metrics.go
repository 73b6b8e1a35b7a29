package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"go-gin-gorm-auth/internal/domain"
)

var authOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "auth_operations_total", Help: "Count of auth operations by outcome"},
	[]string{"op", "result"},
)

func init() { prometheus.MustRegister(authOps) }

// outcome 把错误归类为低基数标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStorage):
		return "storage_error"
	case errors.Is(err, domain.ErrDuplicateAccount):
		return "duplicate"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrInsufficientPrivilege):
		return "forbidden"
	}
	return "error"
}

func observe(op string, err error) {
	authOps.WithLabelValues(op, outcome(err)).Inc()
}
