package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunPurger 按 interval 周期清理过期 token 对，ctx 取消后返回
func (s *AuthService) RunPurger(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				s.opt.Logger.Warn("purge expired token pairs failed", zap.Error(err))
			}
		}
	}
}
