package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-gin-gorm-auth/internal/core/cache"
	"go-gin-gorm-auth/internal/domain"
)

// cachedUser 缓存条目；包含 hash 以便登录也能命中
type cachedUser struct {
	Email               string      `json:"email"`
	FirstName           string      `json:"first_name"`
	LastName            string      `json:"last_name"`
	Role                domain.Role `json:"role"`
	HashedPassword      string      `json:"hashed_password"`
	IsTemporaryPassword bool        `json:"is_temporary_password"`
	Disabled            bool        `json:"disabled"`
	CreatedAt           time.Time   `json:"created_at"`
}

// CachedUsers 在 CredentialStore 外包一层 redis 读缓存（仅 FindUserByEmail），UpsertUser 时失效。
// 事务内的写在提交后再失效一次，避免提交前被并发读回填旧行
type CachedUsers struct {
	domain.CredentialStore
	Cache *cache.Cache
	TTL   time.Duration
	Log   *zap.Logger

	touched *[]string // 仅事务内非 nil
}

func NewCachedUsers(inner domain.CredentialStore, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedUsers {
	if l == nil {
		l = zap.NewNop()
	}
	return &CachedUsers{CredentialStore: inner, Cache: c, TTL: ttl, Log: l}
}

func userKey(email string) string { return "auth:user:" + email }

func (s *CachedUsers) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	cu, err := cache.GetOrLoadJSON(ctx, s.Cache, userKey(email), s.TTL, func(ctx context.Context) (cachedUser, error) {
		u, err := s.CredentialStore.FindUserByEmail(ctx, email)
		if err != nil {
			return cachedUser{}, err
		}
		return cachedUser(*u), nil
	})
	if err != nil {
		return nil, err
	}
	u := domain.User(cu)
	return &u, nil
}

func (s *CachedUsers) UpsertUser(ctx context.Context, u *domain.User) error {
	if err := s.CredentialStore.UpsertUser(ctx, u); err != nil {
		return err
	}
	if s.touched != nil {
		*s.touched = append(*s.touched, u.Email)
	}
	s.invalidate(ctx, u.Email)
	return nil
}

func (s *CachedUsers) invalidate(ctx context.Context, emails ...string) {
	keys := make([]string, len(emails))
	for i, e := range emails {
		keys[i] = userKey(e)
	}
	if err := s.Cache.Invalidate(ctx, keys...); err != nil {
		s.Log.Warn("user cache invalidate failed", zap.Strings("emails", emails), zap.Error(err))
	}
}

func (s *CachedUsers) WithTx(ctx context.Context, fn func(tx domain.CredentialStore) error) error {
	if s.touched != nil {
		return fn(s)
	}
	var touched []string
	err := s.CredentialStore.WithTx(ctx, func(tx domain.CredentialStore) error {
		return fn(&CachedUsers{CredentialStore: tx, Cache: s.Cache, TTL: s.TTL, Log: s.Log, touched: &touched})
	})
	if err == nil && len(touched) > 0 {
		s.invalidate(ctx, touched...)
	}
	return err
}

// ListUsers/PurgeExpiredTokenPairs 透传给内层（若支持）
func (s *CachedUsers) ListUsers(ctx context.Context, offset, limit int, q string) ([]domain.User, int64, error) {
	d, ok := s.CredentialStore.(domain.UserDirectory)
	if !ok {
		return nil, 0, domain.Storage("list users", errNoDirectory)
	}
	return d.ListUsers(ctx, offset, limit, q)
}

func (s *CachedUsers) PurgeExpiredTokenPairs(ctx context.Context, before time.Time) (int64, error) {
	d, ok := s.CredentialStore.(domain.UserDirectory)
	if !ok {
		return 0, domain.Storage("purge token pairs", errNoDirectory)
	}
	return d.PurgeExpiredTokenPairs(ctx, before)
}
