package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-gin-gorm-auth/internal/domain"
)

const maxPageSize = 100

// RequireAdmin admin / super_admin 才能执行管理操作
func RequireAdmin(caller *domain.User) error {
	if caller == nil || !caller.Role.IsAdmin() {
		return domain.ErrInsufficientPrivilege
	}
	return nil
}

func (s *AuthService) directory() (domain.UserDirectory, error) {
	d, ok := s.store.(domain.UserDirectory)
	if !ok {
		return nil, domain.Storage("directory", errors.New("store does not implement UserDirectory"))
	}
	return d, nil
}

func (s *AuthService) ListUsers(ctx context.Context, caller *domain.User, offset, limit int, q string) ([]domain.User, int64, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, 0, err
	}
	d, err := s.directory()
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := d.ListUsers(ctx, offset, limit, q)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i].HashedPassword = ""
	}
	return users, total, nil
}

// loadTarget 查找被管理的账号；admin 不能改 super_admin
func (s *AuthService) loadTarget(ctx context.Context, caller *domain.User, email string) (*domain.User, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	u, err := s.store.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role == domain.RoleSuperAdmin && caller.Role != domain.RoleSuperAdmin {
		return nil, domain.ErrInsufficientPrivilege
	}
	return u, nil
}

// SetDisabled 软禁用/启用账号；禁用后登录与当前用户解析都会失败
func (s *AuthService) SetDisabled(ctx context.Context, caller *domain.User, email string, disabled bool) (*domain.User, error) {
	u, err := s.loadTarget(ctx, caller, email)
	if err != nil {
		return nil, err
	}
	if u.Email == caller.Email && disabled {
		return nil, fmt.Errorf("%w: cannot disable yourself", domain.ErrInvalidInput)
	}
	u.Disabled = disabled
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.opt.Logger.Info("user disabled flag changed",
		zap.String("email", u.Email), zap.Bool("disabled", disabled), zap.String("by", caller.Email))
	return sanitize(u), nil
}

// ResetPassword 管理员设置临时密码（用户下次需修改）
func (s *AuthService) ResetPassword(ctx context.Context, caller *domain.User, email, newPassword string) (*domain.User, error) {
	u, err := s.loadTarget(ctx, caller, email)
	if err != nil {
		return nil, err
	}
	hashed, err := s.hashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	u.HashedPassword = hashed
	u.IsTemporaryPassword = true
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.opt.Logger.Info("password reset", zap.String("email", u.Email), zap.String("by", caller.Email))
	return sanitize(u), nil
}

// ChangePassword 用户自行修改密码，清除临时密码标记
func (s *AuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (err error) {
	defer func() { observe("change_password", err) }()

	u, err := s.store.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, u.HashedPassword) {
		return domain.ErrInvalidCredentials
	}
	hashed, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.HashedPassword = hashed
	u.IsTemporaryPassword = false
	return s.store.UpsertUser(ctx, u)
}

// PurgeExpired 清理 refresh 资格已过期的 token 对
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	d, err := s.directory()
	if err != nil {
		return 0, err
	}
	n, err := d.PurgeExpiredTokenPairs(ctx, s.opt.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.opt.Logger.Info("expired token pairs purged", zap.Int64("count", n))
	}
	return n, nil
}
