// Package service 认证核心：注册、登录、token 轮换、当前用户解析。
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/pkg/utils"
)

const (
	RegistrationOpen       = "open"
	RegistrationPrivileged = "privileged"
)

type Hasher interface {
	Hash(pw string) (string, error)
	Verify(pw, hashed string) bool
	NeedsRehash(hashed string) bool
}

type Minter interface {
	IssueAccess(subject string) (string, time.Time, error)
	IssueRefresh() (string, error)
	Verify(token string) (string, error)
}

type Options struct {
	RefreshTTL   time.Duration
	Registration string
	Now          func() time.Time
	Logger       *zap.Logger
}

type AuthService struct {
	store  domain.CredentialStore
	hasher Hasher
	minter Minter
	opt    Options

	dummyOnce sync.Once
	dummy     string
}

func NewAuthService(store domain.CredentialStore, h Hasher, m Minter, opt Options) *AuthService {
	if opt.RefreshTTL <= 0 {
		opt.RefreshTTL = 7 * 24 * time.Hour
	}
	if opt.Registration == "" {
		opt.Registration = RegistrationOpen
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &AuthService{store: store, hasher: h, minter: m, opt: opt}
}

func (s *AuthService) RegistrationMode() string { return s.opt.Registration }

type RegisterInput struct {
	Email               string
	Password            string
	FirstName           string
	LastName            string
	IsTemporaryPassword bool
}

// Register 创建账号；角色固定为 user。privileged 模式下调用者必须是 super_admin
func (s *AuthService) Register(ctx context.Context, caller *domain.User, in RegisterInput) (out *domain.User, err error) {
	defer func() { observe("register", err) }()

	if s.opt.Registration == RegistrationPrivileged {
		if caller == nil || caller.Role != domain.RoleSuperAdmin {
			return nil, domain.ErrInsufficientPrivilege
		}
	}
	email := domain.NormalizeEmail(in.Email)
	if !domain.ValidEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", domain.ErrInvalidInput)
	}
	switch _, err := s.store.FindUserByEmail(ctx, email); {
	case err == nil:
		return nil, domain.ErrDuplicateAccount
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	hashed, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:               email,
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		Role:                domain.RoleUser,
		HashedPassword:      hashed,
		IsTemporaryPassword: in.IsTemporaryPassword,
		Disabled:            false,
		CreatedAt:           s.opt.Now().UTC(),
	}
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.opt.Logger.Info("user registered", zap.String("email", email))
	return sanitize(u), nil
}

// Bootstrap 带外创建账号（可指定角色）；账号已存在时不做修改，返回 created=false
func (s *AuthService) Bootstrap(ctx context.Context, email, password string, role domain.Role) (created bool, err error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return false, fmt.Errorf("%w: malformed email", domain.ErrInvalidInput)
	}
	if !role.Valid() {
		return false, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	switch _, err := s.store.FindUserByEmail(ctx, email); {
	case err == nil:
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}
	hashed, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}
	u := &domain.User{Email: email, Role: role, HashedPassword: hashed, CreatedAt: s.opt.Now().UTC()}
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return false, err
	}
	s.opt.Logger.Info("bootstrap account created", zap.String("email", email), zap.String("role", string(role)))
	return true, nil
}

// Login 校验密码并签发新的 token 对。不存在/密码错/已禁用 一律 ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email, password string) (pair *domain.TokenPair, err error) {
	defer func() { observe("login", err) }()

	email = domain.NormalizeEmail(email)
	u, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		// 与真实校验耗时对齐
		s.hasher.Verify(password, s.dummyHash())
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, u.HashedPassword) || u.Disabled {
		return nil, domain.ErrInvalidCredentials
	}

	pair, err = s.mintPair(u.Email)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertTokenPair(ctx, pair); err != nil {
		return nil, err
	}
	if s.hasher.NeedsRehash(u.HashedPassword) {
		s.rehash(ctx, u, password)
	}
	s.opt.Logger.Info("user logged in", zap.String("email", u.Email))
	return pair, nil
}

// Refresh 以 access token 为键轮换 token 对
func (s *AuthService) Refresh(ctx context.Context, accessToken string) (*domain.TokenPair, error) {
	return s.RefreshPair(ctx, accessToken, "")
}

// RefreshPair 同 Refresh；refreshToken 非空时必须与存储的一致。
// 事务内：加锁查找 → 过期检查 → 确认持有人仍可用 → 签发 → 写入新记录 → 删除旧记录
func (s *AuthService) RefreshPair(ctx context.Context, accessToken, refreshToken string) (out *domain.TokenPair, err error) {
	defer func() { observe("refresh", err) }()

	if accessToken == "" {
		return nil, domain.ErrInvalidToken
	}
	err = s.store.WithTx(ctx, func(tx domain.CredentialStore) error {
		old, err := tx.FindTokenPairByAccessToken(ctx, accessToken)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if refreshToken != "" && subtle.ConstantTimeCompare([]byte(refreshToken), []byte(old.RefreshToken)) != 1 {
			return domain.ErrInvalidToken
		}
		if old.Expired(s.opt.Now()) {
			return domain.ErrTokenExpired
		}
		owner, err := tx.FindUserByEmail(ctx, old.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if owner.Disabled {
			return domain.ErrInvalidToken
		}
		next, err := s.mintPair(old.UserID)
		if err != nil {
			return err
		}
		if err := tx.UpsertTokenPair(ctx, next); err != nil {
			return err
		}
		if err := tx.DeleteTokenPairByAccessToken(ctx, old.AccessToken); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.opt.Logger.Info("token pair rotated", zap.String("email", out.UserID))
	return out, nil
}

// ResolveCurrentUser 签名/过期校验 → 确认 token 对仍然有效（未被轮换）→ 查用户
func (s *AuthService) ResolveCurrentUser(ctx context.Context, accessToken string) (u *domain.User, err error) {
	defer func() { observe("resolve", err) }()

	subject, err := s.minter.Verify(accessToken)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	pair, err := s.store.FindTokenPairByAccessToken(ctx, accessToken)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if pair.UserID != subject {
		return nil, domain.ErrUnauthenticated
	}
	u, err = s.store.FindUserByEmail(ctx, subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if u.Disabled {
		return nil, domain.ErrUnauthenticated
	}
	return sanitize(u), nil
}

func (s *AuthService) mintPair(subject string) (*domain.TokenPair, error) {
	access, _, err := s.minter.IssueAccess(subject)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.minter.IssueRefresh()
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	now := s.opt.Now()
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       subject,
		ExpiresAt:    now.Add(s.opt.RefreshTTL).Unix(),
		TokenType:    domain.TokenTypeBearer,
		CreatedAt:    now.UTC(),
	}, nil
}

func (s *AuthService) hashPassword(pw string) (string, error) {
	hashed, err := s.hasher.Hash(pw)
	if errors.Is(err, utils.ErrEmptyPassword) || errors.Is(err, utils.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

// rehash cost 变更后登录时顺带升级；失败只记日志
func (s *AuthService) rehash(ctx context.Context, u *domain.User, pw string) {
	hashed, err := s.hasher.Hash(pw)
	if err != nil {
		return
	}
	next := *u
	next.HashedPassword = hashed
	if err := s.store.UpsertUser(ctx, &next); err != nil {
		s.opt.Logger.Warn("password rehash failed", zap.String("email", u.Email), zap.Error(err))
	}
}

// fallbackDummyHash 随机口令的 bcrypt(cost=10) 摘要，hasher 不可用时顶替
const fallbackDummyHash = "$2a$10$kE5mycnmMluFQQMdETDCc.0wIdoiZENe5aCkITt5bu92zDne2QXYi"

// dummyHash 未知账号登录时用来空跑一次 Verify，耗时与真实校验一致
func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy = fallbackDummyHash
		r, err := utils.RandomURLSafe(16)
		if err != nil {
			return
		}
		h, err := s.hasher.Hash(r)
		if err != nil {
			s.opt.Logger.Warn("dummy hash failed, using fallback digest", zap.Error(err))
			return
		}
		s.dummy = h
	})
	return s.dummy
}

// sanitize 返回不含密码摘要的副本
func sanitize(u *domain.User) *domain.User {
	out := *u
	out.HashedPassword = ""
	return &out
}
