package domain

import (
	"context"
	"fmt"
	"time"
)

const TokenTypeBearer = "bearer"

// TokenPair 一次登录/刷新产生的凭证；以 access token 为主键
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"-"`
	ExpiresAt    int64     `json:"-"` // unix 秒，refresh 资格截止
	TokenType    string    `json:"token_type"`
	CreatedAt    time.Time `json:"-"`
}

func (p *TokenPair) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil token pair", ErrInvalidRecord)
	case p.AccessToken == "" || p.RefreshToken == "":
		return fmt.Errorf("%w: missing token", ErrInvalidRecord)
	case p.UserID == "":
		return fmt.Errorf("%w: missing owner", ErrInvalidRecord)
	case p.TokenType != TokenTypeBearer:
		return fmt.Errorf("%w: token type %q", ErrInvalidRecord, p.TokenType)
	}
	return nil
}

// Expired 以 wall clock 判断存储过期时间
func (p *TokenPair) Expired(now time.Time) bool { return now.Unix() > p.ExpiresAt }

// CredentialStore 用户与 token 的持久化抽象。
// 查不到返回 ErrNotFound；其余错误均为 *StorageError。
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpsertUser(ctx context.Context, u *User) error
	FindTokenPairByAccessToken(ctx context.Context, token string) (*TokenPair, error)
	UpsertTokenPair(ctx context.Context, p *TokenPair) error
	DeleteTokenPairByAccessToken(ctx context.Context, token string) error

	// WithTx 在一个事务内执行 fn；fn 返回 nil 提交，否则回滚
	WithTx(ctx context.Context, fn func(tx CredentialStore) error) error
}

// UserDirectory 管理端使用的查询与清理
type UserDirectory interface {
	ListUsers(ctx context.Context, offset, limit int, q string) ([]User, int64, error)
	PurgeExpiredTokenPairs(ctx context.Context, before time.Time) (int64, error)
}
