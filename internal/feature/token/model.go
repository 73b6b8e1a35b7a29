package token

import (
	"time"

	"go-gin-gorm-auth/internal/domain"
)

// TokenModel tokens 表；一行即一对 access/refresh token
type TokenModel struct {
	AccessToken  string    `gorm:"primaryKey;size:512"`
	RefreshToken string    `gorm:"size:64;not null;uniqueIndex"`
	UserID       string    `gorm:"size:191;not null;index"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	TokenType    string    `gorm:"size:16;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (TokenModel) TableName() string { return "tokens" }

var UpsertColumns = []string{"refresh_token", "user_id", "expires_at", "token_type"}

func FromDomain(p *domain.TokenPair) *TokenModel {
	return &TokenModel{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		UserID:       p.UserID,
		ExpiresAt:    time.Unix(p.ExpiresAt, 0).UTC(),
		TokenType:    p.TokenType,
		CreatedAt:    p.CreatedAt,
	}
}

func (m *TokenModel) ToDomain() *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		UserID:       m.UserID,
		ExpiresAt:    m.ExpiresAt.Unix(),
		TokenType:    m.TokenType,
		CreatedAt:    m.CreatedAt,
	}
}
