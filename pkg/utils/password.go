package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher bcrypt 封装；盐与 cost 都编码在摘要里
type Hasher struct {
	Cost int
}

// NewHasher cost 越界时回落到 bcrypt.DefaultCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(pw string) (string, error) {
	if pw == "" {
		return "", ErrEmptyPassword
	}
	if len(pw) > 72 {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 摘要格式错误时返回 false
func (h *Hasher) Verify(pw, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// NeedsRehash 摘要 cost 与当前配置不一致（或无法解析）
func (h *Hasher) NeedsRehash(hashed string) bool {
	c, err := bcrypt.Cost([]byte(hashed))
	return err != nil || c != h.Cost
}
