package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/pkg/utils"
)

// RefreshTokenBytes refresh token 的随机字节数
const RefreshTokenBytes = 32

type Claims struct {
	jwt.RegisteredClaims
}

// JWTer 签发/校验 access token（HS256），签发 refresh token（不透明随机串）
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	Now    func() time.Time // 测试注入；nil 用 time.Now
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// IssueAccess 以默认 TTL 签发
func (j *JWTer) IssueAccess(subject string) (string, time.Time, error) {
	return j.IssueAccessTTL(subject, j.TTL)
}

func (j *JWTer) IssueAccessTTL(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	now := j.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			// 同一秒内签发的两个 token 也要不同
			ID: jti(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

func (j *JWTer) IssueRefresh() (string, error) {
	return utils.RandomURLSafe(RefreshTokenBytes)
}

// Verify 返回 subject；过期 → domain.ErrTokenExpired，其余失败 → domain.ErrInvalidToken
func (j *JWTer) Verify(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.Leeway),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	var c Claims
	t, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		// 签名无效时不报告过期
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrInvalidToken
	}
	if !t.Valid || c.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return c.Subject, nil
}

func jti() string {
	s, err := utils.RandomURLSafe(9)
	if err != nil {
		return ""
	}
	return s
}
