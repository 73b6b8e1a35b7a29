package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomURLSafe n 字节随机数的 base64url（无填充）
func RandomURLSafe(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
