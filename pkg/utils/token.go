package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomSecret 生成 n 字节的随机密钥，base64url 编码（无填充）
func RandomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
