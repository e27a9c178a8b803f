// Package secure 提供公开链接使用的随机 token 与口令哈希.
package secure

import (
	"crypto/rand"
	"errors"
	"io"
)

// Alphabet token 字符集，62 个 URL 安全字符.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultTokenLength 链接 token 的默认长度.
const DefaultTokenLength = 32

// 大于等于该值的字节会引入取模偏差，直接丢弃.
const maxUnbiased = 256 - 256%len(Alphabet)

// ErrInvalidLength token 长度非法.
var ErrInvalidLength = errors.New("secure: token length must be positive")

// NewToken 从 crypto/rand 拒绝采样生成 n 位 token.
func NewToken(n int) (string, error) {
	return newToken(rand.Reader, n)
}

func newToken(r io.Reader, n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+8)

	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}

			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}
