package secure

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations PBKDF2 默认迭代次数.
	DefaultIterations = 100000
	// DefaultSaltBytes 默认盐长度.
	DefaultSaltBytes = 16
	keyBytes         = 32
)

// ErrMalformedHash 存储的哈希格式不是 iterations:saltHex:hashHex.
var ErrMalformedHash = errors.New("secure: malformed password hash")

// Hasher PBKDF2-SHA256 口令哈希参数.
type Hasher struct {
	Iterations int
	SaltBytes  int
}

// NewHasher 参数非法时回落到默认值.
func NewHasher(iterations, saltBytes int) Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	if saltBytes <= 0 {
		saltBytes = DefaultSaltBytes
	}

	return Hasher{Iterations: iterations, SaltBytes: saltBytes}
}

// Hash 返回 iterations:saltHex:hashHex.
func (h Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.Iterations, keyBytes, sha256.New)

	return fmt.Sprintf("%d:%s:%s", h.Iterations, hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// Verify 使用存储的迭代次数与盐重新派生并做恒定时间比较.
func Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return false, ErrMalformedHash
	}

	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false, ErrMalformedHash
	}

	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, ErrMalformedHash
	}

	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)

	return ConstantTimeEqual(got, want), nil
}

// ConstantTimeEqual 逐字节异或累积，不在第一个不同字节处提前返回.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}

	return diff == 0
}
