package model

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// ID 前缀.
const (
	PrefixFolder   = "fo_"
	PrefixFile     = "fi_"
	PrefixShare    = "sh_"
	PrefixLink     = "lk_"
	PrefixStar     = "st_"
	PrefixActivity = "ac_"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewID 生成带前缀的 ULID，同一毫秒内单调递增.
func NewID(prefix string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return prefix + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
