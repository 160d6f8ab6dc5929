package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a 26-char lowercase ULID. IDs minted in the same millisecond still sort in
// creation order.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}

// Valid reports whether s is a ULID in the form produced by New.
func Valid(s string) bool {
	if len(s) != ulid.EncodedSize || s != strings.ToLower(s) {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}
