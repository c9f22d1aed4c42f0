package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key joins prefix and parts with ':'. Empty parts are skipped so optional
// segments do not leave '::' in keys.
func Key(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		s := fmt.Sprint(p)
		if s == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// Digest returns the hex sha256 of b truncated to n characters. n <= 0 or
// beyond the full length returns the whole digest.
func Digest(b []byte, n int) string {
	sum := sha256.Sum256(b)
	s := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}
