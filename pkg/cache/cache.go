// Package cache holds the key/value policies shared by answer and reference
// lookups. Every policy satisfies Cache so a use site picks one at wiring time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bytedance/sonic"
)

type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
}

// Fingerprint keys an utterance and its context. Text is lowercased, trimmed
// and whitespace-collapsed so trivially different inputs share an entry.
func Fingerprint(utterance string, ctx any) string {
	norm := strings.Join(strings.Fields(strings.ToLower(utterance)), " ")
	raw, err := sonic.Marshal(ctx)
	if err != nil {
		raw = []byte("null")
	}
	sum := sha256.Sum256([]byte(norm + "\x00" + string(raw)))
	return hex.EncodeToString(sum[:])
}
