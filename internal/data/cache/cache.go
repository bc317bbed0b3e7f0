// Package cache provides the TTL query cache used by repository decorators.
// Values are serialized bytes so the in-process and Redis stores are
// interchangeable. A cache failure is never a correctness failure: misses
// and store errors fall through to the data source.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the backing cache. Implementations must be safe for concurrent
// use by multiple in-flight requests.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// InvalidatePrefix removes every entry whose key starts with prefix.
	// Used for coarse per-repository invalidation on writes.
	InvalidatePrefix(ctx context.Context, prefix string)
	Clear(ctx context.Context)
	Stats() Stats
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Entries   int   `json:"entries"`
	Evictions int64 `json:"evictions"`
}

// Key builds a deterministic cache key from repository name, method name and
// the method's arguments. Arguments are serialized to JSON and hashed so
// arbitrarily large criteria stay bounded.
func Key(repo, method string, args ...any) string {
	payload, err := json.Marshal(args)
	if err != nil {
		// Unserializable arguments still need a stable-enough key.
		payload = []byte(fmt.Sprint(args...))
	}
	sum := sha256.Sum256(payload)
	return repo + ":" + method + ":" + hex.EncodeToString(sum[:])
}

// Prefix is the invalidation prefix covering all of a repository's entries.
func Prefix(repo string) string {
	return repo + ":"
}
