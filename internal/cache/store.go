// Package cache provides the short-lived coordination primitives shared between
// replicas, chiefly the once-per-day lock guarding the reminder cycle.
package cache

import (
	"context"
	"time"
)

// Locker claims a key for a bounded duration. Acquire reports false when another
// holder already owns an unexpired claim on the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const keyPrefix = "cabinet:"

func prefixed(key string) string {
	normalized := normalizeKey(key)
	if len(normalized) >= len(keyPrefix) && normalized[:len(keyPrefix)] == keyPrefix {
		return normalized
	}
	return normalizeKey(keyPrefix + normalized)
}

// normalizeKey collapses repeated ':' separators.
func normalizeKey(key string) string {
	if key == "" {
		return key
	}
	out := make([]byte, 0, len(key))
	prevColon := false
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if ch == ':' {
			if prevColon {
				continue
			}
			prevColon = true
		} else {
			prevColon = false
		}
		out = append(out, ch)
	}
	return string(out)
}
