// Package storage defines the key-value port used for small per-user flags
// and sessions.
package storage

import (
	"context"
	"strings"
)

// KV is a string-keyed byte store. Get on a missing key returns an error
// wrapping domain.ErrNotFound; Remove on a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Key joins parts with '.' and replaces characters that some backends
// reject in keys.
func Key(parts ...string) string {
	clean := make([]string, len(parts))
	for i, p := range parts {
		clean[i] = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '=':
				return r
			}
			return '_'
		}, p)
	}
	return strings.Join(clean, ".")
}
