// Package cache provides byte-level caching for expensive collaborator
// calls, primarily the raw output of the metadata subprocess. Cached data is
// always raw bytes keyed by content hashes; decoded structures are never
// cached, so every command still builds its graph fresh from a snapshot.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache stores opaque byte values with optional expiry.
type Cache interface {
	// Get retrieves a value. The second result reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases any resources.
	Close() error
}

// DefaultDir returns the per-user cache directory for unihack.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "unihack"), nil
}
