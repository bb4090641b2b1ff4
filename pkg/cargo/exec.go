package cargo

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/matzehuels/unihack/pkg/cache"
	"github.com/matzehuels/unihack/pkg/errors"
)

// DefaultCacheTTL bounds how long a raw metadata document may be reused.
// The cache key covers every manifest and the lockfile, so the TTL only
// guards against toolchain changes the key cannot see.
const DefaultCacheTTL = 15 * time.Minute

// ExecOptions controls the metadata subprocess.
type ExecOptions struct {
	Dir     string // workspace directory, "" = current
	Locked  bool   // pass --locked
	Offline bool   // pass --offline
	Frozen  bool   // pass --frozen (implies --locked --offline)
	Refresh bool   // bypass the cache
	Cache   cache.Cache
}

// Exec runs `cargo metadata --format-version 1` and decodes the snapshot.
// The raw JSON is cached keyed on the content of every Cargo.toml and
// Cargo.lock under the workspace, so repeated queries against an unchanged
// workspace skip the subprocess. The decoded snapshot itself is never
// cached or shared between commands.
func Exec(ctx context.Context, opts ExecOptions) (*Snapshot, error) {
	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}

	key, keyErr := snapshotKey(opts.Dir)
	if keyErr == nil && !opts.Refresh {
		if data, hit, err := c.Get(ctx, key); err == nil && hit {
			return Decode(bytes.NewReader(data))
		}
	}

	args := []string{"metadata", "--format-version", "1"}
	if opts.Locked {
		args = append(args, "--locked")
	}
	if opts.Offline {
		args = append(args, "--offline")
	}
	if opts.Frozen {
		args = append(args, "--frozen")
	}

	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = opts.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "cargo metadata: %s", bytes.TrimSpace(stderr.Bytes()))
	}

	if keyErr == nil {
		_ = c.Set(ctx, key, stdout.Bytes(), DefaultCacheTTL)
	}

	return Decode(&stdout)
}

// snapshotKey hashes every Cargo.toml and Cargo.lock below dir into a cache
// key. Build output under target/ is skipped.
func snapshotKey(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "target" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "Cargo.toml" || d.Name() == "Cargo.lock" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	var buf bytes.Buffer
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		buf.WriteString(f)
		buf.WriteByte(0)
		buf.Write(data)
	}
	return "metadata:" + cache.Hash(buf.Bytes()), nil
}
