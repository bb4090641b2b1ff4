package manifest

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/unihack/pkg/errors"
)

// State is what a previously hacked manifest recorded.
type State struct {
	Hacked      bool
	Fingerprint string
	Checksum    string
}

// ReadState reports whether the manifest at path carries applied entries
// and, if so, the persisted fingerprint and checksum.
func ReadState(path string) (State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return State{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	st, _, _, err := parseHacked(string(raw))
	if err != nil {
		return State{}, err
	}
	if st == nil {
		return State{}, nil
	}
	return State{Hacked: true, Fingerprint: st.Fingerprint, Checksum: st.Checksum}, nil
}

// VerifyChecksum recomputes the dependency-table checksum of a hacked
// manifest and compares it against the persisted one. A mismatch means
// the tables were edited after the hack was applied.
func VerifyChecksum(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	content := string(raw)
	st, _, _, err := parseHacked(content)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New(errors.ErrCodeNotHacked, "%s carries no applied entries", path)
	}
	if got := checksum(strings.Split(content, "\n")); got != st.Checksum {
		return errors.New(errors.ErrCodeChecksumMismatch,
			"%s was modified after its features were unified", path)
	}
	return nil
}

// Restore removes the generated block and banner and puts every stashed
// declaration back. Returns false when the manifest carries no applied
// entries. Unless force is set, a manifest whose dependency tables were
// edited after hacking fails with CHECKSUM_MISMATCH instead of silently
// dropping those edits.
func Restore(path string, force bool) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	content := string(raw)
	st, start, end, err := parseHacked(content)
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, nil
	}
	if !force {
		if got := checksum(strings.Split(content, "\n")); got != st.Checksum {
			return false, errors.New(errors.ErrCodeChecksumMismatch,
				"%s was modified after its features were unified, restore with --force to discard those edits", path)
		}
	}

	rest := content[:start] + content[end:]
	rest = strings.TrimPrefix(rest, banner)
	lines := strings.Split(strings.TrimRight(rest, "\n"), "\n")

	tables := make([]string, 0, len(st.Stash))
	for t := range st.Stash {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, table := range tables {
		keys := make([]string, 0, len(st.Stash[table]))
		for k := range st.Stash[table] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if rawEntry := st.Stash[table][k]; rawEntry != "" {
				lines = insertEntry(lines, table, rawEntry)
			}
		}
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidManifest, err, "write %s", path)
	}
	return true, nil
}

// parseHacked locates the generated block and decodes its state. Returns a
// nil state for manifests without one; start and end are byte offsets of
// the block, end exclusive of the trailing newline after the end marker.
func parseHacked(content string) (*state, int, int, error) {
	start := strings.Index(content, blockStart)
	if start < 0 {
		return nil, 0, 0, nil
	}
	end := strings.Index(content[start:], blockEnd)
	if end < 0 {
		return nil, 0, 0, errors.New(errors.ErrCodeInvalidManifest,
			"generated block is missing its end marker")
	}
	end += start + len(blockEnd)
	if end < len(content) && content[end] == '\n' {
		end++
	}

	var doc struct {
		Package struct {
			Metadata struct {
				Unihack state `toml:"unihack"`
			} `toml:"metadata"`
		} `toml:"package"`
	}
	if _, err := toml.Decode(content[start:end], &doc); err != nil {
		return nil, 0, 0, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode generated block")
	}
	st := doc.Package.Metadata.Unihack
	if st.Checksum == "" && st.Fingerprint == "" {
		return nil, 0, 0, errors.New(errors.ErrCodeInvalidManifest,
			"generated block carries no state")
	}
	return &st, start, end, nil
}
