// Package manifest applies and reverts unification entries in Cargo.toml
// files. Editing is byte level on purpose: everything outside the touched
// declarations, comments and formatting included, survives a hack/restore
// round trip untouched. The applied state, original declarations included,
// is stashed inside the manifest itself under [package.metadata.unihack],
// so a restore needs nothing but the file.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/unihack/pkg/errors"
	"github.com/matzehuels/unihack/pkg/featgraph"
	"github.com/matzehuels/unihack/pkg/unify"
)

const banner = `# !
# ! This Cargo.toml file has unified features. In order to edit it
# ! you should first restore it using the "unihack restore" command.
# !
`

const (
	blockStart = "# ==== unihack generated, do not edit below ===="
	blockEnd   = "# ==== unihack end ===="

	metaTable = "package.metadata.unihack"
)

// state is what Apply persists inside the generated block and what
// restore/check read back.
type state struct {
	Fingerprint string `toml:"fingerprint"`
	Checksum    string `toml:"checksum"`

	// Stash keeps the original declaration text per dependency table and
	// key. An empty string records that the key did not exist before.
	Stash map[string]map[string]string `toml:"stash"`
}

// Apply adds the member's entries to the manifest at path. The prior
// declaration of every touched dependency is stashed; the plan fingerprint
// and a checksum of the resulting dependency tables are persisted next to
// it. Fails with ALREADY_HACKED when the manifest carries a generated
// block, and with INVALID_MANIFEST for manifests this editor cannot patch
// safely.
func Apply(path string, entries []unify.Entry, fingerprint string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	content := string(raw)
	if strings.Contains(content, "["+metaTable+"]") {
		return errors.New(errors.ErrCodeAlreadyHacked,
			"%s already carries unified features, restore it first", path)
	}

	lines := strings.Split(content, "\n")
	if hasTable(lines, "target") {
		return errors.New(errors.ErrCodeInvalidManifest,
			"%s declares target specific dependencies, which feature unification cannot patch", path)
	}

	st := state{Fingerprint: fingerprint, Stash: map[string]map[string]string{}}
	var block bytes.Buffer
	for _, e := range entries {
		table := e.Kind.TableName()
		key := entryKey(e)

		var stashed string
		if !e.Rename {
			lines, stashed, _ = removeEntry(lines, table, key)
		}
		if st.Stash[table] == nil {
			st.Stash[table] = map[string]string{}
		}
		st.Stash[table][key] = stashed

		writeEntry(&block, table, key, e)
	}

	// checksum covers the final dependency tables, generated ones included
	final := append(append([]string{}, lines...), strings.Split(block.String(), "\n")...)
	st.Checksum = checksum(final)

	var out bytes.Buffer
	out.WriteString(banner)
	out.WriteString(strings.TrimRight(strings.Join(lines, "\n"), "\n"))
	out.WriteString("\n\n")
	out.WriteString(blockStart)
	out.WriteString("\n")
	out.Write(block.Bytes())
	if err := writeState(&out, &st); err != nil {
		return err
	}
	out.WriteString(blockEnd)
	out.WriteString("\n")

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidManifest, err, "write %s", path)
	}
	return nil
}

// entryKey is the manifest key an entry is declared under. Renamed entries
// get a collision-free alias and point at the real crate via `package`.
func entryKey(e unify.Entry) string {
	if !e.Rename {
		return e.Dep.Name
	}
	return "unihack-" + e.Dep.Name + "-" + strings.ReplaceAll(e.Dep.Version, ".", "-")
}

func writeEntry(w *bytes.Buffer, table, key string, e unify.Entry) {
	fmt.Fprintf(w, "[%s.%s]\n", table, key)
	if e.Rename {
		fmt.Fprintf(w, "package = %q\n", e.Dep.Name)
	}
	if e.Dep.Source == "" {
		// path dependencies carry no registry version
		fmt.Fprintf(w, "path = %q\n", e.Dep.Name)
	} else {
		fmt.Fprintf(w, "version = \"=%s\"\n", e.Dep.Version)
	}
	var feats []string
	for _, f := range e.Features.Sorted() {
		if f != featgraph.DefaultFeature {
			feats = append(feats, fmt.Sprintf("%q", f))
		}
	}
	if len(feats) > 0 {
		fmt.Fprintf(w, "features = [%s]\n", strings.Join(feats, ", "))
	}
	if !e.Features.HasDefault() {
		w.WriteString("default-features = false\n")
	}
	w.WriteString("\n")
}

// writeState emits the metadata tables. Scalar values go through the toml
// encoder so stashed text of any shape survives quoting.
func writeState(w *bytes.Buffer, st *state) error {
	fmt.Fprintf(w, "[%s]\n", metaTable)
	enc := toml.NewEncoder(w)
	if err := enc.Encode(struct {
		Fingerprint string `toml:"fingerprint"`
		Checksum    string `toml:"checksum"`
	}{st.Fingerprint, st.Checksum}); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode state")
	}
	w.WriteString("\n")

	tables := make([]string, 0, len(st.Stash))
	for t := range st.Stash {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(w, "[%s.stash.%q]\n", metaTable, t)
		enc := toml.NewEncoder(w)
		if err := enc.Encode(st.Stash[t]); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode stash")
		}
		w.WriteString("\n")
	}
	return nil
}
