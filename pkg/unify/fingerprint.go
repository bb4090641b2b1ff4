package unify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Fingerprint digests a plan's logical content. Entries are canonicalized
// and sorted first, so two plans carrying the same instructions produce
// the same fingerprint no matter how they were assembled. Persisted next
// to applied entries; a mismatch on a later run means the dependency set
// moved underneath a hack.
func Fingerprint(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s|%s|%s|%s|%s|%s",
			e.Member, e.Member.Source,
			e.Dep, e.Dep.Source,
			e.Kind, strings.Join(e.Features.Sorted(), ","))
	}
	slices.Sort(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether a stored fingerprint still matches the entries.
func Verify(stored string, entries []Entry) bool {
	return stored == Fingerprint(entries)
}
