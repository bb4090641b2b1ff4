package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// section is one TOML table of a manifest, located by line range. The
// preamble before the first header is a section with an empty name.
type section struct {
	name  string
	start int // header line index, or 0 for the preamble
	end   int // exclusive
}

func splitSections(lines []string) []section {
	var out []section
	cur := section{}
	for i, line := range lines {
		name, ok := tableHeader(line)
		if !ok {
			continue
		}
		cur.end = i
		out = append(out, cur)
		cur = section{name: name, start: i}
	}
	cur.end = len(lines)
	return append(out, cur)
}

func tableHeader(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return "", false
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	// array-of-tables headers
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	return strings.TrimSpace(s), true
}

// keyOf extracts the key of a `key = value` line, unquoting plain quoted
// keys. Returns "" for anything else.
func keyOf(line string) string {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") || strings.HasPrefix(s, "[") {
		return ""
	}
	eq := strings.Index(s, "=")
	if eq < 0 {
		return ""
	}
	key := strings.TrimSpace(s[:eq])
	return strings.Trim(key, `"'`)
}

// spanBalanced returns the number of lines starting at ix that form one
// complete value: a declaration with a multi-line array or inline table
// spans until brackets balance.
func spanBalanced(lines []string, ix int) int {
	depth := 0
	for n := 0; ix+n < len(lines); n++ {
		for _, r := range lines[ix+n] {
			switch r {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			case '#':
				// rest of line is comment; crude but manifests with
				// brackets inside comments of a dep line are not a thing
			}
		}
		if depth <= 0 {
			return n + 1
		}
	}
	return len(lines) - ix
}

// removeEntry cuts the declaration of key from the named table, whether it
// is a `key = ...` line inside [table] or a whole [table.key] subtable.
// It returns the remaining lines, the removed raw text and whether a
// declaration existed.
func removeEntry(lines []string, table, key string) ([]string, string, bool) {
	for _, sec := range splitSections(lines) {
		if sec.name == table {
			body := sec.start
			if sec.name != "" {
				body++ // skip the header line
			}
			for i := body; i < sec.end; i++ {
				if keyOf(lines[i]) != key {
					continue
				}
				n := spanBalanced(lines, i)
				raw := strings.Join(lines[i:i+n], "\n")
				return append(lines[:i:i], lines[i+n:]...), raw, true
			}
		}
		if sec.name == table+"."+key || sec.name == table+`."`+key+`"` {
			raw := strings.TrimRight(strings.Join(lines[sec.start:sec.end], "\n"), "\n")
			return append(lines[:sec.start:sec.start], lines[sec.end:]...), raw, true
		}
	}
	return lines, "", false
}

// insertEntry puts a stashed declaration back: subtable text is appended
// to the document, a plain line goes at the end of its table, which is
// created when missing.
func insertEntry(lines []string, table, raw string) []string {
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		return append(lines, strings.Split(raw, "\n")...)
	}
	for _, sec := range splitSections(lines) {
		if sec.name != table {
			continue
		}
		end := sec.end
		// keep trailing blank lines after the inserted entry
		for end > sec.start+1 && strings.TrimSpace(lines[end-1]) == "" {
			end--
		}
		out := append(lines[:end:end], strings.Split(raw, "\n")...)
		return append(out, lines[end:]...)
	}
	out := append(lines, "["+table+"]")
	return append(out, strings.Split(raw, "\n")...)
}

func hasTable(lines []string, prefix string) bool {
	for _, sec := range splitSections(lines) {
		if sec.name == prefix || strings.HasPrefix(sec.name, prefix+".") {
			return true
		}
	}
	return false
}

// checksum digests every dependency-carrying table. Edits anywhere else in
// the manifest do not disturb it, matching what the hack needs to protect.
func checksum(lines []string) string {
	h := sha256.New()
	for _, sec := range splitSections(lines) {
		if !dependencyTable(sec.name) {
			continue
		}
		for i := sec.start; i < sec.end; i++ {
			if s := strings.TrimSpace(lines[i]); s != "" && !strings.HasPrefix(s, "#") {
				h.Write([]byte(s))
				h.Write([]byte{'\n'})
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func dependencyTable(name string) bool {
	for _, t := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
		if name == t || strings.HasPrefix(name, t+".") {
			return true
		}
	}
	return strings.HasPrefix(name, "target.")
}
