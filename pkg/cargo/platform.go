package cargo

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Platform describes the single build target all platform filters are
// evaluated against. Cross-target unification is not modeled: an edge whose
// filter does not match this platform is simply discarded.
type Platform struct {
	Triple string
	Arch   string // target_arch: x86_64, aarch64, ...
	OS     string // target_os: linux, macos, windows, ...
	Env    string // target_env: gnu, musl, msvc, or ""
	Family string // target_family: unix or windows
}

// ParsePlatform derives the cfg attributes from a target triple like
// "x86_64-unknown-linux-gnu" or "aarch64-apple-darwin".
func ParsePlatform(triple string) (Platform, error) {
	parts := strings.Split(triple, "-")
	if len(parts) < 3 {
		return Platform{}, fmt.Errorf("malformed target triple %q", triple)
	}

	p := Platform{Triple: triple, Arch: parts[0]}

	// The OS component is the third field even in vendor-less triples:
	// aarch64-linux-android and arm-linux-androideabi both put it there.
	osPart := parts[2]
	if len(parts) >= 4 {
		p.Env = parts[3]
	}

	switch {
	case strings.HasPrefix(osPart, "darwin"):
		p.OS = "macos"
	case strings.HasPrefix(osPart, "windows"):
		p.OS = "windows"
	case strings.HasPrefix(osPart, "linux"):
		p.OS = "linux"
	case strings.HasPrefix(osPart, "freebsd"), strings.HasPrefix(osPart, "netbsd"), strings.HasPrefix(osPart, "openbsd"):
		p.OS = osPart
	case strings.HasPrefix(osPart, "ios"):
		p.OS = "ios"
	case strings.HasPrefix(osPart, "android"):
		p.OS = "android"
	default:
		p.OS = osPart
	}

	if p.OS == "windows" {
		p.Family = "windows"
	} else {
		p.Family = "unix"
	}

	return p, nil
}

// HostPlatform asks the installed rustc for its host triple. When rustc is
// not on PATH the triple is approximated from the Go runtime, which is close
// enough for filtering cfg() expressions.
func HostPlatform(ctx context.Context) (Platform, error) {
	out, err := exec.CommandContext(ctx, "rustc", "-vV").Output()
	if err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(out)))
		for sc.Scan() {
			if triple, ok := strings.CutPrefix(sc.Text(), "host: "); ok {
				return ParsePlatform(strings.TrimSpace(triple))
			}
		}
	}
	return ParsePlatform(goTriple())
}

// goTriple maps the Go runtime onto the nearest Rust target triple.
func goTriple() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	}
	switch runtime.GOOS {
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + runtime.GOOS + "-gnu"
	}
}

// Matches evaluates a dependency's target filter against the platform.
// The filter is either a literal triple or a cfg expression such as
// cfg(all(unix, not(target_os = "macos"))). An empty filter matches
// unconditionally. Unknown predicates evaluate to false rather than
// failing the whole resolution.
func (p Platform) Matches(filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	if expr, ok := strings.CutPrefix(filter, "cfg("); ok {
		expr = strings.TrimSuffix(expr, ")")
		v, rest := p.evalCfg(expr)
		return v && strings.TrimSpace(rest) == ""
	}
	return filter == p.Triple
}

// evalCfg evaluates one cfg term at the head of expr and returns the value
// plus the unconsumed remainder. Terms are: all(...), any(...), not(...),
// bare idents (unix, windows) and key = "value" pairs.
func (p Platform) evalCfg(expr string) (bool, string) {
	expr = strings.TrimSpace(expr)

	switch {
	case strings.HasPrefix(expr, "all("):
		return p.evalList(expr[len("all("):], true)
	case strings.HasPrefix(expr, "any("):
		return p.evalList(expr[len("any("):], false)
	case strings.HasPrefix(expr, "not("):
		v, rest := p.evalCfg(expr[len("not("):])
		rest = strings.TrimSpace(rest)
		rest = strings.TrimPrefix(rest, ")")
		return !v, rest
	}

	// Single predicate: consume up to the next ',' or ')'.
	end := strings.IndexAny(expr, ",)")
	var term, rest string
	if end < 0 {
		term, rest = expr, ""
	} else {
		term, rest = expr[:end], expr[end:]
	}
	return p.evalPredicate(strings.TrimSpace(term)), rest
}

// evalList folds comma-separated cfg terms. conj selects all() vs any()
// semantics. The closing paren is consumed.
func (p Platform) evalList(expr string, conj bool) (bool, string) {
	acc := conj
	for {
		var v bool
		v, expr = p.evalCfg(expr)
		if conj {
			acc = acc && v
		} else {
			acc = acc || v
		}
		expr = strings.TrimSpace(expr)
		if rest, ok := strings.CutPrefix(expr, ","); ok {
			expr = rest
			continue
		}
		expr = strings.TrimPrefix(expr, ")")
		return acc, expr
	}
}

func (p Platform) evalPredicate(term string) bool {
	if key, val, ok := strings.Cut(term, "="); ok {
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch key {
		case "target_os":
			return p.OS == val
		case "target_arch":
			return p.Arch == val
		case "target_env":
			return p.Env == val
		case "target_family":
			return p.Family == val
		case "target_vendor", "target_pointer_width", "target_endian", "feature", "target_feature":
			// Not derivable from the triple alone; treat as non-matching.
			return false
		default:
			return false
		}
	}

	switch term {
	case "unix":
		return p.Family == "unix"
	case "windows":
		return p.Family == "windows"
	default:
		return false
	}
}
