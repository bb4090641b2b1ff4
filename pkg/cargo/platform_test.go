package cargo

import (
	"context"
	"testing"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		triple string
		os     string
		arch   string
		env    string
		family string
	}{
		{"x86_64-unknown-linux-gnu", "linux", "x86_64", "gnu", "unix"},
		{"x86_64-unknown-linux-musl", "linux", "x86_64", "musl", "unix"},
		{"aarch64-apple-darwin", "macos", "aarch64", "", "unix"},
		{"x86_64-pc-windows-msvc", "windows", "x86_64", "msvc", "windows"},
		{"aarch64-linux-android", "android", "aarch64", "", "unix"},
		{"arm-linux-androideabi", "android", "arm", "", "unix"},
	}
	for _, tt := range tests {
		p, err := ParsePlatform(tt.triple)
		if err != nil {
			t.Fatalf("ParsePlatform(%q): %v", tt.triple, err)
		}
		if p.OS != tt.os || p.Arch != tt.arch || p.Env != tt.env || p.Family != tt.family {
			t.Errorf("ParsePlatform(%q) = %+v, want os=%s arch=%s env=%s family=%s",
				tt.triple, p, tt.os, tt.arch, tt.env, tt.family)
		}
	}
}

func TestParsePlatformMalformed(t *testing.T) {
	if _, err := ParsePlatform("linux"); err == nil {
		t.Error("expected error for malformed triple")
	}
}

func TestMatches(t *testing.T) {
	linux, err := ParsePlatform("x86_64-unknown-linux-gnu")
	if err != nil {
		t.Fatal(err)
	}
	windows, err := ParsePlatform("x86_64-pc-windows-msvc")
	if err != nil {
		t.Fatal(err)
	}
	android, err := ParsePlatform("aarch64-linux-android")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		p      Platform
		filter string
		want   bool
	}{
		{"empty filter", linux, "", true},
		{"literal triple match", linux, "x86_64-unknown-linux-gnu", true},
		{"literal triple mismatch", linux, "aarch64-apple-darwin", false},
		{"bare unix", linux, "cfg(unix)", true},
		{"bare unix on windows", windows, "cfg(unix)", false},
		{"bare windows", windows, "cfg(windows)", true},
		{"target_os eq", linux, `cfg(target_os = "linux")`, true},
		{"target_os ne", linux, `cfg(target_os = "macos")`, false},
		{"target_arch", linux, `cfg(target_arch = "x86_64")`, true},
		{"not", linux, `cfg(not(windows))`, true},
		{"not match", windows, `cfg(not(windows))`, false},
		{"all true", linux, `cfg(all(unix, target_os = "linux"))`, true},
		{"all one false", linux, `cfg(all(unix, target_os = "macos"))`, false},
		{"any", linux, `cfg(any(target_os = "macos", target_os = "linux"))`, true},
		{"any none", linux, `cfg(any(target_os = "macos", target_os = "ios"))`, false},
		{"nested", linux, `cfg(all(unix, not(target_os = "macos")))`, true},
		{"nested windows", windows, `cfg(all(unix, not(target_os = "macos")))`, false},
		{"unknown predicate", linux, `cfg(target_pointer_width = "64")`, false},
		{"env", linux, `cfg(target_env = "gnu")`, true},
		{"android target_os", android, `cfg(target_os = "android")`, true},
		{"android is not linux", android, `cfg(target_os = "linux")`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Matches(tt.filter); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestHostPlatform(t *testing.T) {
	// Works whether or not rustc is installed: the runtime fallback always
	// yields a parseable triple.
	p, err := HostPlatform(context.Background())
	if err != nil {
		t.Fatalf("HostPlatform: %v", err)
	}
	if p.Triple == "" || p.OS == "" || p.Arch == "" {
		t.Errorf("incomplete platform: %+v", p)
	}
}
