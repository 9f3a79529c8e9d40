// Package buildinfo carries version stamps set at link time with
// -ldflags "-X planscore/internal/buildinfo.Version=...".
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the stamps plus the Go version. When Commit was not set at
// link time it falls back to the VCS revision recorded by the toolchain.
func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    commit(),
		"builtAt":   BuiltAt,
		"goVersion": runtime.Version(),
	}
}

// String is the one-line form printed by planctl --version.
func String() string {
	s := Version
	if c := commit(); c != "" {
		if len(c) > 12 {
			c = c[:12]
		}
		s += " (" + c + ")"
	}
	return s
}

func commit() string {
	if Commit != "" {
		return Commit
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
