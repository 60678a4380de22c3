package config

import (
	"fmt"
	"log/slog"
)

// Set with -ldflags "-X fishwatch/internal/config.version=1.2.3" (likewise
// commit and buildTime). Unset values keep the development defaults.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo reads the linker-injected variables. LoadConfig stores the
// result in Config.Build.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// UserAgent identifies this build to the oracle endpoint, e.g.
// "FishWatch/1.2.3 (a1b2c3d)". The commit is omitted for development builds.
func (b BuildInfo) UserAgent() string {
	v := b.Version
	if v == "" {
		v = "dev"
	}
	if b.Commit == "" || b.Commit == "none" {
		return "FishWatch/" + v
	}
	return fmt.Sprintf("FishWatch/%s (%s)", v, b.Commit)
}

// LogValue groups the build fields under one key in structured logs.
func (b BuildInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.String("built", b.BuildTime),
	)
}
