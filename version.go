package releasebot

import (
	"runtime/debug"
	"strings"
)

// Version is set at build time with -ldflags "-X github.com/aretw0/releasebot.Version=v1.2.3".
var Version = ""

// BuildVersion returns Version, falling back to the module version recorded in the binary.
func BuildVersion() string {
	if v := strings.TrimSpace(Version); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}
