// Package version reports the version of the midicsv tools.
package version

import "runtime/debug"

// Version can be set at build time with
// go build -ldflags "-X github.com/midicsv/midicsv/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binaries were built from, with a
// "-dirty" suffix for modified trees, or "" when the build info has none.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return revision(info.Settings)
}()

// VersionOrHash is what the -v flag of the tools prints.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "(devel)"
}()

func revision(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
