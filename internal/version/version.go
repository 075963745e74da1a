package version

import (
	"fmt"
	"runtime"
)

// Version indicates the version of the binary, such as a release number or semantic version.
// Set via -ldflags "-X github.com/OpenCHAMI/pductl/internal/version.Version=v1.0.0"
var Version = "dev"

// GitCommit stores the latest Git commit hash.
// Set via -ldflags "-X github.com/OpenCHAMI/pductl/internal/version.GitCommit=$(git rev-parse HEAD)"
var GitCommit string

// BuildTime stores the build timestamp in UTC.
// Set via -ldflags "-X github.com/OpenCHAMI/pductl/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime string

// GoVersion captures the Go version used to build the binary.
var GoVersion = runtime.Version()

// SetVersionInfo overrides the build information, e.g. from goreleaser's
// main.version/main.commit/main.date.
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		GitCommit = commit
	}
	if date != "" {
		BuildTime = date
	}
}

func VersionInfo() string {
	return fmt.Sprintf("Version: %s, Git Commit: %s, Build Time: %s, Go Version: %s",
		Version, GitCommit, BuildTime, GoVersion)
}
