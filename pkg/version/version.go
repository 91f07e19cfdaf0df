// Package version reports build metadata for agentrules.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   string // Set via ldflags.
	Branch    string
	BuildUser string
	BuildDate string

	Revision  = getRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// Build describes one agentrules binary.
type Build struct {
	Version   string
	Revision  string
	Branch    string
	User      string
	Date      string
	GoVersion string
	Platform  string
}

// Current returns the metadata of the running binary.
func Current() Build {
	return Build{
		Version:   GetVersion(),
		Revision:  Revision,
		Branch:    Branch,
		User:      BuildUser,
		Date:      BuildDate,
		GoVersion: GoVersion,
		Platform:  GoOS + "/" + GoArch,
	}
}

// String renders the version followed by the build details that are known.
func (b Build) String() string {
	details := []string{"revision " + b.Revision}
	if b.Branch != "" {
		details = append(details, "branch "+b.Branch)
	}
	if b.User != "" {
		details = append(details, "built by "+b.User)
	}
	if b.Date != "" {
		details = append(details, "on "+b.Date)
	}

	details = append(details, b.GoVersion+" "+b.Platform)

	return fmt.Sprintf("%s (%s)", b.Version, strings.Join(details, ", "))
}

// GetVersion returns the release version. Binaries without one set via
// ldflags fall back to the module version from go install, then to the VCS
// revision.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}

	return Revision
}

// Info returns [Current] as a string.
func Info() string {
	return Current().String()
}

func getRevision() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	return RevisionFrom(buildInfo.Settings)
}

// RevisionFrom returns the short VCS revision recorded in settings, marked
// "-dirty" when the tree had local changes.
func RevisionFrom(settings []debug.BuildSetting) string {
	rev := "unknown"
	modified := false

	for _, v := range settings {
		switch v.Key {
		case "vcs.revision":
			if len(v.Value) > 7 {
				rev = v.Value[:7]
			} else {
				rev = v.Value
			}

		case "vcs.modified":
			if v.Value == "true" {
				modified = true
			}
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
