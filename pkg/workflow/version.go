package workflow

import (
	"github.com/gh-download/ghpipe/pkg/logger"
)

var versionLog = logger.New("workflow:version")

// compilerVersion holds the version of the compiler, set at runtime.
var compilerVersion = "dev"

// isReleaseBuild is set for release binaries. Only release builds stamp
// their version into generated workflow headers so development builds do
// not churn checked-in files.
var isReleaseBuild = false

// SetVersion sets the compiler version for inclusion in generated workflow headers.
func SetVersion(v string) {
	versionLog.Printf("Setting compiler version: %s", v)
	compilerVersion = v
}

// GetVersion returns the current compiler version.
func GetVersion() string {
	return compilerVersion
}

// SetIsRelease sets whether this binary was built as a release.
func SetIsRelease(release bool) {
	versionLog.Printf("Setting release build flag: %v", release)
	isReleaseBuild = release
}

// IsRelease returns whether this binary was built as a release.
func IsRelease() bool {
	return isReleaseBuild
}
