package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// canonicalVersion turns an interpreter version like "3.10" into the "v3.10"
// form golang.org/x/mod/semver expects.
func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// IsValidVersion reports whether v is a major[.minor[.patch]] version.
func IsValidVersion(v string) bool {
	return v != "" && semver.IsValid(canonicalVersion(v))
}

// CompareVersions compares interpreter versions numerically, so "3.10" is
// newer than "3.9".
func CompareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

// LatestVersion returns the newest version-shaped entry of versions.
// Labels such as "3.13t" or "pypy3.10" are valid axis values but are not
// ordered, so they are skipped.
func LatestVersion(versions []string) (string, error) {
	latest := ""
	for _, v := range versions {
		if !IsValidVersion(v) {
			continue
		}
		if latest == "" || CompareVersions(v, latest) > 0 {
			latest = v
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no plain version among %q to pick the coverage cell from; set coverage.version", versions)
	}
	return latest, nil
}
