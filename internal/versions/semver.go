package versions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// stableTagPattern accepts v1.2.3 and 1.2.3 only: no partial versions,
// no prerelease or build suffixes.
var stableTagPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)

// ParseTag converts a strict stable release tag into a Version.
func ParseTag(tag string) (Version, error) {
	m := stableTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return Version{}, fmt.Errorf("tag %q is not a stable major.minor.patch version", tag)
	}

	var parts [3]uint64
	for i, raw := range m[1:] {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("tag %q: component %q: %w", tag, raw, err)
		}
		parts[i] = n
	}

	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

func (v Version) semver() *semver.Version {
	return semver.New(v.Major, v.Minor, v.Patch, "", "")
}

// Compare returns -1, 0 or +1 ordering v against o lexicographically on
// (major, minor, patch).
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// ParseConstraint parses an optional version range such as ">= 0.2" or
// "~0.3". An empty string means no constraint.
func ParseConstraint(raw string) (*semver.Constraints, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	c, err := semver.NewConstraint(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", raw, err)
	}
	return c, nil
}

func satisfies(c *semver.Constraints, v Version) bool {
	if c == nil {
		return true
	}
	return c.Check(v.semver())
}
