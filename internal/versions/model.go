package versions

import (
	"fmt"
	"maps"
)

// Version is a stable major.minor.patch triple.
type Version struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

// MinorKey identifies a major.minor release line.
type MinorKey struct {
	Major uint64
	Minor uint64
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) MinorLine() MinorKey {
	return MinorKey{Major: v.Major, Minor: v.Minor}
}

func (k MinorKey) String() string {
	return fmt.Sprintf("%d.%d", k.Major, k.Minor)
}

// Platform is one of the four supported OS/architecture pairs.
type Platform string

const (
	MacOSArm Platform = "macos_arm"
	MacOSX86 Platform = "macos_x86"
	LinuxArm Platform = "linux_arm"
	LinuxX86 Platform = "linux_x86"
)

// Platforms lists every platform in the order formulas reference them.
var Platforms = [...]Platform{MacOSArm, MacOSX86, LinuxArm, LinuxX86}

func ParsePlatform(raw string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == raw {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", raw)
}

// AssetTable maps each platform to the asset filename a release must carry.
type AssetTable struct {
	names map[Platform]string
}

// DefaultAssetTable returns the Rust target triple naming used by the
// upstream release workflow, e.g. vale-ls-aarch64-apple-darwin.zip.
func DefaultAssetTable(formulaName string) AssetTable {
	return AssetTable{names: map[Platform]string{
		MacOSArm: formulaName + "-aarch64-apple-darwin.zip",
		MacOSX86: formulaName + "-x86_64-apple-darwin.zip",
		LinuxArm: formulaName + "-aarch64-unknown-linux-gnu.zip",
		LinuxX86: formulaName + "-x86_64-unknown-linux-gnu.zip",
	}}
}

// NewAssetTable applies overrides on top of base. Every platform must end
// up with a non-empty filename and filenames must be distinct.
func NewAssetTable(base AssetTable, overrides map[Platform]string) (AssetTable, error) {
	names := maps.Clone(base.names)
	if names == nil {
		names = make(map[Platform]string, len(Platforms))
	}
	for platform, name := range overrides {
		if _, err := ParsePlatform(string(platform)); err != nil {
			return AssetTable{}, err
		}
		names[platform] = name
	}

	seen := make(map[string]Platform, len(names))
	for _, platform := range Platforms {
		name := names[platform]
		if name == "" {
			return AssetTable{}, fmt.Errorf("no asset name for platform %s", platform)
		}
		if other, dup := seen[name]; dup {
			return AssetTable{}, fmt.Errorf("asset %q is mapped to both %s and %s", name, other, platform)
		}
		seen[name] = platform
	}

	return AssetTable{names: names}, nil
}

// Name returns the asset filename for platform.
func (t AssetTable) Name(platform Platform) string {
	return t.names[platform]
}

// IsZero reports whether t was never initialized.
func (t AssetTable) IsZero() bool {
	return len(t.names) == 0
}

func (t AssetTable) platformFor(filename string) (Platform, bool) {
	for _, p := range Platforms {
		if t.names[p] == filename {
			return p, true
		}
	}
	return "", false
}

// ReleaseInfo is a parsed release that carries all four platform assets.
// SHA256 stays nil until checksums are attached with WithChecksums.
type ReleaseInfo struct {
	Tag     string
	Version Version
	Assets  map[Platform]string
	SHA256  map[Platform]string
}

// WithChecksums returns a copy of r carrying digests. All four platforms
// must be present.
func (r ReleaseInfo) WithChecksums(digests map[Platform]string) (ReleaseInfo, error) {
	for _, p := range Platforms {
		if digests[p] == "" {
			return ReleaseInfo{}, fmt.Errorf("release %s: no checksum for %s", r.Tag, p)
		}
	}
	r.Assets = maps.Clone(r.Assets)
	r.SHA256 = maps.Clone(digests)
	return r, nil
}
