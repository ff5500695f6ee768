// Package render turns selected releases into Homebrew formula files and
// keeps a formula directory in sync with them.
package render

import (
	"fmt"

	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

const kegOnlyBlock = "  keg_only :versioned_formula"

// Renderer fills the formula template for one identity at a time.
type Renderer struct {
	Template    string
	Repo        string
	FormulaName string
	ClassBase   string
	Assets      versions.AssetTable
}

// Render returns the normalized formula text for id pinned to release.
// The release must carry checksums for every platform.
func (r Renderer) Render(id Identity, release versions.ReleaseInfo) (string, error) {
	for _, p := range versions.Platforms {
		if release.SHA256[p] == "" {
			return "", fmt.Errorf("render %s for %s: no checksum for %s", id, release.Tag, p)
		}
	}

	kegOnly := ""
	if id.KegOnly() {
		kegOnly = kegOnlyBlock
	}

	values := map[string]string{
		"class_name":      id.ClassName(r.ClassBase),
		"repo":            r.Repo,
		"version":         release.Version.String(),
		"tag":             release.Tag,
		"formula_name":    r.FormulaName,
		"live_check":      id.Livecheck(r.Repo),
		"keg_only":        kegOnly,
		"sha_mac_arm":     release.SHA256[versions.MacOSArm],
		"sha_mac_x86":     release.SHA256[versions.MacOSX86],
		"sha_linux_arm":   release.SHA256[versions.LinuxArm],
		"sha_linux_x86":   release.SHA256[versions.LinuxX86],
		"asset_mac_arm":   r.Assets.Name(versions.MacOSArm),
		"asset_mac_x86":   r.Assets.Name(versions.MacOSX86),
		"asset_linux_arm": r.Assets.Name(versions.LinuxArm),
		"asset_linux_x86": r.Assets.Name(versions.LinuxX86),
	}

	return Normalize(Substitute(r.Template, values)), nil
}
