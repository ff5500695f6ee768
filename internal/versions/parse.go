package versions

import (
	semver "github.com/Masterminds/semver/v3"

	"github.com/moritzfl/homebrew-vale-ls/internal/github"
)

// SkipReason explains why a release was left out of the selection.
type SkipReason string

const (
	SkipDraft         SkipReason = "draft"
	SkipPrerelease    SkipReason = "prerelease"
	SkipNoTag         SkipReason = "no tag"
	SkipInvalidTag    SkipReason = "not a stable version tag"
	SkipConstraint    SkipReason = "outside version constraint"
	SkipMissingAssets SkipReason = "missing assets"
)

// Skip describes a release the parser rejected. Missing lists asset
// filenames and is only set for SkipMissingAssets.
type Skip struct {
	Tag     string
	Reason  SkipReason
	Missing []string
}

// ParseResult holds exactly one of Release or Skip.
type ParseResult struct {
	Release ReleaseInfo
	Skip    *Skip
}

func (r ParseResult) Accepted() bool {
	return r.Skip == nil
}

// Parser turns raw release records into ReleaseInfo values.
type Parser struct {
	Assets             AssetTable
	IncludePrereleases bool
	Constraint         *semver.Constraints
}

func (p Parser) Parse(raw github.Release) ParseResult {
	tag := ""
	if raw.TagName != nil {
		tag = *raw.TagName
	}

	if !p.IncludePrereleases {
		if raw.Draft {
			return skipped(tag, SkipDraft)
		}
		if raw.Prerelease {
			return skipped(tag, SkipPrerelease)
		}
	}

	if raw.TagName == nil {
		return skipped(tag, SkipNoTag)
	}

	version, err := ParseTag(tag)
	if err != nil {
		return skipped(tag, SkipInvalidTag)
	}
	if !satisfies(p.Constraint, version) {
		return skipped(tag, SkipConstraint)
	}

	assets := make(map[Platform]string, len(Platforms))
	for _, asset := range raw.Assets {
		platform, ok := p.Assets.platformFor(asset.Name)
		if !ok || asset.BrowserDownloadURL == nil {
			continue
		}
		assets[platform] = *asset.BrowserDownloadURL
	}

	var missing []string
	for _, platform := range Platforms {
		if _, ok := assets[platform]; !ok {
			missing = append(missing, p.Assets.Name(platform))
		}
	}
	if len(missing) > 0 {
		return ParseResult{Skip: &Skip{Tag: tag, Reason: SkipMissingAssets, Missing: missing}}
	}

	return ParseResult{Release: ReleaseInfo{Tag: tag, Version: version, Assets: assets}}
}

func skipped(tag string, reason SkipReason) ParseResult {
	return ParseResult{Skip: &Skip{Tag: tag, Reason: reason}}
}
