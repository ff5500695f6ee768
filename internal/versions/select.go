package versions

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrNoReleases is returned when nothing survived parsing.
var ErrNoReleases = errors.New("no valid releases found")

// Selection is the release lineage derived from one listing.
type Selection struct {
	// Latest is the highest version overall.
	Latest ReleaseInfo
	// Minors holds the highest patch release of each major.minor line.
	Minors map[MinorKey]ReleaseInfo
	// All is every distinct version, strictly ascending.
	All []ReleaseInfo
}

// Select derives the lineage from releases in listing order. When two
// releases share a version the later one wins.
func Select(releases []ReleaseInfo) (Selection, error) {
	if len(releases) == 0 {
		return Selection{}, ErrNoReleases
	}

	byVersion := make(map[Version]ReleaseInfo, len(releases))
	for _, r := range releases {
		byVersion[r.Version] = r
	}

	all := slices.Collect(maps.Values(byVersion))
	slices.SortFunc(all, func(a, b ReleaseInfo) int {
		return a.Version.Compare(b.Version)
	})

	minors := make(map[MinorKey]ReleaseInfo)
	for _, r := range all {
		key := r.Version.MinorLine()
		if current, ok := minors[key]; !ok || current.Version.Less(r.Version) {
			minors[key] = r
		}
	}

	return Selection{
		Latest: all[len(all)-1],
		Minors: minors,
		All:    all,
	}, nil
}

// MinorKeys returns the minor lines in ascending order.
func (s Selection) MinorKeys() []MinorKey {
	keys := slices.Collect(maps.Keys(s.Minors))
	slices.SortFunc(keys, func(a, b MinorKey) int {
		return Version{Major: a.Major, Minor: a.Minor}.Compare(Version{Major: b.Major, Minor: b.Minor})
	})
	return keys
}

// WithChecksums returns a copy of s whose releases carry the digests in
// sums. Every release in All must have an entry.
func (s Selection) WithChecksums(sums map[Version]map[Platform]string) (Selection, error) {
	attached := make(map[Version]ReleaseInfo, len(s.All))
	all := make([]ReleaseInfo, 0, len(s.All))
	for _, r := range s.All {
		digests, ok := sums[r.Version]
		if !ok {
			return Selection{}, fmt.Errorf("no checksums resolved for %s", r.Tag)
		}
		withSums, err := r.WithChecksums(digests)
		if err != nil {
			return Selection{}, err
		}
		attached[r.Version] = withSums
		all = append(all, withSums)
	}

	minors := make(map[MinorKey]ReleaseInfo, len(s.Minors))
	for key, r := range s.Minors {
		minors[key] = attached[r.Version]
	}

	return Selection{
		Latest: attached[s.Latest.Version],
		Minors: minors,
		All:    all,
	}, nil
}
