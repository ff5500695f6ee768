package versions

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func release(tag string) ReleaseInfo {
	v, err := ParseTag(tag)
	if err != nil {
		panic(err)
	}
	return ReleaseInfo{Tag: tag, Version: v, Assets: map[Platform]string{}}
}

func tags(releases []ReleaseInfo) []string {
	out := make([]string, 0, len(releases))
	for _, r := range releases {
		out = append(out, r.Tag)
	}
	return out
}

func TestSelectEmpty(t *testing.T) {
	_, err := Select(nil)
	assert.ErrorIs(t, err, ErrNoReleases)
}

func TestSelectScenario(t *testing.T) {
	sel, err := Select([]ReleaseInfo{
		release("v1.1.0"),
		release("v2.0.0"),
		release("v1.0.0"),
		release("v1.1.2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "v2.0.0", sel.Latest.Tag)
	assert.Equal(t, []string{"v1.0.0", "v1.1.0", "v1.1.2", "v2.0.0"}, tags(sel.All))

	require.Len(t, sel.Minors, 3)
	assert.Equal(t, "v1.0.0", sel.Minors[MinorKey{1, 0}].Tag)
	assert.Equal(t, "v1.1.2", sel.Minors[MinorKey{1, 1}].Tag)
	assert.Equal(t, "v2.0.0", sel.Minors[MinorKey{2, 0}].Tag)

	assert.Equal(t, []MinorKey{{1, 0}, {1, 1}, {2, 0}}, sel.MinorKeys())
}

func TestSelectOrdersNumerically(t *testing.T) {
	sel, err := Select([]ReleaseInfo{release("v0.10.0"), release("v0.9.12"), release("v0.9.2")})
	require.NoError(t, err)

	assert.Equal(t, []string{"v0.9.2", "v0.9.12", "v0.10.0"}, tags(sel.All))
	assert.Equal(t, "v0.10.0", sel.Latest.Tag)
	assert.Equal(t, []MinorKey{{0, 9}, {0, 10}}, sel.MinorKeys())
}

func TestSelectDuplicateVersionLastWins(t *testing.T) {
	sel, err := Select([]ReleaseInfo{release("v1.0.0"), release("1.0.0")})
	require.NoError(t, err)

	require.Len(t, sel.All, 1)
	assert.Equal(t, "1.0.0", sel.All[0].Tag)
	assert.Equal(t, "1.0.0", sel.Latest.Tag)
	assert.Equal(t, "1.0.0", sel.Minors[MinorKey{1, 0}].Tag)
}

func TestSelectProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(25)
		input := make([]ReleaseInfo, 0, n)
		for i := 0; i < n; i++ {
			v := Version{Major: uint64(rng.Intn(3)), Minor: uint64(rng.Intn(4)), Patch: uint64(rng.Intn(5))}
			input = append(input, ReleaseInfo{Tag: "v" + v.String(), Version: v})
		}

		sel, err := Select(input)
		require.NoError(t, err)

		for i := 1; i < len(sel.All); i++ {
			require.Negative(t, sel.All[i-1].Version.Compare(sel.All[i].Version), "All must be strictly ascending")
		}

		maxVersion := input[0].Version
		maxPerLine := map[MinorKey]Version{}
		for _, r := range input {
			if maxVersion.Less(r.Version) {
				maxVersion = r.Version
			}
			line := r.Version.MinorLine()
			if current, ok := maxPerLine[line]; !ok || current.Less(r.Version) {
				maxPerLine[line] = r.Version
			}
		}

		assert.Equal(t, maxVersion, sel.Latest.Version)
		assert.Equal(t, sel.All[len(sel.All)-1].Version, sel.Latest.Version)
		require.Len(t, sel.Minors, len(maxPerLine))
		for line, want := range maxPerLine {
			assert.Equal(t, want, sel.Minors[line].Version)
		}
	}
}

func TestSelectionWithChecksums(t *testing.T) {
	sel, err := Select([]ReleaseInfo{release("v1.0.0"), release("v1.0.1")})
	require.NoError(t, err)

	digests := map[Platform]string{MacOSArm: "a", MacOSX86: "b", LinuxArm: "c", LinuxX86: "d"}
	withSums, err := sel.WithChecksums(map[Version]map[Platform]string{
		{1, 0, 0}: digests,
		{1, 0, 1}: digests,
	})
	require.NoError(t, err)

	assert.Equal(t, digests, withSums.Latest.SHA256)
	assert.Equal(t, digests, withSums.Minors[MinorKey{1, 0}].SHA256)
	for _, r := range withSums.All {
		assert.Equal(t, digests, r.SHA256)
	}
	assert.Nil(t, sel.Latest.SHA256, "original selection is not mutated")

	_, err = sel.WithChecksums(map[Version]map[Platform]string{{1, 0, 1}: digests})
	assert.Error(t, err)

	_, err = sel.WithChecksums(map[Version]map[Platform]string{
		{1, 0, 0}: digests,
		{1, 0, 1}: {MacOSArm: "a"},
	})
	assert.Error(t, err)
}
