package render

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

// Kind distinguishes the three formula flavours a release can produce.
type Kind int

const (
	KindLatest Kind = iota
	KindMinorAlias
	KindExactVersion
)

func (k Kind) String() string {
	switch k {
	case KindLatest:
		return "latest"
	case KindMinorAlias:
		return "minor alias"
	case KindExactVersion:
		return "exact version"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Identity names one formula file. For KindMinorAlias only Major and
// Minor of Version are meaningful; KindLatest ignores Version.
type Identity struct {
	Kind    Kind
	Version versions.Version
}

func Latest() Identity {
	return Identity{Kind: KindLatest}
}

func MinorAlias(major, minor uint64) Identity {
	return Identity{Kind: KindMinorAlias, Version: versions.Version{Major: major, Minor: minor}}
}

func ExactVersion(v versions.Version) Identity {
	return Identity{Kind: KindExactVersion, Version: v}
}

func (id Identity) String() string {
	switch id.Kind {
	case KindMinorAlias:
		return "@" + id.Version.MinorLine().String()
	case KindExactVersion:
		return "@" + id.Version.String()
	default:
		return "latest"
	}
}

// FileName returns the formula file for id, e.g. vale-ls.rb,
// vale-ls@0.3.rb or vale-ls@0.3.8.rb.
func (id Identity) FileName(formulaName string) string {
	switch id.Kind {
	case KindMinorAlias:
		return fmt.Sprintf("%s@%d.%d.rb", formulaName, id.Version.Major, id.Version.Minor)
	case KindExactVersion:
		return fmt.Sprintf("%s@%d.%d.%d.rb", formulaName, id.Version.Major, id.Version.Minor, id.Version.Patch)
	default:
		return formulaName + ".rb"
	}
}

// ClassName returns the Ruby class for id given the latest formula's class.
func (id Identity) ClassName(base string) string {
	switch id.Kind {
	case KindMinorAlias:
		return fmt.Sprintf("%sAT%d%d", base, id.Version.Major, id.Version.Minor)
	case KindExactVersion:
		return fmt.Sprintf("%sAT%d%d%d", base, id.Version.Major, id.Version.Minor, id.Version.Patch)
	default:
		return base
	}
}

// KegOnly reports whether the formula must not be linked by default.
func (id Identity) KegOnly() bool {
	return id.Kind != KindLatest
}

// Livecheck returns the livecheck block for id without a trailing newline.
func (id Identity) Livecheck(repo string) string {
	switch id.Kind {
	case KindLatest:
		return "  livecheck do\n" +
			"    url :stable\n" +
			"    strategy :github_latest\n" +
			"  end"
	case KindMinorAlias:
		return "  livecheck do\n" +
			fmt.Sprintf("    url \"https://github.com/%s/releases\"\n", repo) +
			"    strategy :github_releases\n" +
			fmt.Sprintf("    regex(/^v?%d\\.%d\\.\\d+$/i)\n", id.Version.Major, id.Version.Minor) +
			"  end"
	default:
		return ""
	}
}

// ClassBase derives the latest formula's class name from a formula name
// the way Homebrew does: vale-ls becomes ValeLs.
func ClassBase(formulaName string) string {
	title := cases.Title(language.Und)
	words := strings.FieldsFunc(formulaName, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || unicode.IsSpace(r)
	})

	var b strings.Builder
	for _, word := range words {
		b.WriteString(title.String(word))
	}
	return strings.ReplaceAll(b.String(), "+", "x")
}
