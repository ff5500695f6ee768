package render

import (
	_ "embed"
	"regexp"
	"strings"
)

//go:embed formula.rb.tmpl
var defaultTemplate string

// DefaultTemplate returns the built-in formula template.
func DefaultTemplate() string {
	return defaultTemplate
}

// placeholderPattern matches $$, $name and ${name}.
var placeholderPattern = regexp.MustCompile(`\$(?:(\$)|([_a-zA-Z][_a-zA-Z0-9]*)|\{([_a-zA-Z][_a-zA-Z0-9]*)\})`)

// Substitute replaces $name and ${name} with values[name] and $$ with $.
// Names missing from values, and any other use of $, are left as written.
func Substitute(tmpl string, values map[string]string) string {
	matches := placeholderPattern.FindAllStringSubmatchIndex(tmpl, -1)
	if len(matches) == 0 {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	last := 0
	for _, m := range matches {
		b.WriteString(tmpl[last:m[0]])
		last = m[1]

		switch {
		case m[2] >= 0:
			b.WriteByte('$')
		case m[4] >= 0:
			writeValue(&b, values, tmpl[m[4]:m[5]], tmpl[m[0]:m[1]])
		default:
			writeValue(&b, values, tmpl[m[6]:m[7]], tmpl[m[0]:m[1]])
		}
	}
	b.WriteString(tmpl[last:])
	return b.String()
}

func writeValue(b *strings.Builder, values map[string]string, name, literal string) {
	if value, ok := values[name]; ok {
		b.WriteString(value)
		return
	}
	b.WriteString(literal)
}

var blankRuns = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize converts line endings to \n, collapses runs of blank lines into
// one and ends the text with exactly one newline, so unchanged inputs render
// byte-identical output.
func Normalize(s string) string {
	s = lineEndings.Replace(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, " \t\r\n") + "\n"
}
