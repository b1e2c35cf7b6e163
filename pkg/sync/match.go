package sync

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher reports whether a destination path is excluded. Patterns follow
// shell glob rules matched against the whole path: `*` matches any run of
// characters including separators, `?` any single character, `[seq]` a
// character class and `[!seq]` its negation.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles the patterns. An unmatchable class like "[" is taken
// literally rather than rejected.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		re, err := regexp.Compile(translatePattern(p))
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Match reports whether any pattern covers the whole path.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// translatePattern converts one glob pattern into an anchored regexp. The
// dot-matches-newline flag keeps paths containing newlines matchable.
func translatePattern(pattern string) string {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for i := 0; i < len(pattern); {
		c := pattern[i]
		i++
		switch c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			j := i
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				b.WriteString(`\[`)
			} else {
				set := strings.ReplaceAll(pattern[i:j], `\`, `\\`)
				if strings.HasPrefix(set, "!") {
					set = "^" + set[1:]
				} else if strings.HasPrefix(set, "^") {
					set = `\` + set
				}
				b.WriteString("[" + set + "]")
				i = j + 1
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`$`)
	return b.String()
}
