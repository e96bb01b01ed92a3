// Package names implements the task-name matching rules shared by the task
// engine and the configuration layer: dashes and underscores are
// interchangeable, comparison is case-insensitive, and a pattern containing
// '*' is a restricted glob where '*' means "any sequence".
package names

import (
	"fmt"
	"regexp"
	"strings"
)

// Equal reports whether a and b match under the exact-match rules: equal
// length, dash and underscore interchangeable, ASCII case-insensitive.
//
// This runs for every alias of every task when expanding user selectors, so
// it avoids allocating; do not replace it with a normalize-then-compare
// implementation.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := 0; i < len(a); i++ {
		ac := a[i]
		bc := b[i]

		// underscores and dashes are equivalent
		if (ac == '-' || ac == '_') && (bc == '-' || bc == '_') {
			continue
		}

		if lower(ac) != lower(bc) {
			return false
		}
	}

	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// HasGlob reports whether pattern should be treated as a glob rather than an
// exact name.
func HasGlob(pattern string) bool {
	return strings.ContainsRune(pattern, '*')
}

// CompileGlob converts pattern into a case-insensitive regexp: '*' becomes
// ".*" and underscores become dashes so names differing only in separator
// match. The remaining characters pass through as regex syntax, so a
// malformed pattern fails to compile; callers treat that as a fatal
// configuration problem.
func CompileGlob(pattern string) (*regexp.Regexp, error) {
	fixed := strings.ReplaceAll(pattern, "*", ".*")
	fixed = strings.ReplaceAll(fixed, "_", "-")

	re, err := regexp.Compile("(?i)^(?:" + fixed + ")$")
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}

	return re, nil
}

// GlobMatches reports whether name matches the compiled glob re, after
// normalizing underscores to dashes as CompileGlob does for the pattern.
func GlobMatches(re *regexp.Regexp, name string) bool {
	return re.MatchString(strings.ReplaceAll(name, "_", "-"))
}

// Match reports whether name matches pattern, choosing the glob or exact
// path by the presence of '*'. The returned error is non-nil only for a
// malformed glob.
func Match(name, pattern string) (bool, error) {
	if HasGlob(pattern) {
		re, err := CompileGlob(pattern)
		if err != nil {
			return false, err
		}
		return GlobMatches(re, name), nil
	}

	return Equal(name, pattern), nil
}
