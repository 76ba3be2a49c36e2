package cmn

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// CompileRegex compiles pattern with PCRE2-ish semantics: a leading "(?i)"
// (or one embedded anywhere, which regexp2 -- unlike RE2 -- accepts mid
// pattern) makes the match case-insensitive, per spec §9's regex dialect
// note. Implementations substituting a different engine must accept this
// idiom; regexp2 supports it natively.
func CompileRegex(pattern string) (*regexp2.Regexp, error) {
	opts := regexp2.None
	if strings.Contains(pattern, "(?i)") {
		opts = regexp2.IgnoreCase
	}
	return regexp2.Compile(pattern, opts)
}

// MustCompileRegex panics on an invalid pattern; used for the small set of
// engine-internal constant patterns (ruleset head synthesis etc.), never
// for user-supplied regexes.
func MustCompileRegex(pattern string) *regexp2.Regexp {
	re, err := CompileRegex(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// MatchString reports whether re matches anywhere in s.
func MatchString(re *regexp2.Regexp, s string) bool {
	if re == nil {
		return false
	}
	m, err := re.MatchString(s)
	return err == nil && m
}

// ReplaceAll performs a regex substitution with $1-style backreferences,
// the substitution the template renderer's regex-replace callable (C10) uses.
func ReplaceAll(re *regexp2.Regexp, input, replacement string) (string, error) {
	return re.Replace(input, replacement, -1, -1)
}
