package preprocess

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nodeconv/subconverter/node"
)

// applyMatcher decides whether a pattern matches node and, if it does,
// returns the residual regex that should still be applied against Remark.
// Grounded on spec.md §4.6's description of applyMatcher (the C++ body
// itself wasn't carried into the retrieved original source, so the
// compound-expression grammar below follows the spec's definition
// directly): a bare pattern is matched against Remark as-is; "GROUP:<re>"
// and "!!GROUP:<re>" require (or forbid) the node's Group to match <re>
// first; "!!GROUPID:<n>" requires GroupId == n; "[]LITERAL" bypasses regex
// matching entirely and is true only when Remark equals LITERAL exactly.
// ApplyMatcher is the exported form of applyMatcher. The group builder (C8)
// matches member patterns through MatchesRemark below, which also applies
// the residual regex.
func ApplyMatcher(pattern string, n *node.Proxy) (matched bool, residual string) {
	return applyMatcher(pattern, n)
}

// MatchesRemark reports whether pattern selects n, applying the residual
// regex against Remark the way Filter's matchesAny does.
func MatchesRemark(pattern string, n *node.Proxy) bool {
	matched, residual := applyMatcher(pattern, n)
	if !matched {
		return false
	}
	if residual == "" {
		return true
	}
	return regexFind(residual, n.Remark)
}

func applyMatcher(pattern string, n *node.Proxy) (matched bool, residual string) {
	switch {
	case strings.HasPrefix(pattern, "[]"):
		literal := pattern[2:]
		return n.Remark == literal, ""

	case strings.HasPrefix(pattern, "!!GROUPID:"):
		id, err := strconv.Atoi(strings.TrimPrefix(pattern, "!!GROUPID:"))
		if err != nil {
			return false, ""
		}
		return n.GroupId == id, ""

	case strings.HasPrefix(pattern, "!!GROUP:"):
		re := strings.TrimPrefix(pattern, "!!GROUP:")
		if regexFind(re, n.Group) {
			return false, ""
		}
		return true, ""

	case strings.HasPrefix(pattern, "GROUP:"):
		re := strings.TrimPrefix(pattern, "GROUP:")
		return regexFind(re, n.Group), ""

	default:
		return true, pattern
	}
}

// regexFind reports whether re finds any match in s, using regexp2 for
// PCRE2-ish syntax (group/remark patterns are user-supplied, unlike
// parser/link's fixed extraction patterns).
func regexFind(re, s string) bool {
	compiled, err := regexp2.Compile(re, regexp2.None)
	if err != nil {
		return false
	}
	ok, err := compiled.MatchString(s)
	return err == nil && ok
}

// regexReplace performs a PCRE2-ish regex substitution of match with
// replace across s.
func regexReplace(s, match, replace string) string {
	compiled, err := regexp2.Compile(match, regexp2.None)
	if err != nil {
		return s
	}
	out, err := compiled.Replace(s, replace, -1, -1)
	if err != nil {
		return s
	}
	return out
}
