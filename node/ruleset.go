package node

import "strings"

// RulesetType is the inferred dialect of a ruleset's source text.
type RulesetType int

const (
	SurgeRuleset RulesetType = iota
	QuantumultXRuleset
	ClashDomain
	ClashIpCidr
	ClashClassical
)

// InlineRulePrefix is the sentinel marking an inline rule line instead of a
// URL: a RulesetConfig.Url of "[]DOMAIN-SUFFIX,example.com" resolves without
// a fetch.
const InlineRulePrefix = "[]"

// RulesetConfig is the user-authored template describing one ruleset
// source bound to a target policy group (spec §3.3).
type RulesetConfig struct {
	Group    string
	Url      string
	Interval int
	Type     RulesetType
	Flags    []string // merged ",flags=a|b|c" tail + per-ruleset .flags list
}

// IsInline reports whether Url is a literal inline rule rather than a
// fetchable reference.
func (rc RulesetConfig) IsInline() bool { return strings.HasPrefix(rc.Url, InlineRulePrefix) }

// InlineBody strips the inline sentinel, returning the raw rule line(s).
func (rc RulesetConfig) InlineBody() string { return strings.TrimPrefix(rc.Url, InlineRulePrefix) }

// RulesetContent is the resolved, possibly-in-flight body of one ruleset:
// the future may be shared across requests (spec §5).
type RulesetContent struct {
	Group          string
	Url            string
	Type           RulesetType
	UpdateInterval int
	Flags          []string

	// Rules is populated once the backing future completes; Err records a
	// terminal fetch/parse failure (local recovery: the ruleset is simply
	// empty, never aborts the request).
	Rules []string
	Err   error
}
