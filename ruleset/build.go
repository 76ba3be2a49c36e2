package ruleset

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nodeconv/subconverter/node"
)

// RulesetTypeParam/ParseRulesetTypeParam convert between node.RulesetType
// and the 1-indexed `type=1..6` query parameter /getruleset accepts
// (spec.md §6.1/§6.2).
func RulesetTypeParam(t node.RulesetType) int     { return int(t) + 1 }
func ParseRulesetTypeParam(n int) node.RulesetType { return node.RulesetType(n - 1) }

// remoteCapable reports whether target natively supports a managed remote
// ruleset reference instead of inlining every rule line.
func remoteCapable(target Target) bool {
	return target == TargetSurge3Plus || target == TargetSurfboard || target == TargetQuantumultX
}

// RemoteReference builds the managedConfigPrefix + /getruleset?type=N&url=
// reference line emitted when a target can fetch the ruleset itself rather
// than have it inlined (spec §4.7 "Remote ruleset references").
func RemoteReference(managedConfigPrefix string, rc node.RulesetContent) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(rc.Url))
	return fmt.Sprintf("%s/getruleset?type=%d&url=%s", managedConfigPrefix, RulesetTypeParam(rc.Type), encoded)
}

// Build walks the loaded RulesetContent list in order, normalizes each
// one's lines through ConvertRuleset, rewrites/whitelists heads for target,
// appends the ruleset's merged flags (Surge >=3 only), and stops appending
// once maxAllowedRules is reached -- but a capped-out ruleset still yields
// its remote reference when the target supports one, matching spec.md
// §4.7's "the engine stops appending (but still emits references)".
func Build(target Target, contents []node.RulesetContent, maxAllowedRules int, managedConfigPrefix string) (lines []string, finalLine string) {
	total := 0
	for _, rc := range contents {
		if rc.Err != nil || len(rc.Rules) == 0 {
			continue
		}

		capped := maxAllowedRules > 0 && total >= maxAllowedRules
		if capped {
			if remoteCapable(target) && managedConfigPrefix != "" {
				lines = append(lines, "RULE-SET,"+RemoteReference(managedConfigPrefix, rc)+","+rc.Group)
			}
			continue
		}

		raw := strings.Join(rc.Rules, "\n")
		normalized := ConvertRuleset(raw, rc.Type)
		for _, line := range strings.Split(normalized, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if maxAllowedRules > 0 && total >= maxAllowedRules {
				break
			}
			line = RewriteHead(target, line)
			if line == "route.final" {
				if finalLine == "" {
					finalLine = rc.Group
				}
				continue
			}
			if !Accepts(target, line) {
				continue
			}
			if IsFinal(line) {
				if finalLine == "" {
					finalLine = appendGroup(line, rc.Group)
				}
				continue
			}
			lines = append(lines, appendFlags(appendGroup(line, rc.Group), rc.Flags, target))
			total++
		}
	}
	return lines, finalLine
}

func appendGroup(line, group string) string {
	if group == "" {
		return line
	}
	return line + "," + group
}

// appendFlags merges and de-duplicates a ruleset's flags onto line; Surge
// >=3 is the only target that honors them (spec §4.7 "Flag passthrough").
func appendFlags(line string, flags []string, target Target) string {
	if target != TargetSurge3Plus || len(flags) == 0 {
		return line
	}
	seen := make(map[string]struct{}, len(flags))
	var unique []string
	for _, f := range flags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}
	if len(unique) == 0 {
		return line
	}
	return line + "," + strings.Join(unique, "|")
}
