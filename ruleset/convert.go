package ruleset

import (
	"strconv"
	"strings"

	"github.com/nodeconv/subconverter/node"
)

// ConvertRuleset normalizes raw ruleset text into Surge-shaped lines.
// Grounded on ruleconvert.cpp's convertRuleset.
func ConvertRuleset(content string, typ node.RulesetType) string {
	switch typ {
	case node.SurgeRuleset:
		return content

	case node.ClashDomain, node.ClashIpCidr, node.ClashClassical:
		return convertClashPayload(content, typ == node.ClashClassical)

	case node.QuantumultXRuleset:
		return convertQuantumultX(content)
	}
	return content
}

// convertClashPayload strips a Clash "payload:\n  - 'x'" YAML block down to
// bare values, then (unless classical) infers a Surge rule head per line.
func convertClashPayload(content string, classical bool) string {
	lines := splitAny(content, "\r\n")
	var values []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "payload:") {
			continue
		}
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.Trim(trimmed, `'"`)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	if classical {
		return strings.Join(values, "\n")
	}

	var out strings.Builder
	for _, v := range values {
		head, body := inferSurgeHead(v)
		out.WriteString(head)
		out.WriteString(body)
		out.WriteByte('\n')
	}
	return out.String()
}

// inferSurgeHead classifies a bare Clash payload value the way
// convertRuleset's payload branch does: CIDR literals, leading-dot domain
// suffixes (with trailing ".*" runs collapsing to DOMAIN-KEYWORD and the
// leading "." or "+." prefix stripped), wildcard patterns, and plain
// domains. Returns the rule head (with trailing comma) and the value to
// emit after it.
func inferSurgeHead(line string) (head, body string) {
	if idx := strings.IndexByte(line, '/'); idx >= 0 {
		if isIPv4Literal(line[:idx]) {
			return "IP-CIDR,", line
		}
		return "IP-CIDR6,", line
	}
	if strings.HasPrefix(line, ".") || strings.HasPrefix(line, "+.") {
		keyword := false
		for strings.HasSuffix(line, ".*") {
			keyword = true
			line = strings.TrimSuffix(line, ".*")
		}
		if strings.HasPrefix(line, "+.") {
			line = line[2:]
		} else {
			line = line[1:]
		}
		if keyword {
			return "DOMAIN-KEYWORD,", line
		}
		return "DOMAIN-SUFFIX,", line
	}
	if strings.ContainsAny(line, "*?") {
		return "DOMAIN-WILDCARD,", line
	}
	return "DOMAIN,", line
}

func isIPv4Literal(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if n, err := strconv.Atoi(p); err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// convertQuantumultX rewrites the first field of each line, keeps only the
// value field that follows, and drops any further field in between except a
// trailing ",no-resolve". Grounded on convertRuleset's QuantumultX branch
// (the regReplace chain's "(?:,(?!no-resolve).*?)(,no-resolve)?" capture,
// which discards everything between the value and an optional trailing
// no-resolve marker).
func convertQuantumultX(content string) string {
	lines := splitAny(content, "\r\n")
	var out strings.Builder
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			out.WriteByte('\n')
			continue
		}
		fields := strings.SplitN(line, ",", 2)
		head := strings.ToUpper(fields[0])
		switch strings.ToLower(fields[0]) {
		case "host-wildcard":
			head = "DOMAIN-WILDCARD"
		case "host":
			head = "DOMAIN"
		case "ip6-cidr":
			head = "IP-CIDR6"
		}
		if len(fields) == 1 {
			out.WriteString(head)
			out.WriteByte('\n')
			continue
		}
		rest := fields[1]
		value := rest
		noResolve := ""
		if idx := strings.IndexByte(rest, ','); idx >= 0 {
			value = rest[:idx]
			if strings.HasSuffix(strings.ToLower(rest[idx:]), ",no-resolve") {
				noResolve = ",no-resolve"
			}
		}
		out.WriteString(head)
		out.WriteByte(',')
		out.WriteString(value)
		out.WriteString(noResolve)
		out.WriteByte('\n')
	}
	return out.String()
}

// WildcardDomainToRegex translates a Surge DOMAIN-WILDCARD pattern into the
// DOMAIN-REGEX form Clash/SingBox require. Grounded on ruleconvert.cpp's
// wildcardDomainToRegex.
func WildcardDomainToRegex(pattern string) string {
	var out strings.Builder
	out.WriteByte('^')
	for _, c := range pattern {
		switch c {
		case '.':
			out.WriteString(`\.`)
		case '*':
			out.WriteString(".*")
		case '?':
			out.WriteByte('.')
		case '+', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			out.WriteByte('\\')
			out.WriteRune(c)
		default:
			out.WriteRune(c)
		}
	}
	out.WriteByte('$')
	return out.String()
}

func splitAny(s, cutset string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(cutset, r)
	})
}
