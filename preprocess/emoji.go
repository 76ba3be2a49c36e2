package preprocess

import (
	"context"
	"strings"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/script"
)

// Emoji strips and/or prepends emoji prefixes on Remark, grounded on
// subexport.cpp's removeEmoji/addEmoji.
func Emoji(ctx context.Context, nodes []node.Proxy, rules []node.RegexMatchConfig, removeEmoji, addEmoji bool, vm script.VM, gate script.Gate) []node.Proxy {
	if !removeEmoji && !addEmoji {
		return nodes
	}
	for i := range nodes {
		n := &nodes[i]
		if removeEmoji {
			n.Remark = stripLeadingEmoji(n.Remark)
		}
		if addEmoji {
			n.Remark = firstMatchingEmoji(ctx, n, rules, vm, gate)
		}
	}
	return nodes
}

// stripLeadingEmoji removes leading 4-byte UTF-8 runs whose first byte is
// 0xF0 (the lead byte of every codepoint in the emoji supplementary
// planes), the same byte-pattern test subexport.cpp's removeEmoji applies.
func stripLeadingEmoji(remark string) string {
	b := []byte(remark)
	start := 0
	for start+4 <= len(b) && b[start] == 0xF0 {
		start += 4
	}
	if start == 0 || start >= len(b) {
		return remark
	}
	return string(b[start:])
}

// firstMatchingEmoji returns the first rule (script or match/replace) whose
// pattern finds Remark, prefixed onto the original; returns the original
// Remark if nothing matches. Grounded on subexport.cpp's addEmoji.
func firstMatchingEmoji(ctx context.Context, n *node.Proxy, rules []node.RegexMatchConfig, vm script.VM, gate script.Gate) string {
	for _, rule := range rules {
		if rule.HasScript() {
			v, err := script.Run(ctx, vm, gate, rule.Script, script.EntryEmoji, n, nil)
			if err == nil && !v.IsNil && v.String != "" {
				return v.String + " " + n.Remark
			}
			continue
		}
		matched, residual := applyMatcher(rule.Match, n)
		if matched && residual != "" && regexFind(residual, n.Remark) {
			return strings.TrimSpace(rule.Replace) + " " + n.Remark
		}
	}
	return n.Remark
}
