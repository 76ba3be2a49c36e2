package preprocess

import (
	"context"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/script"
)

// Rename applies each RegexMatchConfig to Remark in order: a script rule
// replaces Remark with script.rename(node)'s result when non-empty,
// otherwise a regex replace runs. If Remark ends up empty after all rules,
// the original is restored. Grounded on nodemanip.cpp's nodeRename.
func Rename(ctx context.Context, nodes []node.Proxy, rules []node.RegexMatchConfig, vm script.VM, gate script.Gate) []node.Proxy {
	if len(rules) == 0 {
		return nodes
	}
	for i := range nodes {
		n := &nodes[i]
		original := n.Remark
		for _, rule := range rules {
			if rule.HasScript() {
				v, err := script.Run(ctx, vm, gate, rule.Script, script.EntryRename, n, nil)
				if err == nil && !v.IsNil && v.String != "" {
					n.Remark = v.String
				}
				continue
			}
			matched, residual := applyMatcher(rule.Match, n)
			if matched && residual != "" {
				n.Remark = regexReplace(n.Remark, residual, rule.Replace)
			}
		}
		if n.Remark == "" {
			n.Remark = original
		}
	}
	return nodes
}
