package preprocess

import "github.com/nodeconv/subconverter/node"

// Filter keeps a Node iff it matches none of the exclude patterns and
// either include is empty or it matches at least one include pattern.
// Grounded on nodemanip.cpp's filterNodes/chkIgnore.
func Filter(nodes []node.Proxy, include, exclude []string) []node.Proxy {
	if len(include) == 0 && len(exclude) == 0 {
		return nodes
	}
	out := make([]node.Proxy, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if matchesAny(n, exclude) {
			continue
		}
		if len(include) > 0 && !matchesAny(n, include) {
			continue
		}
		out = append(out, *n)
	}
	return out
}

func matchesAny(n *node.Proxy, patterns []string) bool {
	for _, pat := range patterns {
		matched, residual := applyMatcher(pat, n)
		if !matched {
			continue
		}
		if residual == "" {
			return true
		}
		if regexFind(residual, n.Remark) {
			return true
		}
	}
	return false
}
