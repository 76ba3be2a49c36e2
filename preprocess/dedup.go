package preprocess

import (
	"fmt"

	"github.com/nodeconv/subconverter/node"
)

// DedupRemark assigns Id = 0..n-1 in final order and suffixes duplicate
// Remarks with " 2", " 3", ... preserving first-seen order. Grounded on
// subexport.cpp's processRemark, applied per-node across the whole list.
func DedupRemark(nodes []node.Proxy) []node.Proxy {
	seen := make(map[string]int, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		n.Id = i
		base := n.Remark
		seen[base]++
		if count := seen[base]; count > 1 {
			suffixed := fmt.Sprintf("%s %d", base, count)
			for seen[suffixed] > 0 {
				count++
				suffixed = fmt.Sprintf("%s %d", base, count)
			}
			seen[suffixed]++
			n.Remark = suffixed
		}
	}
	return nodes
}
