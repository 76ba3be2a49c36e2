package preprocess

import (
	"context"
	"sort"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/script"
)

// Sort stable-sorts nodes by Remark, sinking Type==Unknown to the end,
// unless sortScript is set and authorized, in which case script.compare
// drives the comparison instead. Grounded on nodemanip.cpp's
// preprocessNodes sort step.
func Sort(ctx context.Context, nodes []node.Proxy, enabled bool, sortScript string, vm script.VM, gate script.Gate) []node.Proxy {
	if !enabled {
		return nodes
	}
	less := func(i, j int) bool {
		a, b := &nodes[i], &nodes[j]
		if (a.Type == node.Unknown) != (b.Type == node.Unknown) {
			return b.Type == node.Unknown
		}
		if sortScript != "" && gate.Authorized {
			v, err := script.Run(ctx, vm, gate, sortScript, script.EntryCompare, a, b)
			if err == nil && !v.IsNil {
				return v.Int < 0
			}
		}
		return a.Remark < b.Remark
	}
	sort.SliceStable(nodes, less)
	return nodes
}
