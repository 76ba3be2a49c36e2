// Package preprocess implements the node preprocessing pipeline (C6):
// filter, rename, emoji, sort, and dedup passes over a NodeList, grounded
// on _examples/original_source/src/generator/config/nodemanip.cpp and
// subexport.cpp's preprocessNodes/nodeRename/addEmoji/removeEmoji family.
package preprocess

import (
	"context"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/script"
)

// Options bundles every knob Run's five passes consume, mirroring
// settings.Extra's relevant fields without importing settings directly (C6
// stays a leaf package; the façade maps Extra onto Options).
type Options struct {
	Include, Exclude       []string
	Rename                 []node.RegexMatchConfig
	Emoji                  []node.RegexMatchConfig
	RemoveEmoji, AddEmoji  bool
	Sort                   bool
	SortScript             string
	VM                     script.VM
	Gate                   script.Gate
}

// Run applies the five preprocessing passes in spec order: Filter, Rename,
// Emoji, Sort, DedupRemark.
func Run(ctx context.Context, nodes []node.Proxy, opt Options) []node.Proxy {
	nodes = Filter(nodes, opt.Include, opt.Exclude)
	nodes = Rename(ctx, nodes, opt.Rename, opt.VM, opt.Gate)
	nodes = Emoji(ctx, nodes, opt.Emoji, opt.RemoveEmoji, opt.AddEmoji, opt.VM, opt.Gate)
	nodes = Sort(ctx, nodes, opt.Sort, opt.SortScript, opt.VM, opt.Gate)
	nodes = DedupRemark(nodes)
	return nodes
}
