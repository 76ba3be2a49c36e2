package bulk

import (
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/parser/link"
)

// explodeSSD is the bulk-format entry point for "ssd://" blobs; the actual
// multi-node decode lives in parser/link since C3's Explode needs the same
// logic (keeping only the first node there).
func explodeSSD(text string) []node.Proxy {
	return link.ExplodeSSDList(text)
}
