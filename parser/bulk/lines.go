package bulk

import (
	"strings"

	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/parser/link"
)

// explodeLines is the final fallback of ExplodeConfContent: a subscription
// blob that matched none of the structured dialects is either base64-encoded
// (decode the whole blob first) or already plain text, then split into
// lines and handed to the single-node Explode dispatcher one line at a
// time. Grounded on subparser.cpp's explodeSub, the catch-all branch of
// explodeConfContent.
func explodeLines(text string) []node.Proxy {
	if decoded, ok := cmn.DecodeBase64Any(strings.TrimSpace(text)); ok {
		if ds := string(decoded); strings.Count(ds, "://") > strings.Count(text, "://") {
			text = ds
		}
	}

	var out []node.Proxy
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.Contains(line, "://") {
			continue
		}
		p := link.Explode(line)
		if p.Hostname == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
