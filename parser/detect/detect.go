// Package detect classifies an opaque subscription blob when its origin
// gives no hint about dialect (C5). Grounded on spec.md §4.5's ordered
// checks, which trace back to subparser.cpp's top-level dispatch ahead of
// explodeConfContent.
package detect

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/parser/bulk"
	"github.com/nodeconv/subconverter/parser/link"
)

// Kind names the dialect Classify decided a blob belongs to.
type Kind int

const (
	Unknown Kind = iota
	SSD
	Clash
	SurgeOrQuanX
	LineList
)

func (k Kind) String() string {
	switch k {
	case SSD:
		return "ssd"
	case Clash:
		return "clash"
	case SurgeOrQuanX:
		return "surge-or-quantumultx"
	case LineList:
		return "line-list"
	}
	return "unknown"
}

var (
	clashSectionRe = regexp2.MustCompile(`(?m)^(Proxy|proxies):`, regexp2.None)
	surgeLineRe    = regexp2.MustCompile(`(?im)^\s*[\w-]+\s*=\s*(vmess|shadowsocks|http|trojan)\s*,`, regexp2.None)
)

// Classify applies spec.md §4.5's checks in order and returns the matched
// Kind. It never returns an error; a blob nothing recognizes classifies as
// LineList, the same catch-all ExplodeConfContent itself falls back to.
func Classify(blob []byte) Kind {
	text := strings.TrimSpace(string(blob))
	if strings.HasPrefix(text, "ssd://") {
		return SSD
	}
	if matched(clashSectionRe, text) {
		return Clash
	}

	candidate := text
	if decoded, ok := cmn.DecodeBase64Any(text); ok {
		candidate = string(decoded)
	}
	if matched(surgeLineRe, candidate) {
		return SurgeOrQuanX
	}
	return LineList
}

func matched(re *regexp2.Regexp, text string) bool {
	ok, err := re.MatchString(text)
	return err == nil && ok
}

// Explode dispatches a classified blob to the right parser and returns
// every node it yields; ties C5's classification to C3/C4 so callers that
// don't already know the origin format can go straight from raw bytes to
// nodes.
func Explode(blob []byte) []node.Proxy {
	switch Classify(blob) {
	case SSD:
		return link.ExplodeSSDList(string(blob))
	default:
		var out []node.Proxy
		bulk.ExplodeConfContent(blob, &out)
		return out
	}
}
