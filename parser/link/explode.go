// Package link implements the single-node link parsers (C3): one function
// per URL scheme, dispatched by Explode, mirroring the teacher's
// ais/backend provider registry (one file per backend, self-registered via
// init()) generalized from cloud buckets to proxy-link schemes. Grounded on
// _examples/original_source/src/parser/subparser.cpp's explode* functions.
package link

import (
	"strings"

	"github.com/nodeconv/subconverter/node"
)

// schemeHandlers records every prefix Explode knows how to dispatch,
// filled by each file's init() the way ais/backend providers self-register;
// dispatch itself stays the explicit, order-sensitive switch below because
// several prefixes overlap (e.g. "https://t.me/http" vs bare "https://").
var schemeHandlers = map[string]struct{}{}

func register(prefix string) { schemeHandlers[prefix] = struct{}{} }

// SupportedSchemes lists every registered prefix, used by tests
// enumerating link coverage.
func SupportedSchemes() []string {
	out := make([]string, 0, len(schemeHandlers))
	for prefix := range schemeHandlers {
		out = append(out, prefix)
	}
	return out
}

// Explode parses a single subscription line into a Proxy. It never panics:
// on any malformed input it returns a Proxy with Type == node.Unknown, per
// spec's "parsers are total" requirement.
func Explode(raw string) node.Proxy {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return node.Proxy{}
	}

	switch {
	case strings.HasPrefix(raw, "ssr://"):
		return explodeSSR(raw)
	case strings.HasPrefix(raw, "ss://"):
		return explodeSS(raw)
	case strings.HasPrefix(raw, "vmess://"), strings.HasPrefix(raw, "vmess1://"):
		return explodeVmess(raw)
	case strings.HasPrefix(raw, "trojan://"):
		return explodeTrojan(raw)
	case strings.HasPrefix(raw, "socks://"):
		return explodeSocks(raw)
	case strings.HasPrefix(raw, "https://t.me/socks"), strings.HasPrefix(raw, "tg://socks"):
		return explodeTelegramSocks(raw)
	case strings.HasPrefix(raw, "https://t.me/http"), strings.HasPrefix(raw, "tg://http"):
		return explodeTelegramHTTP(raw)
	case strings.HasPrefix(raw, "netch://"), strings.HasPrefix(raw, "Netch://"):
		return explodeNetch(raw)
	case strings.HasPrefix(raw, "ssd://"):
		// SSD is a multi-node bulk format; Explode returns only its first
		// node so callers that expect one Proxy per line still get one.
		if nodes := ExplodeSSDList(raw); len(nodes) > 0 {
			return nodes[0]
		}
		return node.Proxy{}
	case strings.HasPrefix(raw, "surge:///install-config"):
		return explodeSurgeInstall(raw)
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return explodeBareHTTP(raw)
	}
	return node.Proxy{}
}
