// Package bulk implements the multi-node config parsers (C4): one function
// per source dialect, fed by ExplodeConfContent's sentinel-substring
// classifier exactly as spec.md §4.4 describes it. Grounded on
// _examples/original_source/src/parser/subparser.cpp's explodeConfContent
// dispatcher and its per-dialect explode* functions.
package bulk

import (
	"strings"

	"github.com/nodeconv/subconverter/node"
)

// ExplodeConfContent classifies blob by scanning for dialect sentinel
// substrings (no general-purpose format sniffing), appends every parsed
// node to out, and reports whether any dialect matched.
func ExplodeConfContent(blob []byte, out *[]node.Proxy) bool {
	text := string(blob)

	var nodes []node.Proxy
	switch {
	case strings.HasPrefix(strings.TrimSpace(text), "ssd://"):
		nodes = explodeSSD(text)
	case strings.Contains(text, `"version"`):
		nodes = explodeSSConf(text)
	case strings.Contains(text, `"serverSubscribes"`):
		nodes = explodeSSRConf(text)
	case strings.Contains(text, `"uiItem"`), strings.Contains(text, "vnext"):
		nodes = explodeVmessConf(text)
	case strings.Contains(text, `"proxy_apps"`):
		nodes = explodeSSAndroid(text)
	case strings.Contains(text, `"idInUse"`):
		nodes = explodeSSTap(text)
	case strings.Contains(text, `"local_address"`) && strings.Contains(text, `"local_port"`):
		nodes = explodeSSRConf(text)
	case strings.Contains(text, `"ModeFileNameType"`):
		nodes = explodeNetchConf(text)
	case strings.Contains(text, "proxies:") || hasClashProxySection(text):
		if cnodes, ok := explodeClash([]byte(text)); ok {
			nodes = cnodes
		}
	case strings.Contains(text, "[Proxy]"):
		nodes = explodeSurge(text)
	case looksLikeQuantumultX(text):
		nodes = explodeQuanX(text)
	default:
		nodes = explodeLines(text)
	}

	if len(nodes) == 0 {
		return false
	}
	*out = append(*out, nodes...)
	return true
}

// hasClashProxySection recognizes the legacy "Proxy:" YAML key (modern
// Clash configs use lower-case "proxies:", matched above).
func hasClashProxySection(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Proxy:") {
			return true
		}
	}
	return false
}

func looksLikeQuantumultX(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, kw := range []string{"shadowsocks = ", "vmess = ", "trojan = ", "http = "} {
			if strings.HasPrefix(line, kw) {
				return true
			}
		}
	}
	return false
}
