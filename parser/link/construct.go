package link

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/node"
)

// commonConstruct fills the fields every protocol shares, mirroring
// subparser.cpp's commonConstruct: group/remark defaults, numeric port
// parsing, and tri-state flag passthrough.
func commonConstruct(n *node.Proxy, typ node.Type, group, remark, server, port string, udp, tfo, scv, tls13 node.TriBool) {
	n.Type = typ
	if group == "" {
		group = n.DefaultGroup()
	}
	n.Group = group
	n.Hostname = server
	n.Port = parsePort(port)
	if remark == "" {
		n.Remark = server + ":" + port
	} else {
		n.Remark = remark
	}
	n.UDP = udp
	n.TCPFastOpen = tfo
	n.AllowInsecure = scv
	n.TLS13 = tls13
}

func parsePort(s string) uint16 {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 || v > 65535 {
		return 0
	}
	return uint16(v)
}

func toInt(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func isIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

func isIPv6(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil
}

func urlSafeBase64Decode(s string) (string, bool) {
	b, ok := cmn.DecodeBase64Any(s)
	if !ok {
		return "", false
	}
	return string(b), true
}

// urlDecode tolerates already-plain text, matching the original's
// urlDecode-or-pass-through idiom used on remark fragments.
func urlDecode(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}

// parseQuery splits a "key=val&key2=val2" tail into a map, tolerating a
// leading "?" and semicolon-joined plugin option strings.
func parseQuery(raw string) map[string]string {
	raw = strings.TrimPrefix(raw, "?")
	out := map[string]string{}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			out[kv[0]] = ""
			continue
		}
		out[kv[0]] = urlDecode(kv[1])
	}
	return out
}

func triFromQuery(q map[string]string, key string) node.TriBool {
	v, ok := q[key]
	if !ok {
		return node.TriUndef
	}
	var t node.TriBool
	t.Set(v)
	return t
}
