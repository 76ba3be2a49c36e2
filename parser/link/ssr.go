package link

import (
	"strings"

	"github.com/nodeconv/subconverter/node"
)

func init() { register("ssr://") }

// ssrOriginProtocol/ssrPlainOBFS mirror the original's downgrade test: an SSR node
// whose protocol/obfs are both no-ops and whose cipher is SS-compatible is
// really plain Shadowsocks (spec §4.3 table footnote).
const (
	ssrOriginProtocol = "origin"
	ssrPlainOBFS      = "plain"
)

var ssCompatibleCiphers = map[string]bool{
	"aes-128-gcm": true, "aes-192-gcm": true, "aes-256-gcm": true,
	"aes-128-cfb": true, "aes-192-cfb": true, "aes-256-cfb": true,
	"chacha20": true, "chacha20-ietf": true, "chacha20-ietf-poly1305": true,
	"rc4-md5": true, "none": true,
}

// explodeSSR parses the base64-wrapped
// "server:port:protocol:method:obfs:base64(password)/?group=…&remarks=…&obfsparam=…&protoparam=…"
// form. Grounded on subparser.cpp's SSR handling (libssr link grammar).
func explodeSSR(link string) node.Proxy {
	decoded, ok := urlSafeBase64Decode(strings.TrimPrefix(link, "ssr://"))
	if !ok {
		return node.Proxy{}
	}
	body, query := decoded, ""
	if idx := strings.Index(decoded, "/?"); idx >= 0 {
		body, query = decoded[:idx], decoded[idx+2:]
	}

	fields := strings.SplitN(body, ":", 6)
	if len(fields) != 6 {
		return node.Proxy{}
	}
	server, port, protocol, method, obfs, passB64 := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	if port == "0" {
		return node.Proxy{}
	}
	password, ok := urlSafeBase64Decode(passB64)
	if !ok {
		password = passB64
	}

	q := parseQuery(query)
	group, remark, obfsparam, protoparam := "", "", "", ""
	if g, ok := q["group"]; ok {
		if d, ok2 := urlSafeBase64Decode(g); ok2 {
			group = d
		} else {
			group = g
		}
	}
	if r, ok := q["remarks"]; ok {
		if d, ok2 := urlSafeBase64Decode(r); ok2 {
			remark = d
		} else {
			remark = r
		}
	}
	if p, ok := q["obfsparam"]; ok {
		if d, ok2 := urlSafeBase64Decode(p); ok2 {
			obfsparam = d
		} else {
			obfsparam = p
		}
	}
	if p, ok := q["protoparam"]; ok {
		if d, ok2 := urlSafeBase64Decode(p); ok2 {
			protoparam = d
		} else {
			protoparam = p
		}
	}

	var out node.Proxy
	typ := node.ShadowsocksR
	if protocol == ssrOriginProtocol && obfs == ssrPlainOBFS && ssCompatibleCiphers[method] {
		typ = node.Shadowsocks
	}
	commonConstruct(&out, typ, group, remark, server, port, node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	out.Password = password
	out.EncryptMethod = method
	if typ == node.ShadowsocksR {
		out.Protocol = protocol
		out.ProtocolParam = protoparam
		out.OBFS = obfs
		out.OBFSParam = obfsparam
	}
	return out
}
