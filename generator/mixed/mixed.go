// Package mixed emits the base64-joined single-link formats (C9): a
// newline-joined, then whole-blob-base64-encoded, list of ss://, ssr://,
// vmess://, and trojan:// links, plus the SIP008-style SSSub JSON array.
// Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToSingle and proxyToSSSub.
package mixed

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind selects which protocol subset Emit includes in the link pack,
// mirroring proxyToSingle's bitmask (types: SS=1 SSR=2 VMess=4 Trojan=8).
type Kind int

const (
	SS Kind = 1 << iota
	SSR
	VMess
	Trojan
)

// Emit renders nodes whose Type is selected by kind as one link per line,
// base64-encoding the whole blob unless nodeListOnly is set (plain
// newline list).
func Emit(nodes []node.Proxy, kind Kind, nodeListOnly bool) string {
	var b strings.Builder
	for _, n := range nodes {
		link, ok := linkFor(n, kind)
		if !ok {
			continue
		}
		b.WriteString(link)
		b.WriteByte('\n')
	}
	if nodeListOnly {
		return b.String()
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

func linkFor(n node.Proxy, kind Kind) (string, bool) {
	port := strconv.Itoa(int(n.Port))
	switch n.Type {
	case node.Shadowsocks:
		if kind&SS == 0 {
			return "", false
		}
		link := "ss://" + urlSafeB64(n.EncryptMethod+":"+n.Password) + "@" + n.Hostname + ":" + port
		if n.Plugin != "" && n.PluginOption != "" {
			link += "/?plugin=" + urlEncode(n.Plugin+";"+n.PluginOption)
		}
		return link + "#" + urlEncode(n.Remark), true

	case node.ShadowsocksR:
		if kind&SSR == 0 {
			return "", false
		}
		body := n.Hostname + ":" + port + ":" + n.Protocol + ":" + n.EncryptMethod + ":" + n.OBFS + ":" + urlSafeB64(n.Password) +
			"/?group=" + urlSafeB64(n.Group) + "&remarks=" + urlSafeB64(n.Remark) +
			"&obfsparam=" + urlSafeB64(n.OBFSParam) + "&protoparam=" + urlSafeB64(n.ProtocolParam)
		return "ssr://" + urlSafeB64(body), true

	case node.VMess:
		if kind&VMess == 0 {
			return "", false
		}
		tls := ""
		if n.TLSSecure {
			tls = "tls"
		}
		payload, _ := json.Marshal(map[string]string{
			"v": "2", "ps": n.Remark, "add": n.Hostname, "port": port, "type": n.FakeType,
			"id": n.UserId, "aid": strconv.Itoa(int(n.AlterId)), "net": n.TransferProtocol,
			"path": n.Path, "host": n.Host, "tls": tls,
		})
		return "vmess://" + base64.StdEncoding.EncodeToString(payload), true

	case node.Trojan:
		if kind&Trojan == 0 {
			return "", false
		}
		link := "trojan://" + n.Password + "@" + n.Hostname + ":" + port + "?allowInsecure=" + insecureFlag(n)
		if n.Host != "" {
			link += "&sni=" + n.Host
		}
		return link + "#" + urlEncode(n.Remark), true
	}
	return "", false
}

func insecureFlag(n node.Proxy) string {
	if n.AllowInsecure.Get(false) {
		return "1"
	}
	return "0"
}

// ssCiphers is the legacy SIP002 cipher whitelist SSSub requires.
var ssCiphers = map[string]bool{
	"aes-128-gcm": true, "aes-192-gcm": true, "aes-256-gcm": true,
	"aes-128-cfb": true, "aes-192-cfb": true, "aes-256-cfb": true,
	"chacha20-ietf-poly1305": true, "chacha20-ietf": true, "chacha20": true, "rc4-md5": true,
}

// EmitSSSub renders the SIP008 JSON array format: Shadowsocks nodes as-is,
// ShadowsocksR nodes only when their cipher/protocol/obfs degrade
// cleanly to plain Shadowsocks (method whitelisted, protocol "origin",
// obfs "plain") -- the same restriction proxyToSSSub applies.
func EmitSSSub(nodes []node.Proxy) string {
	var entries []map[string]interface{}
	for _, n := range nodes {
		plugin := n.Plugin
		switch n.Type {
		case node.Shadowsocks:
			if plugin == "simple-obfs" {
				plugin = "obfs-local"
			}
		case node.ShadowsocksR:
			if !ssCiphers[n.EncryptMethod] || n.Protocol != "origin" || n.OBFS != "plain" {
				continue
			}
		default:
			continue
		}
		entries = append(entries, map[string]interface{}{
			"remarks": n.Remark, "server": n.Hostname, "server_port": int(n.Port),
			"password": n.Password, "method": n.EncryptMethod,
			"plugin": plugin, "plugin_opts": n.PluginOption,
		})
	}
	out, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(out)
}

func urlSafeB64(s string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(s)), "=")
}

func urlEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
