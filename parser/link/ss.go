package link

import (
	"regexp"
	"strings"

	"github.com/nodeconv/subconverter/node"
)

func init() { register("ss://") }

var (
	reSSUserinfoAt  = regexp.MustCompile(`^(\S+?)@(\S+):(\d+)$`)
	reSSMethodPw    = regexp.MustCompile(`^(\S+?):(\S+)$`)
	reSSFullDecoded = regexp.MustCompile(`^(\S+?):(\S+)@(\S+):(\d+)$`)
)

// explodeSS covers all three SS link dialects: plain "method:pw@host:port",
// a full base64 of that string, and the userinfo-base64 form
// "base64(method:pw)@host:port". Grounded on subparser.cpp's explodeSS.
func explodeSS(link string) node.Proxy {
	var out node.Proxy
	body := strings.TrimPrefix(link, "ss://")
	body = strings.Replace(body, "/?", "?", 1)

	remark, group, plugin, pluginOpts := "", "", "", ""
	if idx := strings.IndexByte(body, '#'); idx >= 0 {
		remark = urlDecode(body[idx+1:])
		body = body[:idx]
	}
	if idx := strings.IndexByte(body, '?'); idx >= 0 {
		q := parseQuery(body[idx+1:])
		body = body[:idx]
		if p, ok := q["plugin"]; ok {
			parts := strings.SplitN(p, ";", 2)
			plugin = parts[0]
			if len(parts) == 2 {
				pluginOpts = parts[1]
			}
		}
		if g, ok := q["group"]; ok {
			if decoded, ok2 := urlSafeBase64Decode(g); ok2 {
				group = decoded
			} else {
				group = g
			}
		}
	}

	var server, port, method, password string
	if m := reSSUserinfoAt.FindStringSubmatch(body); m != nil {
		secret, ok := urlSafeBase64Decode(m[1])
		if !ok {
			secret = m[1]
		}
		server, port = m[2], m[3]
		if mp := reSSMethodPw.FindStringSubmatch(secret); mp != nil {
			method, password = mp[1], mp[2]
		} else {
			return node.Proxy{}
		}
	} else {
		decoded, ok := urlSafeBase64Decode(body)
		if !ok {
			return node.Proxy{}
		}
		mp := reSSFullDecoded.FindStringSubmatch(decoded)
		if mp == nil {
			return node.Proxy{}
		}
		method, password, server, port = mp[1], mp[2], mp[3], mp[4]
	}

	if port == "0" {
		return node.Proxy{}
	}

	commonConstruct(&out, node.Shadowsocks, group, remark, server, port, node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	out.Password = password
	out.EncryptMethod = method
	out.Plugin = plugin
	out.PluginOption = pluginOpts
	return out
}
