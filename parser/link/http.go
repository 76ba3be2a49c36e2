package link

import (
	"strings"

	"github.com/nodeconv/subconverter/node"
)

func init() {
	register("https://t.me/http")
	register("tg://http")
	register("http://")
	register("https://")
}

// explodeTelegramHTTP mirrors explodeTelegramSocks for the HTTP/HTTPS
// Telegram deep-link form.
func explodeTelegramHTTP(link string) node.Proxy {
	q := parseQuery(queryPart(link))
	if q["server"] == "" || q["port"] == "0" {
		return node.Proxy{}
	}
	tls := q["tls"] == "true" || q["tls"] == "1"
	var out node.Proxy
	typ := node.HTTP
	if tls {
		typ = node.HTTPS
	}
	commonConstruct(&out, typ, q["group"], q["remarks"], q["server"], q["port"], node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	out.Username = q["user"]
	out.Password = q["pass"]
	out.TLSSecure = tls
	return out
}

// explodeBareHTTP treats a bare "http(s)://base64(user:pw@host:port)" link
// as userinfo-base64 HTTP proxy shorthand, per spec §4.3's "bare" row.
func explodeBareHTTP(link string) node.Proxy {
	tls := strings.HasPrefix(link, "https://")
	body := strings.TrimPrefix(strings.TrimPrefix(link, "https://"), "http://")
	if idx := strings.IndexByte(body, '#'); idx >= 0 {
		body = body[:idx]
	}
	decoded, ok := urlSafeBase64Decode(body)
	if !ok {
		return node.Proxy{}
	}
	at := strings.LastIndexByte(decoded, '@')
	if at < 0 {
		return node.Proxy{}
	}
	userinfo, hostport := decoded[:at], decoded[at+1:]
	username, password := userinfo, ""
	if kv := strings.SplitN(userinfo, ":", 2); len(kv) == 2 {
		username, password = kv[0], kv[1]
	}
	hp := strings.SplitN(hostport, ":", 2)
	if len(hp) != 2 || hp[1] == "0" {
		return node.Proxy{}
	}

	var out node.Proxy
	typ := node.HTTP
	if tls {
		typ = node.HTTPS
	}
	commonConstruct(&out, typ, "", "", hp[0], hp[1], node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	out.Username = username
	out.Password = password
	out.TLSSecure = tls
	return out
}
