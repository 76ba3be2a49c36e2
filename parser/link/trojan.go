package link

import (
	"strings"

	"github.com/nodeconv/subconverter/node"
)

func init() { register("trojan://") }

// explodeTrojan parses "trojan://pw@host:port?sni=&ws=1&wspath=&type=ws&
// path=&allowInsecure=&tfo=#remark", per spec §4.3.
func explodeTrojan(link string) node.Proxy {
	body := strings.TrimPrefix(link, "trojan://")
	remark := ""
	if idx := strings.IndexByte(body, '#'); idx >= 0 {
		remark = urlDecode(body[idx+1:])
		body = body[:idx]
	}
	at := strings.IndexByte(body, '@')
	if at < 0 {
		return node.Proxy{}
	}
	password, rest := body[:at], body[at+1:]

	hostport, query := rest, ""
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		hostport, query = rest[:idx], rest[idx+1:]
	}
	hp := strings.SplitN(hostport, ":", 2)
	if len(hp) != 2 {
		hp = []string{hostport, "443"}
	}
	server, port := hp[0], hp[1]
	if port == "0" {
		return node.Proxy{}
	}

	q := parseQuery(query)
	network := q["type"]
	if network == "" && q["ws"] == "1" {
		network = "ws"
	}
	sni := q["peer"]
	if sni == "" {
		sni = q["sni"]
	}
	path := q["wspath"]
	if path == "" {
		path = q["path"]
	}

	var out node.Proxy
	commonConstruct(&out, node.Trojan, "", remark, server, port,
		node.TriUndef, triFromQuery(q, "tfo"), triFromQuery(q, "allowInsecure"), node.TriUndef)
	out.Password = password
	out.Path = path
	out.ServerName = sni
	out.TLSSecure = true
	if network == "" {
		network = "tcp"
	}
	out.TransferProtocol = network
	return out
}
