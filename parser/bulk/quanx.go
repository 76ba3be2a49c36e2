package bulk

import (
	"strings"

	"github.com/nodeconv/subconverter/node"
)

// explodeQuanX parses QuantumultX's "type = server:port, key=value, ...,
// tag=name" server_local line form (server and port may also be two
// separate fields), one node per line. Grounded on
// subparser.cpp's explodeQuanX, which the same dialect also appears inside
// Surge profiles via explodeSurge's remarks=="shadowsocks" fallback case;
// kept as one standalone parser here since ExplodeConfContent dispatches to
// it directly for bare QuantumultX exports.
func explodeQuanX(text string) []node.Proxy {
	var out []node.Proxy
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		typ := strings.ToLower(strings.TrimSpace(line[:eq]))
		fields := splitPeerFields(line[eq+1:])
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < 2 {
			continue
		}
		server, port := splitEndpoint(fields[0])
		rest := fields[1:]
		if port == "" {
			server, port, rest = fields[0], fields[1], fields[2:]
		}
		params := surgeParams(rest)
		tag := params["tag"]

		var p node.Proxy
		switch typ {
		case "shadowsocks":
			constructSS(&p, "", tag, server, port, params["password"], params["method"], params["obfs"], params["obfs-host"])
		case "vmess":
			tls := ""
			if params["obfs"] == "over-tls" || params["tls"] == "true" {
				tls = "tls"
			}
			net := "tcp"
			if params["obfs"] == "ws" {
				net = "ws"
			}
			constructVmess(&p, "", tag, server, port, params["password"], "0", net, params["method"],
				params["obfs-uri"], params["obfs-host"], "", tls, "")
		case "trojan":
			constructTrojan(&p, "", tag, server, port, params["password"], "tcp", params["tls-host"], "")
		case "http":
			constructHTTP(&p, "", tag, server, port, params["username"], params["password"], params["over-tls"] == "true")
		case "socks5":
			constructSocks(&p, "", tag, server, port, params["username"], params["password"])
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}

