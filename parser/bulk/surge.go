package bulk

import (
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/nodeconv/subconverter/node"
)

// explodeSurge parses a Surge/Surfboard profile's "[Proxy]" section. Each
// line is "name = type, server, port, key=value, key=value, ...". Grounded
// on subparser.cpp's explodeSurge, which walks the same section with INIReader
// and switches on the type token; loaded here with gopkg.in/ini.v1 instead of
// a hand-rolled section scanner.
func explodeSurge(text string) []node.Proxy {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		AllowShadows:        true,
	}, []byte(text))
	if err != nil {
		return nil
	}
	sec, err := cfg.GetSection("Proxy")
	if err != nil {
		return nil
	}

	out := make([]node.Proxy, 0, len(sec.Keys()))
	for _, key := range sec.Keys() {
		remark := key.Name()
		fields := splitPeerFields(key.Value())
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < 3 {
			continue
		}
		typ := strings.ToLower(fields[0])
		if typ == "direct" || typ == "reject" || typ == "reject-tinygif" {
			continue
		}
		server, port := fields[1], fields[2]
		params := surgeParams(fields[3:])

		var p node.Proxy
		switch typ {
		case "custom":
			// custom proxy modules wrap another protocol in a plugin; not
			// resolvable without fetching+executing the module, so skipped
			// the same way subparser.cpp's explodeSurge skips unsupported
			// custom entries it can't classify further.
			continue
		case "ss", "shadowsocks":
			plugin, pluginOpts := surgeSSPlugin(params)
			constructSS(&p, "", remark, server, port, params["password"], params["encrypt-method"], plugin, pluginOpts)
			p.AllowInsecure = triFromSurge(params, "skip-cert-verify")
			p.UDP = triFromSurge(params, "udp-relay")
		case "socks5", "socks5-tls":
			constructSocks(&p, "", remark, server, port, params["username"], params["password"])
			p.TLSSecure = typ == "socks5-tls"
			p.AllowInsecure = triFromSurge(params, "skip-cert-verify")
		case "http", "https":
			constructHTTP(&p, "", remark, server, port, params["username"], params["password"], typ == "https")
			p.AllowInsecure = triFromSurge(params, "skip-cert-verify")
		case "vmess":
			tls := ""
			if params["tls"] == "true" {
				tls = "tls"
			}
			net := "tcp"
			path, host := "", ""
			if params["ws"] == "true" {
				net = "ws"
				path = params["ws-path"]
				host = params["obfs-host"]
			}
			constructVmess(&p, "", remark, server, port, params["username"], "0", net, "auto", path, host, "", tls, params["sni"])
			p.AllowInsecure = triFromSurge(params, "skip-cert-verify")
		case "trojan":
			network, path := "tcp", ""
			if params["ws"] == "true" {
				network, path = "ws", params["ws-path"]
			}
			constructTrojan(&p, "", remark, server, port, params["password"], network, params["sni"], path)
			p.AllowInsecure = triFromSurge(params, "skip-cert-verify")
		case "snell":
			version, _ := strconv.Atoi(params["version"])
			constructSnell(&p, "", remark, server, port, params["psk"], params["obfs"], params["obfs-host"], version)
		case "wireguard":
			peerRef := params["peer"]
			peer, ok := parsePeer(peerRef)
			if !ok {
				continue
			}
			host, epPort := splitEndpoint(peer.Endpoint)
			constructWireGuard(&p, "", remark, host, strconv.Itoa(parsePortInt(epPort)),
				params["self-ip"], params["self-ip-v6"], params["private-key"], peer.PublicKey, "",
				splitDNS(params["dns"]), uint16(toInt(params["mtu"])), "", params["test-url"])
			p.ClientId = peer.ClientId
			p.AllowedIPs = peer.AllowedIPs
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}

// surgeParams turns ["key=value", "key2=value2", ...] tail fields into a
// lookup map; bare flags with no "=" are ignored.
func surgeParams(fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		eq := strings.Index(f, "=")
		if eq < 0 {
			continue
		}
		k := strings.TrimSpace(f[:eq])
		v := strings.Trim(strings.TrimSpace(f[eq+1:]), `"`)
		m[k] = v
	}
	return m
}

func surgeSSPlugin(params map[string]string) (plugin, opts string) {
	switch params["obfs"] {
	case "http", "tls":
		return "obfs-local", "obfs=" + params["obfs"] + ";obfs-host=" + params["obfs-host"]
	}
	return "", ""
}

func triFromSurge(params map[string]string, key string) node.TriBool {
	v, ok := params[key]
	if !ok {
		return node.TriUndef
	}
	return node.TriFrom(v == "true")
}

func splitDNS(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
