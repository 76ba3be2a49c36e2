package bulk

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

// constructSS/constructSSR/constructVmess/constructTrojan/constructSocks/
// constructHTTP mirror parser/link's commonConstruct-based helpers; bulk
// parsers build many nodes per call instead of one; grounded on the same
// subparser.cpp ssConstruct/ssrConstruct/vmessConstruct/trojanConstruct/
// socksConstruct/httpConstruct family as parser/link.

func commonConstruct(n *node.Proxy, typ node.Type, group, remark, server, port string) {
	n.Type = typ
	if group == "" {
		group = n.DefaultGroup()
	}
	n.Group = group
	n.Hostname = server
	n.Port = parsePort(port)
	if remark == "" {
		remark = server + ":" + port
	}
	n.Remark = remark
}

func constructSS(n *node.Proxy, group, remark, server, port, password, method, plugin, pluginOpts string) {
	commonConstruct(n, node.Shadowsocks, group, remark, server, port)
	n.Password = password
	n.EncryptMethod = method
	n.Plugin = plugin
	n.PluginOption = pluginOpts
}

func constructSSR(n *node.Proxy, group, remark, server, port, protocol, method, obfs, password, obfsParam, protoParam string) {
	commonConstruct(n, node.ShadowsocksR, group, remark, server, port)
	n.Password = password
	n.EncryptMethod = method
	n.Protocol = protocol
	n.ProtocolParam = protoParam
	n.OBFS = obfs
	n.OBFSParam = obfsParam
}

func constructSocks(n *node.Proxy, group, remark, server, port, username, password string) {
	commonConstruct(n, node.SOCKS5, group, remark, server, port)
	n.Username = username
	n.Password = password
}

func constructHTTP(n *node.Proxy, group, remark, server, port, username, password string, tls bool) {
	typ := node.HTTP
	if tls {
		typ = node.HTTPS
	}
	commonConstruct(n, typ, group, remark, server, port)
	n.Username = username
	n.Password = password
	n.TLSSecure = tls
}

func constructTrojan(n *node.Proxy, group, remark, server, port, password, network, host, path string) {
	commonConstruct(n, node.Trojan, group, remark, server, port)
	n.Password = password
	n.Host = host
	n.Path = path
	if network == "" {
		network = "tcp"
	}
	n.TransferProtocol = network
	n.TLSSecure = true
}

func constructVmess(n *node.Proxy, group, remark, server, port, id, aid, net, cipher, path, host, edge, tls, sni string) {
	commonConstruct(n, node.VMess, group, remark, server, port)
	if id == "" {
		id = node.AllZeroUUID
	}
	n.UserId = id
	n.AlterId = uint16(toInt(aid))
	n.EncryptMethod = cipher
	if net == "" {
		net = "tcp"
	}
	n.TransferProtocol = net
	n.Edge = edge
	n.ServerName = sni
	if net == "quic" {
		n.QUICSecure = host
		n.QUICSecret = path
	} else {
		n.Host = strings.TrimSpace(host)
		if path == "" {
			path = "/"
		}
		n.Path = strings.TrimSpace(path)
	}
	n.TLSSecure = tls == "tls" || tls == "true"
}

func constructSnell(n *node.Proxy, group, remark, server, port, psk, obfs, obfsHost string, version int) {
	commonConstruct(n, node.Snell, group, remark, server, port)
	n.Password = psk
	n.OBFS = obfs
	n.Host = obfsHost
	n.SnellVersion = uint16(version)
}

func constructWireGuard(n *node.Proxy, group, remark, server, port, selfIP, selfIPv6, privateKey, publicKey, presharedKey string, dns []string, mtu uint16, keepAlive, testURL string) {
	commonConstruct(n, node.WireGuard, group, remark, server, port)
	n.SelfIP = selfIP
	n.SelfIPv6 = selfIPv6
	n.PrivateKey = privateKey
	n.PublicKey = publicKey
	n.PreSharedKey = presharedKey
	n.DnsServers = dns
	n.Mtu = mtu
	n.KeepAlive = uint16(toInt(keepAlive))
	n.TestUrl = testURL
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

func itoa(v int) string { return strconv.Itoa(v) }

// rawNumString normalizes a JSON field that may arrive as either a string
// or a number (many of these dialects are loose about it) into a decimal
// string, or "" if absent/null.
func rawNumString(raw jsoniter.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := jsoniter.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := jsoniter.Unmarshal(raw, &f); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return ""
}
