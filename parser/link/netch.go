package link

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/nodeconv/subconverter/node"
)

func init() {
	register("netch://")
	register("Netch://")
}

// netchNode mirrors the Netch single-node JSON schema (base64-wrapped),
// grounded on subparser.cpp's explodeNetch.
type netchNode struct {
	Type     string `json:"Type"`
	Remark   string `json:"Remark"`
	Hostname string `json:"Hostname"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	EncryptMethod string `json:"EncryptMethod"`
	Plugin        string `json:"Plugin"`
	PluginOption  string `json:"PluginOption"`
	Protocol      string `json:"Protocol"`
	ProtocolParam string `json:"ProtocolParam"`
	OBFS          string `json:"OBFS"`
	OBFSParam     string `json:"OBFSParam"`
}

func explodeNetch(link string) node.Proxy {
	body := strings.TrimPrefix(strings.TrimPrefix(link, "netch://"), "Netch://")
	decoded, ok := urlSafeBase64Decode(body)
	if !ok {
		return node.Proxy{}
	}
	var n netchNode
	if err := jsoniter.UnmarshalFromString(decoded, &n); err != nil {
		return node.Proxy{}
	}
	if n.Hostname == "" || n.Port == 0 {
		return node.Proxy{}
	}

	var typ node.Type
	switch strings.ToLower(n.Type) {
	case "ss", "shadowsocks":
		typ = node.Shadowsocks
	case "ssr", "shadowsocksr":
		typ = node.ShadowsocksR
	case "vmess":
		typ = node.VMess
	case "socks5", "socks":
		typ = node.SOCKS5
	case "http":
		typ = node.HTTP
	case "https":
		typ = node.HTTPS
	case "trojan":
		typ = node.Trojan
	default:
		return node.Proxy{}
	}

	var out node.Proxy
	commonConstruct(&out, typ, "", n.Remark, n.Hostname, portString(n.Port), node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	out.Username = n.Username
	out.Password = n.Password
	out.EncryptMethod = n.EncryptMethod
	out.Plugin = n.Plugin
	out.PluginOption = n.PluginOption
	out.Protocol = n.Protocol
	out.ProtocolParam = n.ProtocolParam
	out.OBFS = n.OBFS
	out.OBFSParam = n.OBFSParam
	return out
}

func portString(p int) string {
	if p <= 0 {
		return "0"
	}
	return strconv.Itoa(p)
}
