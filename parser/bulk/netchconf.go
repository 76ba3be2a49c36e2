package bulk

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

type netchConfDoc struct {
	Server []netchEntry `json:"Server"`
}

type netchEntry struct {
	Type          string `json:"Type"`
	Remark        string `json:"Remark"`
	Hostname      string `json:"Hostname"`
	Port          int    `json:"Port"`
	Username      string `json:"Username"`
	Password      string `json:"Password"`
	EncryptMethod string `json:"EncryptMethod"`
	Plugin        string `json:"Plugin"`
	PluginOption  string `json:"PluginOption"`
	Protocol      string `json:"Protocol"`
	ProtocolParam string `json:"ProtocolParam"`
	OBFS          string `json:"OBFS"`
	OBFSParam     string `json:"OBFSParam"`
}

// explodeNetchConf parses the Netch subscription export {"Server":[…]}, one
// per-node JSON object per array entry (the same shape parser/link's
// single-node "netch://" form carries base64-encoded). Grounded on
// subparser.cpp's explodeNetchConf, which re-serializes and delegates to
// explodeNetch per entry; done directly here instead of round-tripping
// through base64.
func explodeNetchConf(text string) []node.Proxy {
	var doc netchConfDoc
	if err := jsoniter.UnmarshalFromString(text, &doc); err != nil {
		return nil
	}

	out := make([]node.Proxy, 0, len(doc.Server))
	for _, e := range doc.Server {
		if e.Hostname == "" || e.Port == 0 {
			continue
		}
		var typ node.Type
		switch strings.ToLower(e.Type) {
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
			continue
		}

		var p node.Proxy
		commonConstruct(&p, typ, "", e.Remark, e.Hostname, itoa(e.Port))
		p.Username = e.Username
		p.Password = e.Password
		p.EncryptMethod = e.EncryptMethod
		p.Plugin = e.Plugin
		p.PluginOption = e.PluginOption
		p.Protocol = e.Protocol
		p.ProtocolParam = e.ProtocolParam
		p.OBFS = e.OBFS
		p.OBFSParam = e.OBFSParam
		out = append(out, p)
	}
	return out
}
