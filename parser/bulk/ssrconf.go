package bulk

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

type ssrConfEntry struct {
	Group         string              `json:"group"`
	Remarks       string              `json:"remarks"`
	Server        string              `json:"server"`
	ServerPort    jsoniter.RawMessage `json:"server_port"`
	Password      string              `json:"password"`
	Method        string              `json:"method"`
	Protocol      string              `json:"protocol"`
	ProtocolParam string              `json:"protocolparam"`
	OBFS          string              `json:"obfs"`
	OBFSParam     string              `json:"obfsparam"`
}

type ssrConfDoc struct {
	LocalAddress string         `json:"local_address"`
	LocalPort    jsoniter.RawMessage `json:"local_port"`
	Server       string         `json:"server"`
	ServerPort   jsoniter.RawMessage `json:"server_port"`
	Method       string         `json:"method"`
	OBFS         string         `json:"obfs"`
	Protocol     string         `json:"protocol"`
	ProtocolParm string         `json:"protocol_param"`
	OBFSParam    string         `json:"obfs_param"`
	Plugin       string         `json:"plugin"`
	PluginOpts   string         `json:"plugin_opts"`
	Configs      []ssrConfEntry `json:"configs"`
}

var ssCiphers = map[string]bool{
	"aes-128-gcm": true, "aes-192-gcm": true, "aes-256-gcm": true,
	"aes-128-cfb": true, "aes-192-cfb": true, "aes-256-cfb": true,
	"chacha20": true, "chacha20-ietf": true, "chacha20-ietf-poly1305": true,
	"rc4-md5": true, "none": true,
}

// explodeSSRConf covers both the legacy single-node shadowsocksr-libev
// config (local_address/local_port present, no "configs" array) and the
// multi-node "configs" array form, grounded on subparser.cpp's
// explodeSSRConf -- including its SS-downgrade test on the single-node
// path.
func explodeSSRConf(text string) []node.Proxy {
	var doc ssrConfDoc
	if err := jsoniter.UnmarshalFromString(text, &doc); err != nil {
		return nil
	}

	if doc.LocalAddress != "" && len(doc.LocalPort) > 0 {
		port := rawNumString(doc.ServerPort)
		if doc.Server == "" || port == "" || port == "0" {
			return nil
		}
		remark := doc.Server + ":" + port
		var p node.Proxy
		if ssCiphers[doc.Method] && (doc.OBFS == "" || doc.OBFS == "plain") && (doc.Protocol == "" || doc.Protocol == "origin") {
			constructSS(&p, node.DefaultGroupSS, remark, doc.Server, port, "", doc.Method, doc.Plugin, doc.PluginOpts)
		} else {
			constructSSR(&p, node.DefaultGroupSSR, remark, doc.Server, port, doc.Protocol, doc.Method, doc.OBFS, "", doc.OBFSParam, doc.ProtocolParm)
		}
		return []node.Proxy{p}
	}

	out := make([]node.Proxy, 0, len(doc.Configs))
	for _, c := range doc.Configs {
		port := rawNumString(c.ServerPort)
		if port == "" || port == "0" {
			continue
		}
		group := c.Group
		if group == "" {
			group = node.DefaultGroupSSR
		}
		var p node.Proxy
		constructSSR(&p, group, c.Remarks, c.Server, port, c.Protocol, c.Method, c.OBFS, c.Password, c.OBFSParam, c.ProtocolParam)
		out = append(out, p)
	}
	return out
}
