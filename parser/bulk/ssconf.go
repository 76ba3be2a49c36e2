package bulk

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

type ssConfServer struct {
	Remarks    string      `json:"remarks"`
	Server     string      `json:"server"`
	ServerPort jsoniter.RawMessage `json:"server_port"`
	Password   string      `json:"password"`
	Method     string      `json:"method"`
	Plugin     string      `json:"plugin"`
	PluginOpts string      `json:"plugin_opts"`
}

type ssConfDoc struct {
	Version int            `json:"version"`
	Remarks string         `json:"remarks"`
	Servers []ssConfServer `json:"servers"`
	Configs []ssConfServer `json:"configs"`
}

// explodeSSConf parses the native shadowsocks-libev JSON config form
// ({"version":…, "servers"|"configs": [...]}), grounded on subparser.cpp's
// explodeSSConf.
func explodeSSConf(text string) []node.Proxy {
	var doc ssConfDoc
	if err := jsoniter.UnmarshalFromString(text, &doc); err != nil {
		return nil
	}
	group := doc.Remarks
	if group == "" {
		group = node.DefaultGroupSS
	}
	servers := doc.Servers
	if len(servers) == 0 {
		servers = doc.Configs
	}

	out := make([]node.Proxy, 0, len(servers))
	for _, s := range servers {
		port := rawNumString(s.ServerPort)
		if port == "" || port == "0" || s.Server == "" {
			continue
		}
		var p node.Proxy
		constructSS(&p, group, s.Remarks, s.Server, port, s.Password, s.Method, s.Plugin, s.PluginOpts)
		out = append(out, p)
	}
	return out
}
