package bulk

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

type ssAndroidEntry struct {
	Remarks    string              `json:"remarks"`
	Server     string              `json:"server"`
	ServerPort jsoniter.RawMessage `json:"server_port"`
	Password   string              `json:"password"`
	Method     string              `json:"method"`
	Plugin     string              `json:"plugin"`
	PluginOpts string              `json:"plugin_opts"`
}

// explodeSSAndroid parses the bare top-level JSON array the Shadowsocks
// for Android exporter produces, grounded on subparser.cpp's
// explodeSSAndroid (which wraps the blob as {"nodes": <blob>} before
// reusing the ordinary object decode path; doing the array decode directly
// here is equivalent and avoids the string-concat wrapping trick).
func explodeSSAndroid(text string) []node.Proxy {
	var entries []ssAndroidEntry
	if err := jsoniter.UnmarshalFromString(text, &entries); err != nil {
		return nil
	}
	out := make([]node.Proxy, 0, len(entries))
	for _, e := range entries {
		if e.Server == "" {
			continue
		}
		port := rawNumString(e.ServerPort)
		if port == "" || port == "0" {
			continue
		}
		var p node.Proxy
		constructSS(&p, node.DefaultGroupSS, e.Remarks, e.Server, port, e.Password, e.Method, e.Plugin, e.PluginOpts)
		out = append(out, p)
	}
	return out
}
