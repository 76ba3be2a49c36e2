package link

import (
	"encoding/json"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/nodeconv/subconverter/node"
)

func init() { register("ssd://") }

// ssdServer is one entry of the "servers" array/object; any field left
// empty/zero falls back to the airport-level default carried alongside it.
type ssdServer struct {
	Server       string      `json:"server"`
	Port         json.Number `json:"port"`
	Encryption   string      `json:"encryption"`
	Password     string      `json:"password"`
	Plugin       string      `json:"plugin"`
	PluginOption string      `json:"plugin_options"`
	Remarks      string      `json:"remarks"`
}

type ssdDoc struct {
	Airport      string      `json:"airport"`
	Port         json.Number `json:"port"`
	Encryption   string      `json:"encryption"`
	Password     string      `json:"password"`
	Plugin       string      `json:"plugin"`
	PluginOption string      `json:"plugin_options"`
	Servers      jsoniter.RawMessage `json:"servers"`
}

// ExplodeSSDList decodes a "ssd://<base64 json>" blob into every contained
// node, inheriting airport-level defaults per spec §4.4's SSD bullet.
// Explode (C3) keeps only the first; the bulk parser (C4) calls this
// directly to keep them all.
func ExplodeSSDList(link string) []node.Proxy {
	body := strings.TrimPrefix(link, "ssd://")
	decoded, ok := urlSafeBase64Decode(body)
	if !ok {
		return nil
	}

	var doc ssdDoc
	if err := jsoniter.UnmarshalFromString(decoded, &doc); err != nil {
		return nil
	}

	var servers []ssdServer
	if err := jsoniter.Unmarshal(doc.Servers, &servers); err != nil {
		var byName map[string]ssdServer
		if err2 := jsoniter.Unmarshal(doc.Servers, &byName); err2 != nil {
			return nil
		}
		for _, s := range byName {
			servers = append(servers, s)
		}
	}

	out := make([]node.Proxy, 0, len(servers))
	for _, s := range servers {
		server := s.Server
		if server == "" {
			continue
		}
		port := numOr(s.Port, doc.Port)
		if port == "0" || port == "" {
			continue
		}
		method := s.Encryption
		if method == "" {
			method = doc.Encryption
		}
		password := s.Password
		if password == "" {
			password = doc.Password
		}
		plugin := s.Plugin
		if plugin == "" {
			plugin = doc.Plugin
		}
		pluginOpts := s.PluginOption
		if pluginOpts == "" {
			pluginOpts = doc.PluginOption
		}

		var p node.Proxy
		commonConstruct(&p, node.Shadowsocks, doc.Airport, s.Remarks, server, port, node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
		p.Password = password
		p.EncryptMethod = method
		p.Plugin = plugin
		p.PluginOption = pluginOpts
		out = append(out, p)
	}
	return out
}

func numOr(v, def json.Number) string {
	if v != "" {
		return normalizeNum(v)
	}
	return normalizeNum(def)
}

func normalizeNum(v json.Number) string {
	if v == "" {
		return ""
	}
	if f, err := v.Float64(); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return v.String()
}
