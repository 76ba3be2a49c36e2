package bulk

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

// v2rayNDoc holds both shapes V2RayN/V2RayNG export: the single-config
// "outbounds" form (decoded into a typed struct by explodeOutboundsSingle)
// and the multi-node "vmess"+"subItem" form. The multi-node entries are
// decoded loosely (map[string]interface{}) because fields only exist on
// some dialect variants, mirroring subparser.cpp's tolerant member-lookup
// style (GetMember returns "" for a missing field rather than failing).
type v2rayNDoc struct {
	Outbounds []json.RawMessage        `json:"outbounds"`
	SubItem   []map[string]interface{} `json:"subItem"`
	Vmess     []map[string]interface{} `json:"vmess"`
}

// explodeVmessConf covers both V2RayN dialects: a single "outbounds"
// config, and the "vmess"+"subItem" multi-node export. Grounded on
// subparser.cpp's explodeVmessConf.
func explodeVmessConf(text string) []node.Proxy {
	var doc v2rayNDoc
	if err := jsoniter.UnmarshalFromString(text, &doc); err != nil {
		return nil
	}

	if len(doc.Outbounds) > 0 {
		if p, ok := explodeOutboundsSingle(doc.Outbounds[0]); ok {
			return []node.Proxy{p}
		}
		return nil
	}

	subRemark := map[string]string{}
	for _, s := range doc.SubItem {
		id, _ := s["id"].(string)
		remarks, _ := s["remarks"].(string)
		if id != "" {
			subRemark[id] = remarks
		}
	}

	out := make([]node.Proxy, 0, len(doc.Vmess))
	for _, m := range doc.Vmess {
		add := jstr(m, "address")
		port := jstr(m, "port")
		id := jstr(m, "id")
		if add == "" || port == "0" || port == "" || id == "" {
			continue
		}
		remark := jstr(m, "remarks")
		if subid := jstr(m, "subid"); subid != "" {
			if r, ok := subRemark[subid]; ok && r != "" {
				remark = r
			}
		}
		if remark == "" {
			remark = add + ":" + port
		}

		var p node.Proxy
		switch jint(m, "configType") {
		case 1:
			constructVmess(&p, node.DefaultGroupVMess, remark, add, port,
				id, jstr(m, "alterId"), jstr(m, "network"), jstr(m, "security"),
				jstr(m, "path"), jstr(m, "requestHost"), "", jstr(m, "streamSecurity"), jstr(m, "sni"))
			p.FakeType = jstr(m, "headerType")
		case 3:
			constructSS(&p, node.DefaultGroupSS, remark, add, port, id, jstr(m, "security"), "", "")
		case 4:
			constructSocks(&p, node.DefaultGroupSocks, remark, add, port, "", "")
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}

func explodeOutboundsSingle(raw json.RawMessage) (node.Proxy, bool) {
	var ob struct {
		Settings struct {
			Vnext []struct {
				Address string `json:"address"`
				Port    jsoniter.RawMessage `json:"port"`
				Users   []struct {
					Id       string `json:"id"`
					AlterId  jsoniter.RawMessage `json:"alterId"`
					Security string `json:"security"`
				} `json:"users"`
			} `json:"vnext"`
		} `json:"settings"`
		StreamSettings struct {
			Network  string `json:"network"`
			Security string `json:"security"`
			WsSettings struct {
				Path    string            `json:"path"`
				Headers map[string]string `json:"headers"`
			} `json:"wsSettings"`
			TcpSettings struct {
				Header struct {
					Type    string `json:"type"`
					Request struct {
						Path    []string          `json:"path"`
						Headers map[string]string `json:"headers"`
					} `json:"request"`
				} `json:"header"`
			} `json:"tcpSettings"`
		} `json:"streamSettings"`
	}
	if err := jsoniter.Unmarshal(raw, &ob); err != nil || len(ob.Settings.Vnext) == 0 {
		return node.Proxy{}, false
	}
	vnext := ob.Settings.Vnext[0]
	port := rawNumString(vnext.Port)
	if vnext.Address == "" || port == "0" || port == "" {
		return node.Proxy{}, false
	}
	id, aid, cipher := "", "0", ""
	if len(vnext.Users) > 0 {
		id = vnext.Users[0].Id
		aid = rawNumString(vnext.Users[0].AlterId)
		cipher = vnext.Users[0].Security
	}

	net := ob.StreamSettings.Network
	path, host, edge, typ := "", "", "", ""
	if net == "ws" {
		path = ob.StreamSettings.WsSettings.Path
		host = ob.StreamSettings.WsSettings.Headers["Host"]
		edge = ob.StreamSettings.WsSettings.Headers["Edge"]
	}
	if ob.StreamSettings.TcpSettings.Header.Type == "http" {
		typ = "http"
		if len(ob.StreamSettings.TcpSettings.Header.Request.Path) > 0 {
			path = ob.StreamSettings.TcpSettings.Header.Request.Path[0]
		}
		host = ob.StreamSettings.TcpSettings.Header.Request.Headers["Host"]
		edge = ob.StreamSettings.TcpSettings.Header.Request.Headers["Edge"]
	}

	var p node.Proxy
	constructVmess(&p, node.DefaultGroupVMess, vnext.Address+":"+port, vnext.Address, port,
		id, aid, net, cipher, path, host, edge, ob.StreamSettings.Security, "")
	p.FakeType = typ
	return p, true
}

func jstr(m map[string]interface{}, key string) string {
	switch t := m[key].(type) {
	case string:
		return t
	case float64:
		return itoaFloat(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}

func jint(m map[string]interface{}, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}

func itoaFloat(f float64) string { return itoa(int(f)) }
