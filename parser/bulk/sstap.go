package bulk

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

type sstapEntry struct {
	Group         string              `json:"group"`
	Remarks       string              `json:"remarks"`
	Server        string              `json:"server"`
	ServerPort    jsoniter.RawMessage `json:"server_port"`
	Password      string              `json:"password"`
	Username      string              `json:"username"`
	Type          jsoniter.RawMessage `json:"type"`
	Method        string              `json:"method"`
	Protocol      string              `json:"protocol"`
	ProtocolParam string              `json:"protocolparam"`
	OBFS          string              `json:"obfs"`
	OBFSParam     string              `json:"obfsparam"`
}

type sstapDoc struct {
	Configs []sstapEntry `json:"configs"`
}

// explodeSSTap parses the SSTap {"configs":[{"type":5|6, …}]} export,
// grounded on subparser.cpp's explodeSSTap: type 5 is SOCKS5, type 6 is
// SS/SSR with the same cipher-based downgrade test used elsewhere.
func explodeSSTap(text string) []node.Proxy {
	var doc sstapDoc
	if err := jsoniter.UnmarshalFromString(text, &doc); err != nil {
		return nil
	}
	out := make([]node.Proxy, 0, len(doc.Configs))
	for _, c := range doc.Configs {
		port := rawNumString(c.ServerPort)
		if port == "0" || port == "" {
			continue
		}
		remark := c.Remarks
		if remark == "" {
			remark = c.Server + ":" + port
		}
		configType := rawNumString(c.Type)

		var p node.Proxy
		switch configType {
		case "5":
			constructSocks(&p, c.Group, remark, c.Server, port, c.Username, c.Password)
		case "6":
			if ssCiphers[c.Method] && c.Protocol == "origin" && c.OBFS == "plain" {
				constructSS(&p, c.Group, remark, c.Server, port, c.Password, c.Method, "", "")
			} else {
				constructSSR(&p, c.Group, remark, c.Server, port, c.Protocol, c.Method, c.OBFS, c.Password, c.OBFSParam, c.ProtocolParam)
			}
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}
