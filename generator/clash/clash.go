// Package clash emits the Clash/ClashR dialect (C9): a YAML document
// carrying proxies/proxy-groups/rules overlaid on the user's base
// template. Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToClash, using gopkg.in/yaml.v3 the way parser/bulk's clash.go
// decodes the same dialect in reverse.
package clash

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nodeconv/subconverter/generator"
	"github.com/nodeconv/subconverter/group"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/settings"
)

// ssrCiphers/protocols/obfs are the ClashR compatibility whitelists
// subexport.cpp enforces when ext.FilterDeprecated is set; the cipher list
// is not applied when the target is ClashR proper (spec §4.9).
var (
	ssrCiphers = map[string]bool{
		"rc4-md5": true, "aes-128-ctr": true, "aes-192-ctr": true, "aes-256-ctr": true,
		"aes-128-cfb": true, "aes-192-cfb": true, "aes-256-cfb": true,
		"chacha20-ietf": true, "xchacha20": true, "none": true,
	}
	ssrProtocols = map[string]bool{
		"origin": true, "auth_sha1_v4": true, "auth_aes128_md5": true, "auth_aes128_sha1": true,
		"auth_chain_a": true, "auth_chain_b": true,
	}
	ssrObfs = map[string]bool{
		"plain": true, "http_simple": true, "http_post": true, "random_head": true,
		"tls1.2_ticket_auth": true, "tls1.2_ticket_fastauth": true,
	}
)

// strTag forces a scalar to emit with an explicit !!str tag, the way
// subexport.cpp calls singleproxy["password"].SetTag("str") on an
// all-digit password to stop it being read back as a number (spec §4.9).
type strTag string

func (s strTag) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(s)}, nil
}

func strOrTagged(s string) interface{} {
	if generator.AllDigits(s) {
		return strTag(s)
	}
	return s
}

// Emit builds the Clash/ClashR YAML document. clashR selects the legacy
// ClashR field names (protocolparam/obfsparam instead of
// protocol-param/obfs-param) and relaxes the SSR cipher whitelist (the
// protocol/obfs whitelists still apply).
func Emit(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra, clashR bool) string {
	doc := parseBase(baseConfig)

	proxies, kept := buildProxies(nodes, ext, clashR)
	proxyKey, groupKey := "proxies", "proxy-groups"
	if !ext.NewVariableName {
		proxyKey, groupKey = "Proxy", "Proxy Group"
	}
	doc[proxyKey] = proxies
	doc[groupKey] = buildGroups(groups, kept)
	doc["rules"] = buildRules(rulesets, ext)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(out)
}

func parseBase(baseConfig string) map[string]interface{} {
	doc := map[string]interface{}{}
	if strings.TrimSpace(baseConfig) == "" {
		return doc
	}
	_ = yaml.Unmarshal([]byte(baseConfig), &doc)
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return doc
}

// buildProxies renders every encodable node into a Clash proxy mapping,
// returning the mappings and the kept nodes (carrying their type-prefixed,
// deduplicated remarks) for group expansion.
func buildProxies(nodes []node.Proxy, ext *settings.Extra, clashR bool) ([]map[string]interface{}, []node.Proxy) {
	seen := map[string]int{}
	var proxies []map[string]interface{}
	var kept []node.Proxy

	for _, n := range nodes {
		remark := generator.TypePrefix(n, ext.AppendType)
		n.Remark = generator.DedupRemark(remark, seen)

		udp := ext.UDP
		udp.Define(n.UDP)
		scv := ext.AllowInsecure
		scv.Define(n.AllowInsecure)

		m := map[string]interface{}{
			"name":   n.Remark,
			"server": n.Hostname,
			"port":   int(n.Port),
		}

		switch n.Type {
		case node.Shadowsocks:
			if ext.FilterDeprecated && n.EncryptMethod == "chacha20" {
				continue
			}
			m["type"] = "ss"
			m["cipher"] = n.EncryptMethod
			m["password"] = strOrTagged(n.Password)
			if n.Plugin == "simple-obfs" || n.Plugin == "obfs-local" {
				opts := generator.SplitPluginOpts(n.PluginOption)
				m["plugin"] = "obfs"
				m["plugin-opts"] = map[string]interface{}{"mode": opts["obfs"], "host": opts["obfs-host"]}
			} else if n.Plugin == "v2ray-plugin" {
				opts := generator.SplitPluginOpts(n.PluginOption)
				pluginOpts := map[string]interface{}{"mode": opts["mode"], "host": opts["host"], "path": opts["path"],
					"tls": strings.Contains(n.PluginOption, "tls"), "mux": strings.Contains(n.PluginOption, "mux")}
				if !scv.IsUndef() {
					pluginOpts["skip-cert-verify"] = scv.Get(false)
				}
				m["plugin"] = "v2ray-plugin"
				m["plugin-opts"] = pluginOpts
			}

		case node.VMess:
			m["type"] = "vmess"
			m["uuid"] = n.UserId
			m["alterId"] = int(n.AlterId)
			m["cipher"] = n.EncryptMethod
			m["tls"] = n.TLSSecure
			if !scv.IsUndef() {
				m["skip-cert-verify"] = scv.Get(false)
			}
			switch n.TransferProtocol {
			case "", "tcp":
			case "ws":
				m["network"] = n.TransferProtocol
				m["ws-path"] = n.Path
				headers := map[string]interface{}{}
				if n.Host != "" {
					headers["Host"] = n.Host
				}
				if n.Edge != "" {
					headers["Edge"] = n.Edge
				}
				if len(headers) > 0 {
					m["ws-headers"] = headers
				}
			case "http":
				m["network"] = n.TransferProtocol
				m["http-opts"] = map[string]interface{}{"method": "GET", "path": []string{n.Path}}
			default:
				continue
			}

		case node.ShadowsocksR:
			if ext.FilterDeprecated {
				if !clashR && !ssrCiphers[n.EncryptMethod] {
					continue
				}
				if !ssrProtocols[n.Protocol] {
					continue
				}
				if !ssrObfs[n.OBFS] {
					continue
				}
			}
			m["type"] = "ssr"
			cipher := n.EncryptMethod
			if cipher == "none" {
				cipher = "dummy"
			}
			m["cipher"] = cipher
			m["password"] = strOrTagged(n.Password)
			m["protocol"] = n.Protocol
			m["obfs"] = n.OBFS
			if clashR {
				m["protocolparam"] = n.ProtocolParam
				m["obfsparam"] = n.OBFSParam
			} else {
				m["protocol-param"] = n.ProtocolParam
				m["obfs-param"] = n.OBFSParam
			}

		case node.SOCKS5:
			m["type"] = "socks5"
			if n.Username != "" {
				m["username"] = n.Username
			}
			if n.Password != "" {
				m["password"] = strOrTagged(n.Password)
			}
			if !scv.IsUndef() {
				m["skip-cert-verify"] = scv.Get(false)
			}

		case node.HTTP, node.HTTPS:
			m["type"] = "http"
			if n.Username != "" {
				m["username"] = n.Username
			}
			if n.Password != "" {
				m["password"] = strOrTagged(n.Password)
			}
			m["tls"] = n.Type == node.HTTPS
			if !scv.IsUndef() {
				m["skip-cert-verify"] = scv.Get(false)
			}

		case node.Trojan:
			m["type"] = "trojan"
			m["password"] = strOrTagged(n.Password)
			if n.Host != "" {
				m["sni"] = n.Host
			}
			if !scv.IsUndef() {
				m["skip-cert-verify"] = scv.Get(false)
			}

		case node.Snell:
			m["type"] = "snell"
			m["psk"] = n.Password
			if n.OBFS != "" {
				opts := map[string]interface{}{"mode": n.OBFS}
				if n.Host != "" {
					opts["host"] = n.Host
				}
				m["obfs-opts"] = opts
			}

		default:
			continue
		}

		if !udp.IsUndef() && udp.Get(false) {
			m["udp"] = true
		}
		proxies = append(proxies, m)
		kept = append(kept, n)
	}
	return proxies, kept
}

func buildGroups(groups []group.Built, kept []node.Proxy) []map[string]interface{} {
	names := make(map[string]bool, len(kept))
	for _, n := range kept {
		names[n.Remark] = true
	}

	var out []map[string]interface{}
	for _, b := range groups {
		switch b.Config.Type {
		case node.Select, node.Relay, node.URLTest, node.Fallback, node.LoadBalance:
		default:
			continue
		}
		m := map[string]interface{}{"name": b.Config.Name, "type": groupTypeName(b.Config.Type)}
		switch b.Config.Type {
		case node.URLTest, node.Fallback, node.LoadBalance:
			if b.Config.Url != "" {
				m["url"] = b.Config.Url
			}
			if b.Config.Interval > 0 {
				m["interval"] = b.Config.Interval
			}
			if b.Config.Tolerance > 0 {
				m["tolerance"] = b.Config.Tolerance
			}
		}
		members := filterExisting(b.Members, names)
		if len(b.Providers) > 0 {
			m["use"] = b.Providers
		} else if len(members) == 0 {
			members = []string{"DIRECT"}
		}
		if len(members) > 0 {
			m["proxies"] = members
		}
		out = append(out, m)
	}
	return out
}

// filterExisting drops member names that didn't survive into kept (e.g.
// a deprecated SSR node filtered above), same as subexport.cpp resolving
// groupGenerate against nodelist rather than the caller's raw nodes.
func filterExisting(members []string, names map[string]bool) []string {
	if len(names) == 0 {
		return members
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "DIRECT" || m == "REJECT" || names[m] {
			out = append(out, m)
		}
	}
	return out
}

func groupTypeName(t node.GroupType) string {
	switch t {
	case node.URLTest:
		return "url-test"
	case node.Fallback:
		return "fallback"
	case node.LoadBalance:
		return "load-balance"
	case node.Relay:
		return "relay"
	default:
		return "select"
	}
}

func buildRules(rulesets []node.RulesetContent, ext *settings.Extra) []string {
	gso := settings.GSO.Get()
	lines, final := ruleset.Build(ruleset.TargetClash, rulesets, gso.MaxAllowedRules, gso.ManagedConfigPrefix)
	if final != "" {
		lines = append(lines, final)
	}
	return lines
}
