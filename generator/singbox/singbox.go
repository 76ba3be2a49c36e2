// Package singbox emits the SingBox JSON dialect (C9): an `outbounds`
// array plus `route.rules`, with a `dns-out` routing rule and (optionally)
// two clash-mode selector rules inserted ahead of the ruleset-derived
// rules. No original_source emitter covers SingBox -- it postdates the
// distilled reference implementation -- so this is grounded on spec.md
// §4.9's description directly, following the field-naming conventions
// parser/bulk/clash.go and generator/clash already established for this
// module's JSON/YAML dialects.
package singbox

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/generator"
	"github.com/nodeconv/subconverter/group"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/settings"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Emit builds the SingBox configuration document. addClashModes controls
// whether the two clash-mode selector rules (Direct/Global) are inserted
// ahead of the ruleset rules.
func Emit(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra, addClashModes bool) string {
	doc := map[string]interface{}{}
	if baseConfig != "" {
		_ = json.Unmarshal([]byte(baseConfig), &doc)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	outbounds, kept := buildOutbounds(nodes, ext)
	finalTag := ""
	for _, b := range groups {
		outbounds = append(outbounds, buildSelector(b, kept))
	}
	if len(groups) > 0 {
		finalTag = groups[len(groups)-1].Config.Name
	}
	outbounds = append(outbounds, map[string]interface{}{"type": "direct", "tag": "direct"})
	outbounds = append(outbounds, map[string]interface{}{"type": "block", "tag": "block"})
	outbounds = append(outbounds, map[string]interface{}{"type": "dns", "tag": "dns-out"})

	doc["outbounds"] = outbounds
	doc["route"] = buildRoute(rulesets, ext, addClashModes, finalTag)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

func buildOutbounds(nodes []node.Proxy, ext *settings.Extra) ([]interface{}, []node.Proxy) {
	seen := map[string]int{}
	var out []interface{}
	var kept []node.Proxy

	for _, n := range nodes {
		remark := generator.DedupRemark(generator.TypePrefix(n, ext.AppendType), seen)
		n.Remark = remark

		scv := ext.AllowInsecure
		scv.Define(n.AllowInsecure)

		m := map[string]interface{}{"tag": remark, "server": n.Hostname, "server_port": int(n.Port)}
		switch n.Type {
		case node.Shadowsocks:
			m["type"] = "shadowsocks"
			m["method"] = n.EncryptMethod
			m["password"] = n.Password
		case node.ShadowsocksR:
			m["type"] = "shadowsocksr"
			m["method"] = n.EncryptMethod
			m["password"] = n.Password
			m["obfs"] = n.OBFS
			m["protocol"] = n.Protocol
		case node.VMess:
			m["type"] = "vmess"
			m["uuid"] = n.UserId
			m["alter_id"] = int(n.AlterId)
			m["security"] = n.EncryptMethod
			m["tls"] = tlsObject(n, scv)
			if n.TransferProtocol != "" && n.TransferProtocol != "tcp" {
				m["transport"] = transportObject(n)
			}
		case node.Trojan:
			m["type"] = "trojan"
			m["password"] = n.Password
			m["tls"] = tlsObject(n, scv)
		case node.SOCKS5:
			m["type"] = "socks"
			m["version"] = "5"
			if n.Username != "" {
				m["username"] = n.Username
			}
			if n.Password != "" {
				m["password"] = n.Password
			}
		case node.HTTP, node.HTTPS:
			m["type"] = "http"
			if n.Username != "" {
				m["username"] = n.Username
			}
			if n.Password != "" {
				m["password"] = n.Password
			}
			if n.Type == node.HTTPS {
				m["tls"] = tlsObject(n, scv)
			}
		case node.WireGuard:
			m["type"] = "wireguard"
			m["private_key"] = n.PrivateKey
			m["peer_public_key"] = n.PublicKey
			m["local_address"] = []string{n.SelfIP}
		default:
			continue
		}
		out = append(out, m)
		kept = append(kept, n)
	}
	return out, kept
}

func tlsObject(n node.Proxy, scv node.TriBool) map[string]interface{} {
	t := map[string]interface{}{"enabled": n.TLSSecure}
	if n.Host != "" {
		t["server_name"] = n.Host
	}
	if !scv.IsUndef() {
		t["insecure"] = scv.Get(false)
	}
	return t
}

func transportObject(n node.Proxy) map[string]interface{} {
	t := map[string]interface{}{"type": n.TransferProtocol}
	switch n.TransferProtocol {
	case "ws":
		t["path"] = n.Path
		if n.Host != "" {
			t["headers"] = map[string]interface{}{"Host": n.Host}
		}
	case "grpc":
		t["service_name"] = n.Path
	}
	return t
}

func buildSelector(b group.Built, kept []node.Proxy) map[string]interface{} {
	names := make(map[string]bool, len(kept))
	for _, n := range kept {
		names[n.Remark] = true
	}
	members := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		if m == "DIRECT" || m == "REJECT" || names[m] {
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		members = []string{"direct"}
	}
	typ := "selector"
	if b.Config.Type == node.URLTest {
		typ = "urltest"
	}
	sel := map[string]interface{}{"type": typ, "tag": b.Config.Name, "outbounds": members}
	if typ == "urltest" && b.Config.Url != "" {
		sel["url"] = b.Config.Url
		sel["interval"] = b.Config.Interval
	}
	return sel
}

// buildRoute renders route.rules from the ruleset engine's output
// (RewriteHead's "route.final" sentinel maps a MATCH/FINAL rule into
// route.final instead of a rule entry) plus the fixed dns-out rule and,
// when requested, the two clash-mode selector rules (spec §4.9).
func buildRoute(rulesets []node.RulesetContent, ext *settings.Extra, addClashModes bool, finalTag string) map[string]interface{} {
	gso := settings.GSO.Get()
	lines, final := ruleset.Build(ruleset.TargetSingBox, rulesets, gso.MaxAllowedRules, gso.ManagedConfigPrefix)

	rules := []interface{}{map[string]interface{}{"protocol": "dns", "outbound": "dns-out"}}
	if addClashModes {
		rules = append(rules,
			map[string]interface{}{"clash_mode": "Direct", "outbound": "direct"},
			map[string]interface{}{"clash_mode": "Global", "outbound": finalTag})
	}
	for _, line := range lines {
		if r := ruleEntry(line); r != nil {
			rules = append(rules, r)
		}
	}

	route := map[string]interface{}{"rules": rules}
	if final != "" {
		route["final"] = final
	} else if finalTag != "" {
		route["final"] = finalTag
	}
	return route
}

func ruleEntry(line string) map[string]interface{} {
	fields := splitFields(line)
	if len(fields) < 2 {
		return nil
	}
	head, value, group := fields[0], fields[1], ""
	if len(fields) > 2 {
		group = fields[2]
	}
	if group == "" {
		return nil
	}
	entry := map[string]interface{}{"outbound": group}
	switch head {
	case "DOMAIN":
		entry["domain"] = []string{value}
	case "DOMAIN-SUFFIX":
		entry["domain_suffix"] = []string{value}
	case "DOMAIN-KEYWORD":
		entry["domain_keyword"] = []string{value}
	case "DOMAIN-REGEX":
		entry["domain_regex"] = []string{value}
	case "IP-CIDR":
		entry["ip_cidr"] = []string{value}
	case "IP-CIDR6":
		entry["ip_cidr"] = []string{value}
	case "GEOIP":
		entry["geoip"] = []string{value}
	case "PROCESS-NAME":
		entry["process_name"] = []string{value}
	default:
		return nil
	}
	return entry
}

func splitFields(line string) []string {
	var out []string
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == ',' {
			out = append(out, line[start:i])
			start = i + 1
		}
	}
	out = append(out, line[start:])
	return out
}
