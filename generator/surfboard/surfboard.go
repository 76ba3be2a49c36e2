// Package surfboard emits the Surfboard INI dialect (C9): the same
// `[Proxy]`/`[Proxy Group]`/`[Rule]` shape as generator/surge, but gated
// to Surfboard's narrower feature set (no VMess, no Trojan, no external
// ssr-local exec) and its own ruleset target/rule-head surface (spec
// §4.9: IP-CIDR6, PROCESS-NAME, IN-PORT, DEST-PORT, SRC-IP; Remote Rule
// in place of Surge's RULE-SET). Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToSurge, which the original emits from for both dialects.
package surfboard

import (
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/nodeconv/subconverter/generator"
	"github.com/nodeconv/subconverter/group"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/settings"
)

// Emit renders a Surfboard profile.
func Emit(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra) string {
	cfg := ini.Empty(ini.LoadOptions{AllowShadows: true})
	if strings.TrimSpace(baseConfig) != "" {
		if parsed, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, AllowShadows: true}, []byte(baseConfig)); err == nil {
			cfg = parsed
		}
	}

	proxySec, _ := cfg.NewSection("Proxy")
	for _, k := range proxySec.KeyStrings() {
		proxySec.DeleteKey(k)
	}
	proxySec.NewKey("DIRECT", "direct")

	seen := map[string]int{}
	var kept []node.Proxy

	for _, n := range nodes {
		remark := generator.DedupRemark(generator.TypePrefix(n, ext.AppendType), seen)

		udp := ext.UDP
		udp.Define(n.UDP)
		tfo := ext.TCPFastOpen
		tfo.Define(n.TCPFastOpen)
		scv := ext.AllowInsecure
		scv.Define(n.AllowInsecure)

		var proxy string
		port := strconv.Itoa(int(n.Port))

		switch n.Type {
		case node.Shadowsocks:
			proxy = "ss, " + n.Hostname + ", " + port + ", encrypt-method=" + n.EncryptMethod + ", password=" + n.Password
			switch n.Plugin {
			case "":
			case "simple-obfs", "obfs-local":
				if n.PluginOption != "" {
					proxy += "," + strings.ReplaceAll(n.PluginOption, ";", ",")
				}
			default:
				continue
			}

		case node.ShadowsocksR:
			// Surfboard has no external-exec escape hatch for SSR; it
			// only understands the native module, which cannot carry
			// arbitrary protocol/obfs params, so unsupported
			// combinations are dropped rather than emitted broken.
			if n.Protocol != "origin" || n.OBFS != "plain" {
				continue
			}
			proxy = "ss, " + n.Hostname + ", " + port + ", encrypt-method=" + n.EncryptMethod + ", password=" + n.Password

		case node.SOCKS5:
			proxy = "socks5, " + n.Hostname + ", " + port
			if n.Username != "" {
				proxy += ", username=" + n.Username
			}
			if n.Password != "" {
				proxy += ", password=" + n.Password
			}
			if !scv.IsUndef() {
				proxy += ", skip-cert-verify=" + generator.MergeStr(scv, "1", "0", "0")
			}

		case node.HTTP, node.HTTPS:
			proxy = "http, " + n.Hostname + ", " + port
			if n.Username != "" {
				proxy += ", username=" + n.Username
			}
			if n.Password != "" {
				proxy += ", password=" + n.Password
			}
			proxy += ", tls=" + generator.MergeStr(node.TriFrom(n.Type == node.HTTPS), "true", "false", "false")
			if !scv.IsUndef() {
				proxy += ", skip-cert-verify=" + generator.MergeStr(scv, "1", "0", "0")
			}

		case node.Snell:
			proxy = "snell, " + n.Hostname + ", " + port + ", psk=" + n.Password
			if n.OBFS != "" {
				proxy += ", obfs=" + n.OBFS + ", obfs-host=" + n.Host
			}

		default:
			continue
		}

		if !tfo.IsUndef() {
			proxy += ", tfo=" + generator.MergeStr(tfo, "true", "false", "false")
		}
		if !udp.IsUndef() {
			proxy += ", udp-relay=" + generator.MergeStr(udp, "true", "false", "false")
		}

		proxySec.NewKey(remark, proxy)
		n.Remark = remark
		kept = append(kept, n)
	}

	buildGroups(cfg, groups, kept)
	buildRules(cfg, rulesets, ext)

	out, err := cfg.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

func buildGroups(cfg *ini.File, groups []group.Built, kept []node.Proxy) {
	names := make(map[string]bool, len(kept))
	for _, n := range kept {
		names[n.Remark] = true
	}

	sec, _ := cfg.NewSection("Proxy Group")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}

	for _, b := range groups {
		if b.Config.Type == node.SSID {
			sec.NewKey(b.Config.Name, "ssid,default="+firstOr(b.Members, "direct")+","+strings.Join(b.Members, ","))
			continue
		}

		members := filterExisting(b.Members, names)
		if len(members) == 0 {
			members = []string{"DIRECT"}
		}

		value := groupTypeName(b.Config.Type) + "," + strings.Join(members, ",")
		if (b.Config.Type == node.URLTest || b.Config.Type == node.Fallback) && b.Config.Url != "" {
			value += ",url=" + b.Config.Url + ",interval=" + strconv.Itoa(b.Config.Interval)
		}
		sec.NewKey(b.Config.Name, value)
	}
}

func firstOr(ss []string, def string) string {
	if len(ss) == 0 {
		return def
	}
	return ss[0]
}

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
	default:
		return "select"
	}
}

func buildRules(cfg *ini.File, rulesets []node.RulesetContent, ext *settings.Extra) {
	gso := settings.GSO.Get()
	lines, final := ruleset.Build(ruleset.TargetSurfboard, rulesets, gso.MaxAllowedRules, gso.ManagedConfigPrefix)
	if final != "" {
		lines = append(lines, final)
	} else {
		lines = append(lines, "FINAL,DIRECT")
	}

	sec, _ := cfg.NewSection("Rule")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}
	for _, line := range lines {
		sec.NewBooleanKey(line)
	}
}
