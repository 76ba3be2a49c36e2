// Package loon emits the Loon INI dialect (C9): `[Proxy]` and
// `[Proxy Group]` sections overlaid on the user's base profile. Grounded
// on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToLoon.
package loon

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

// Emit renders a Loon profile.
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

	seen := map[string]int{}
	var kept []node.Proxy
	for _, n := range nodes {
		remark := generator.DedupRemark(generator.TypePrefix(n, ext.AppendType), seen)

		scv := ext.AllowInsecure
		scv.Define(n.AllowInsecure)
		port := strconv.Itoa(int(n.Port))

		var proxy string
		switch n.Type {
		case node.Shadowsocks:
			proxy = "Shadowsocks," + n.Hostname + "," + port + "," + n.EncryptMethod + ",\"" + n.Password + "\""
			switch n.Plugin {
			case "":
			case "simple-obfs", "obfs-local":
				if n.PluginOption != "" {
					opts := strings.ReplaceAll(n.PluginOption, ";obfs-host=", ",")
					opts = strings.ReplaceAll(opts, "obfs=", "")
					proxy += "," + opts
				}
			default:
				continue
			}
		case node.VMess:
			method := n.EncryptMethod
			if method == "auto" {
				method = "chacha20-ietf-poly1305"
			}
			proxy = "vmess," + n.Hostname + "," + port + "," + method + ",\"" + n.UserId + "\",over-tls:" + boolStr(n.TLSSecure)
			if n.TLSSecure {
				proxy += ",tls-name:" + n.Host
			}
			switch n.TransferProtocol {
			case "", "tcp":
				proxy += ",transport:tcp"
			case "ws":
				proxy += ",transport:ws,path:" + n.Path + ",host:" + n.Host
			default:
				continue
			}
			if !scv.IsUndef() {
				proxy += ",skip-cert-verify:" + generator.MergeStr(scv, "1", "0", "0")
			}
		case node.ShadowsocksR:
			proxy = "ShadowsocksR," + n.Hostname + "," + port + "," + n.EncryptMethod + ",\"" + n.Password + "\"," + n.Protocol + ",{" + n.ProtocolParam + "}," + n.OBFS + ",{" + n.OBFSParam + "}"
		case node.HTTP, node.HTTPS:
			proxy = "http," + n.Hostname + "," + port + "," + n.Username + "," + n.Password
		case node.Trojan:
			proxy = "trojan," + n.Hostname + "," + port + "," + n.Password
			if n.Host != "" {
				proxy += ",tls-name:" + n.Host
			}
			if !scv.IsUndef() {
				proxy += ",skip-cert-verify:" + generator.MergeStr(scv, "1", "0", "0")
			}
		default:
			continue
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

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
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
			value := "ssid,default=" + firstOr(b.Members, "direct") + "," + strings.Join(b.Members[minInt(1, len(b.Members)):], ",")
			sec.NewKey(b.Config.Name, value)
			continue
		}
		var members []string
		for _, m := range b.Members {
			if m == "DIRECT" || m == "REJECT" || names[m] {
				members = append(members, m)
			}
		}
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

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func firstOr(ss []string, def string) string {
	if len(ss) == 0 {
		return def
	}
	return ss[0]
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
	lines, final := ruleset.Build(ruleset.TargetSurge3Plus, rulesets, gso.MaxAllowedRules, gso.ManagedConfigPrefix)
	if final != "" {
		lines = append(lines, final)
	}
	sec, _ := cfg.NewSection("Rule")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}
	for _, line := range lines {
		sec.NewBooleanKey(line)
	}
}
