// Package mellow emits the Mellow INI dialect (C9): `[Endpoint]` and
// `[EndpointGroup]` sections. Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToMellow.
package mellow

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

// Emit renders a Mellow profile.
func Emit(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra) string {
	cfg := ini.Empty(ini.LoadOptions{AllowShadows: true})
	if strings.TrimSpace(baseConfig) != "" {
		if parsed, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, AllowShadows: true}, []byte(baseConfig)); err == nil {
			cfg = parsed
		}
	}

	sec, _ := cfg.NewSection("Endpoint")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}

	seen := map[string]int{}
	var kept, remarks []node.Proxy
	_ = remarks
	var remarkList []string
	for _, n := range nodes {
		remark := generator.DedupRemark(generator.TypePrefix(n, ext.AppendType), seen)
		port := strconv.Itoa(int(n.Port))

		tfo := ext.TCPFastOpen
		tfo.Define(n.TCPFastOpen)
		scv := ext.AllowInsecure
		scv.Define(n.AllowInsecure)

		var proxy string
		switch n.Type {
		case node.Shadowsocks:
			if n.Plugin != "" {
				continue
			}
			proxy = remark + ", ss, ss://" + urlSafeB64(n.EncryptMethod+":"+n.Password) + "@" + n.Hostname + ":" + port
		case node.VMess:
			proxy = remark + ", vmess1, vmess1://" + n.UserId + "@" + n.Hostname + ":" + port
			if n.Path != "" {
				proxy += n.Path
			}
			proxy += "?network=" + n.TransferProtocol
			switch n.TransferProtocol {
			case "ws":
				proxy += "&ws.host=" + n.Host
			case "http":
				if n.Host != "" {
					proxy += "&http.host=" + n.Host
				}
			}
			proxy += "&tls=" + boolStr(n.TLSSecure)
			if n.TLSSecure && n.Host != "" {
				proxy += "&tls.servername=" + n.Host
			}
			if !scv.IsUndef() {
				proxy += "&tls.allowinsecure=" + generator.MergeStr(scv, "true", "false", "false")
			}
			if !tfo.IsUndef() {
				proxy += "&sockopt.tcpfastopen=" + generator.MergeStr(tfo, "true", "false", "false")
			}
		case node.SOCKS5:
			proxy = remark + ", builtin, socks, address=" + n.Hostname + ", port=" + port + ", user=" + n.Username + ", pass=" + n.Password
		case node.HTTP, node.HTTPS:
			proxy = remark + ", builtin, http, address=" + n.Hostname + ", port=" + port + ", user=" + n.Username + ", pass=" + n.Password
		default:
			continue
		}

		sec.NewBooleanKey(proxy)
		n.Remark = remark
		kept = append(kept, n)
		remarkList = append(remarkList, remark)
	}

	buildGroups(cfg, groups, kept, remarkList)
	buildRules(cfg, rulesets)

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

func urlSafeB64(s string) string {
	return encodeB64(s)
}

func buildGroups(cfg *ini.File, groups []group.Built, kept []node.Proxy, remarkList []string) {
	names := make(map[string]bool, len(kept))
	for _, n := range kept {
		names[n.Remark] = true
	}
	sec, _ := cfg.NewSection("EndpointGroup")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}
	for _, b := range groups {
		switch b.Config.Type {
		case node.Select, node.URLTest, node.Fallback, node.LoadBalance:
		default:
			continue
		}
		var members []string
		for _, m := range b.Members {
			if m == "DIRECT" || m == "REJECT" || names[m] {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			if len(remarkList) == 0 {
				members = []string{"DIRECT"}
			} else {
				members = remarkList
			}
		}
		value := b.Config.Name + ", " + strings.Join(members, ":") + ", latency, interval=300, timeout=6"
		sec.NewBooleanKey(value)
	}
}

func buildRules(cfg *ini.File, rulesets []node.RulesetContent) {
	gso := settings.GSO.Get()
	lines, final := ruleset.Build(ruleset.TargetSurge3Plus, rulesets, gso.MaxAllowedRules, "")
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

func encodeB64(s string) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	var out strings.Builder
	for i := 0; i < len(s); i += 3 {
		var chunk [3]byte
		n := copy(chunk[:], s[i:min(i+3, len(s))])
		out.WriteByte(alphabet[chunk[0]>>2])
		out.WriteByte(alphabet[(chunk[0]&0x03)<<4|chunk[1]>>4])
		if n > 1 {
			out.WriteByte(alphabet[(chunk[1]&0x0F)<<2|chunk[2]>>6])
		}
		if n > 2 {
			out.WriteByte(alphabet[chunk[2]&0x3F])
		}
	}
	return out.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
