// Package surge emits the Surge 2/3/4 INI dialect (C9): `[Proxy]`,
// `[Proxy Group]`, `[Rule]` sections overlaid on the user's base profile.
// Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToSurge, using gopkg.in/ini.v1 the way parser/bulk/surge.go reads
// the same dialect in reverse.
package surge

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

// Emit renders a Surge profile gated at surgeVer (2, 3, or 4): VMess
// needs >=4, Trojan needs >=4, SS emits the "native" module at >=3 else a
// "custom" module reference, and SSR needs an external ssr-local binary
// (settings.SurgeSSRPath) and synthesizes a local port per node starting
// at 1080 (spec §4.9).
func Emit(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra, surgeVer int) string {
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

	localPort := 1080
	seen := map[string]int{}
	var kept []node.Proxy

	for _, n := range nodes {
		remark := generator.TypePrefix(n, ext.AppendType)
		remark = generator.DedupRemark(remark, seen)

		udp := ext.UDP
		udp.Define(n.UDP)
		tfo := ext.TCPFastOpen
		tfo.Define(n.TCPFastOpen)
		scv := ext.AllowInsecure
		scv.Define(n.AllowInsecure)
		tls13 := ext.TLS13
		tls13.Define(n.TLS13)

		var proxy string
		port := strconv.Itoa(int(n.Port))

		switch n.Type {
		case node.Shadowsocks:
			if surgeVer >= 3 {
				proxy = "ss, " + n.Hostname + ", " + port + ", encrypt-method=" + n.EncryptMethod + ", password=" + n.Password
			} else {
				proxy = "custom, " + n.Hostname + ", " + port + ", " + n.EncryptMethod + ", " + n.Password + ", https://github.com/ConnersHua/SSEncrypt/raw/master/SSEncrypt.module"
			}
			switch n.Plugin {
			case "":
			case "simple-obfs", "obfs-local":
				if n.PluginOption != "" {
					proxy += "," + strings.ReplaceAll(n.PluginOption, ";", ",")
				}
			default:
				continue
			}

		case node.VMess:
			if surgeVer < 4 {
				continue
			}
			proxy = "vmess, " + n.Hostname + ", " + port + ", username=" + n.UserId + ", tls=" + generator.MergeStr(node.TriFrom(n.TLSSecure), "true", "false", "false")
			if n.TLSSecure && !tls13.IsUndef() {
				proxy += ", tls13=" + generator.MergeStr(tls13, "true", "false", "false")
			}
			switch n.TransferProtocol {
			case "", "tcp":
			case "ws":
				proxy += ", ws=true, ws-path=" + n.Path + ", sni=" + n.Host + ", ws-headers=Host:" + n.Host
				if n.Edge != "" {
					proxy += "|Edge:" + n.Edge
				}
			default:
				continue
			}
			if !scv.IsUndef() {
				proxy += ", skip-cert-verify=" + generator.MergeStr(scv, "1", "0", "0")
			}

		case node.ShadowsocksR:
			ssrPath := settings.GSO.Get().SurgeSSRPath
			if ssrPath == "" || surgeVer < 2 {
				continue
			}
			args := []string{"-l", strconv.Itoa(localPort), "-s", n.Hostname, "-p", port, "-m", n.EncryptMethod, "-k", n.Password, "-o", n.OBFS, "-O", n.Protocol}
			if n.OBFSParam != "" {
				args = append(args, "-g", n.OBFSParam)
			}
			if n.ProtocolParam != "" {
				args = append(args, "-G", n.ProtocolParam)
			}
			proxy = "external, exec=\"" + ssrPath + "\", args=\"" + strings.Join(args, "\", args=\"") + "\", local-port=" + strconv.Itoa(localPort)
			proxy += ", addresses=" + n.Hostname
			localPort++

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

		case node.Trojan:
			if surgeVer < 4 {
				continue
			}
			proxy = "trojan, " + n.Hostname + ", " + port + ", password=" + n.Password
			if n.Host != "" {
				proxy += ", sni=" + n.Host
			}
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

	buildGroups(cfg, groups, kept, surgeVer)
	buildRules(cfg, rulesets, ext)

	out, err := cfg.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

func buildGroups(cfg *ini.File, groups []group.Built, kept []node.Proxy, surgeVer int) {
	names := make(map[string]bool, len(kept))
	for _, n := range kept {
		names[n.Remark] = true
	}

	sec, _ := cfg.NewSection("Proxy Group")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}

	for _, b := range groups {
		if b.Config.Type == node.LoadBalance && surgeVer < 1 {
			continue
		}
		if b.Config.Type == node.SSID {
			members := strings.Join(b.Members, ",")
			sec.NewKey(b.Config.Name, "ssid,default="+firstOr(b.Members, "direct")+","+members)
			continue
		}

		members := filterExisting(b.Members, names)
		if len(members) == 0 {
			members = []string{"DIRECT"}
		}
		if len(members) == 1 {
			switch strings.ToLower(members[0]) {
			case "direct", "reject", "reject-tinygif":
				proxySec, _ := cfg.GetSection("Proxy")
				if proxySec != nil {
					proxySec.NewKey(b.Config.Name, strings.ToLower(members[0]))
				}
				continue
			}
		}

		value := groupTypeName(b.Config.Type) + "," + strings.Join(members, ",")
		switch b.Config.Type {
		case node.URLTest, node.Fallback:
			if b.Config.Url != "" {
				value += ",url=" + b.Config.Url + ",interval=" + strconv.Itoa(b.Config.Interval)
				if b.Config.Tolerance > 0 {
					value += ",tolerance=" + strconv.Itoa(b.Config.Tolerance)
				}
			}
		case node.LoadBalance:
			if b.Config.Url != "" {
				value += ",url=" + b.Config.Url
			}
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
	case node.LoadBalance:
		return "load-balance"
	default:
		return "select"
	}
}

func buildRules(cfg *ini.File, rulesets []node.RulesetContent, ext *settings.Extra) {
	gso := settings.GSO.Get()
	target := ruleset.TargetSurge3Plus
	lines, final := ruleset.Build(target, rulesets, gso.MaxAllowedRules, gso.ManagedConfigPrefix)
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
