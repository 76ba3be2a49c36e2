// Package quanx emits the QuantumultX dialect (C9): `[server_local]`
// proxy lines, `[policy]` groups, and (when `quanx_dev_id` is set)
// remote-script references rewritten through the managed-config prefix.
// Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToQuanX.
package quanx

import (
	"encoding/base64"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/nodeconv/subconverter/generator"
	"github.com/nodeconv/subconverter/group"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/settings"
)

// Emit renders a QuantumultX profile.
func Emit(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra) string {
	cfg := ini.Empty(ini.LoadOptions{AllowShadows: true})
	if strings.TrimSpace(baseConfig) != "" {
		if parsed, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, AllowShadows: true}, []byte(baseConfig)); err == nil {
			cfg = parsed
		}
	}

	sec, _ := cfg.NewSection("server_local")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}

	seen := map[string]int{}
	var kept []node.Proxy
	for _, n := range nodes {
		remark := generator.TypePrefix(n, ext.AppendType)
		remark = generator.DedupRemark(remark, seen)

		line, ok := buildLine(n, ext)
		if !ok {
			continue
		}
		line += ", tag=" + remark
		sec.NewBooleanKey(line)
		n.Remark = remark
		kept = append(kept, n)
	}

	buildPolicies(cfg, groups, kept)
	buildRules(cfg, rulesets, ext)
	rewriteScripts(cfg, ext)

	out, err := cfg.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

func buildLine(n node.Proxy, ext *settings.Extra) (string, bool) {
	port := strconv.Itoa(int(n.Port))
	tfo := ext.TCPFastOpen
	tfo.Define(n.TCPFastOpen)
	udp := ext.UDP
	udp.Define(n.UDP)
	scv := ext.AllowInsecure
	scv.Define(n.AllowInsecure)
	tls13 := ext.TLS13
	tls13.Define(n.TLS13)

	var line string
	switch n.Type {
	case node.VMess:
		method := n.EncryptMethod
		if method == "auto" {
			method = "chacha20-ietf-poly1305"
		}
		line = "vmess = " + n.Hostname + ":" + port + ", method=" + method + ", password=" + n.UserId
		if n.TLSSecure && !tls13.IsUndef() {
			line += ", tls13=" + generator.MergeStr(tls13, "true", "false", "false")
		}
		if n.TransferProtocol == "ws" {
			if n.TLSSecure {
				line += ", obfs=wss"
			} else {
				line += ", obfs=ws"
			}
			line += ", obfs-host=" + n.Host + ", obfs-uri=" + n.Path
		} else if n.TLSSecure {
			line += ", obfs=over-tls, obfs-host=" + n.Host
		}

	case node.Shadowsocks:
		line = "shadowsocks = " + n.Hostname + ":" + port + ", method=" + n.EncryptMethod + ", password=" + n.Password
		switch n.Plugin {
		case "":
		case "simple-obfs", "obfs-local":
			if n.PluginOption != "" {
				line += ", " + strings.ReplaceAll(n.PluginOption, ";", ", ")
			}
		case "v2ray-plugin":
			opts := generator.SplitPluginOpts(strings.ReplaceAll(n.PluginOption, ";", "&"))
			mode := ""
			if opts["mode"] == "websocket" {
				mode = "ws"
			}
			tls := strings.Contains(n.PluginOption, "tls")
			if tls && mode == "ws" {
				mode += "s"
			}
			line += ", obfs=" + mode
			if opts["host"] != "" {
				line += ", obfs-host=" + opts["host"]
			}
			if opts["path"] != "" {
				line += ", obfs-uri=" + opts["path"]
			}
		default:
			return "", false
		}

	case node.ShadowsocksR:
		line = "shadowsocks = " + n.Hostname + ":" + port + ", method=" + n.EncryptMethod + ", password=" + n.Password + ", ssr-protocol=" + n.Protocol
		if n.ProtocolParam != "" {
			line += ", ssr-protocol-param=" + n.ProtocolParam
		}
		line += ", obfs=" + n.OBFS
		if n.OBFSParam != "" {
			line += ", obfs-host=" + n.OBFSParam
		}

	case node.HTTP, node.HTTPS:
		username, password := "none", "none"
		if n.Username != "" {
			username = n.Username
		}
		if n.Password != "" {
			password = n.Password
		}
		line = "http = " + n.Hostname + ":" + port + ", username=" + username + ", password=" + password
		if n.Type == node.HTTPS {
			line += ", over-tls=true"
			if !tls13.IsUndef() {
				line += ", tls13=" + generator.MergeStr(tls13, "true", "false", "false")
			}
		}

	case node.Trojan:
		line = "trojan = " + n.Hostname + ":" + port + ", password=" + n.Password
		if n.TLSSecure || n.Host != "" {
			line += ", over-tls=true, tls-host=" + n.Host
			if !tls13.IsUndef() {
				line += ", tls13=" + generator.MergeStr(tls13, "true", "false", "false")
			}
		}

	default:
		return "", false
	}

	if !tfo.IsUndef() {
		line += ", fast-open=" + generator.MergeStr(tfo, "true", "false", "false")
	}
	if !udp.IsUndef() {
		line += ", udp-relay=" + generator.MergeStr(udp, "true", "false", "false")
	}
	if !scv.IsUndef() && (n.Type == node.HTTP || n.Type == node.HTTPS || n.Type == node.Trojan) {
		line += ", tls-verification=" + generator.MergeStr(scv.Reverse(), "true", "false", "false")
	}
	return line, true
}

func buildPolicies(cfg *ini.File, groups []group.Built, kept []node.Proxy) {
	names := make(map[string]bool, len(kept))
	for _, n := range kept {
		names[n.Remark] = true
	}

	sec, _ := cfg.NewSection("policy")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}

	for _, b := range groups {
		var typ string
		members := filterExisting(b.Members, names)

		switch b.Config.Type {
		case node.Select:
			typ = "static"
		case node.URLTest, node.Fallback:
			typ = "available"
		case node.LoadBalance:
			typ = "round-robin"
		case node.SSID:
			typ = "ssid"
			members = replaceEquals(b.Members)
		default:
			continue
		}

		if b.Config.Type != node.SSID {
			if len(members) == 0 {
				members = []string{"direct"}
			}
			if len(members) < 2 {
				typ = "static"
			}
		}

		line := typ + "=" + b.Config.Name + ", " + strings.Join(members, ", ")
		sec.NewBooleanKey(line)
	}
}

func replaceEquals(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ReplaceAll(s, "=", ":")
	}
	return out
}

func filterExisting(members []string, names map[string]bool) []string {
	if len(names) == 0 {
		return members
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "direct" || m == "reject" || names[m] {
			out = append(out, m)
		}
	}
	return out
}

func buildRules(cfg *ini.File, rulesets []node.RulesetContent, ext *settings.Extra) {
	gso := settings.GSO.Get()
	lines, final := ruleset.Build(ruleset.TargetQuantumultX, rulesets, gso.MaxAllowedRules, gso.ManagedConfigPrefix)
	if final != "" {
		lines = append(lines, final)
	}
	sec, _ := cfg.NewSection("filter_remote")
	for _, k := range sec.KeyStrings() {
		sec.DeleteKey(k)
	}
	for _, line := range lines {
		sec.NewBooleanKey(line)
	}
}

// rewriteScripts proxies rewrite_local/rewrite_remote script URLs through
// the service's /qx-script and /qx-rewrite endpoints when quanx_dev_id is
// set, the way subexport.cpp's proxyToQuanX tail does (spec §4.9 "may be
// rewritten through the service when quanx_dev_id is set").
func rewriteScripts(cfg *ini.File, ext *settings.Extra) {
	if ext.QuanXDevID == "" {
		return
	}
	gso := settings.GSO.Get()
	rewriteSection(cfg, "rewrite_local", ext.QuanXDevID, gso.ManagedConfigPrefix, "qx-script", true)
	rewriteSection(cfg, "rewrite_remote", ext.QuanXDevID, gso.ManagedConfigPrefix, "qx-rewrite", false)
}

func rewriteSection(cfg *ini.File, name, devID, prefix, endpoint string, scriptStyle bool) {
	sec, err := cfg.GetSection(name)
	if err != nil {
		return
	}
	for _, key := range sec.Keys() {
		content := key.Value()
		if scriptStyle {
			idx := strings.LastIndex(content, " ")
			if idx < 0 {
				continue
			}
			head, url := content[:idx+1], content[idx+1:]
			if !isLink(url) {
				continue
			}
			encoded := base64.StdEncoding.EncodeToString([]byte(url))
			key.SetValue(head + prefix + "/" + endpoint + "?id=" + devID + "&url=" + encoded)
			continue
		}
		if !isLink(content) {
			continue
		}
		url, tail := content, ""
		if idx := strings.IndexByte(content, ','); idx >= 0 {
			url, tail = content[:idx], content[idx:]
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(url))
		key.SetValue(prefix + "/" + endpoint + "?id=" + devID + "&url=" + encoded + tail)
	}
}

func isLink(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
