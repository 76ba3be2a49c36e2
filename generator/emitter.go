// Package generator holds the shared helpers every per-target emitter
// (C9) builds on: remark dedup/prefixing and the tri-state merge those
// emitters all repeat. Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// processRemark/groupGenerate, shared across every proxyTo* function
// there the same way these helpers are shared across generator/*.
package generator

import (
	"strconv"
	"strings"

	"github.com/nodeconv/subconverter/group"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/settings"
)

// Emitter is the total (ext §4.9) conversion function shape shared by the
// loon, mellow, quanx and surfboard Emit functions: (NodeList, baseConfig,
// rulesets, groups, extra) -> text. clash, surge and singbox add one
// trailing parameter, and mixed and ssd take their own argument lists. It
// never errors -- a target that cannot encode anything simply emits an
// empty or base-only document.
type Emitter func(nodes []node.Proxy, baseConfig string, rulesets []node.RulesetContent, groups []group.Built, ext *settings.Extra) string

// TypePrefix returns "[<TYPE>] " + remark when appendType is set, the
// prefix subexport.cpp's every proxyTo* function applies before dedup
// (spec §4.9 "Apply [<TYPE>] remark prefix when append_proxy_type is
// set").
func TypePrefix(n node.Proxy, appendType bool) string {
	if !appendType {
		return n.Remark
	}
	return "[" + n.Type.String() + "] " + n.Remark
}

// DedupRemark appends " 2", " 3", ... to remark the first time it repeats
// within seen, mutating seen in place. Grounded on processRemark's
// remarks_list/counter loop (subexport.cpp:167).
func DedupRemark(remark string, seen map[string]int) string {
	seen[remark]++
	if n := seen[remark]; n > 1 {
		return remark + " " + strconv.Itoa(n)
	}
	return remark
}

// AllDigits reports whether s is non-empty and every rune is an ASCII
// digit -- the condition under which Clash's YAML emitter must tag a
// password with `!!str` to stop the value being coerced to a number
// (spec §4.9).
func AllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MergeStr renders a definite tri-bool as the target's preferred string
// pair, falling back to def when undefined.
func MergeStr(t node.TriBool, trueStr, falseStr, def string) string {
	switch {
	case t.IsUndef():
		return def
	case t.Get(false):
		return trueStr
	default:
		return falseStr
	}
}

// SplitPluginOpts turns a ";"-joined plugin-options string into a
// key->value map, the shape simple-obfs/v2ray-plugin options arrive in
// from every parser (spec §3.1 Proxy.PluginOption).
func SplitPluginOpts(opts string) map[string]string {
	out := make(map[string]string)
	for _, kv := range strings.Split(opts, ";") {
		if kv == "" {
			continue
		}
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			out[kv[:idx]] = kv[idx+1:]
		} else {
			out[kv] = "1"
		}
	}
	return out
}
