// Package facade implements the request façade (C11): Subconvert(req) ->
// resp, the single entry point tying together every other package in the
// pipeline. Grounded on
// _examples/original_source/src/handler/interfaces.cpp's subconverter().
package facade

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nodeconv/subconverter/node"
)

// uaProfile is one row of the ordered User-Agent match table, ported
// field-for-field from interfaces.cpp's UAProfile/UAMatchList.
type uaProfile struct {
	head          string
	versionMatch  string
	versionTarget string
	target        string
	clashNewName  node.TriBool
	surgeVer      int // -1 means "not set"
}

// uaMatchList is matchUserAgent's table (interfaces.cpp lines 64-90): first
// matching row wins, so ordering is significant -- narrower prefixes and
// version-gated rows precede their catch-all fallback.
var uaMatchList = []uaProfile{
	{"ClashForAndroid", `/([0-9.]+)`, "2.0", "clash", node.TriFrom(true), -1},
	{"ClashForAndroid", `/([0-9.]+)R`, "", "clashr", node.TriFrom(false), -1},
	{"ClashForAndroid", "", "", "clash", node.TriFrom(false), -1},
	{"ClashforWindows", `/([0-9.]+)`, "0.11", "clash", node.TriFrom(true), -1},
	{"ClashforWindows", "", "", "clash", node.TriFrom(false), -1},
	{"ClashX Pro", "", "", "clash", node.TriFrom(true), -1},
	{"ClashX", `/([0-9.]+)`, "0.13", "clash", node.TriFrom(true), -1},
	{"Clash", "", "", "clash", node.TriFrom(true), -1},
	{"Kitsunebi", "", "", "v2ray", node.TriUndef, -1},
	{"Loon", "", "", "loon", node.TriUndef, -1},
	{"Pharos", "", "", "mixed", node.TriUndef, -1},
	{"Potatso", "", "", "mixed", node.TriUndef, -1},
	{"Quantumult%20X", "", "", "quanx", node.TriUndef, -1},
	{"Quantumult X", "", "", "quanx", node.TriUndef, -1},
	{"Quantumult", "", "", "quan", node.TriUndef, -1},
	{"Qv2ray", "", "", "v2ray", node.TriUndef, -1},
	{"Shadowrocket", "", "", "mixed", node.TriUndef, -1},
	{"Surfboard", "", "", "surfboard", node.TriUndef, -1},
	{"Surge", `/([0-9.]+).*x86`, "906", "surge", node.TriFrom(false), 4}, // Surge for Mac, supports VMess
	{"Surge", `/([0-9.]+).*x86`, "368", "surge", node.TriFrom(false), 3}, // Surge for Mac, new rule types + plugin-less SS
	{"Surge", `/([0-9.]+)`, "1419", "surge", node.TriFrom(false), 4},     // Surge iOS 4
	{"Surge", `/([0-9.]+)`, "900", "surge", node.TriFrom(false), 3},      // Surge iOS 3 approx
	{"Surge", "", "", "surge", node.TriFrom(false), 2},                  // any Surge as fallback
	{"Trojan-Qt5", "", "", "trojan", node.TriUndef, -1},
	{"V2rayU", "", "", "v2ray", node.TriUndef, -1},
	{"V2RayX", "", "", "v2ray", node.TriUndef, -1},
}

// verGreaterEqual compares dotted version strings component-wise, the same
// short-circuiting walk as interfaces.cpp's verGreaterEqual.
func verGreaterEqual(src, target string) bool {
	srcParts := strings.Split(src, ".")
	targetParts := strings.Split(target, ".")
	for i := 0; i < len(srcParts) || i < len(targetParts); i++ {
		var s, t int
		if i < len(srcParts) {
			s, _ = strconv.Atoi(srcParts[i])
		}
		if i < len(targetParts) {
			t, _ = strconv.Atoi(targetParts[i])
		}
		if s > t {
			return true
		}
		if s < t {
			return false
		}
	}
	return true
}

// matchUserAgent walks uaMatchList in order and returns the first profile
// whose head prefixes userAgent and whose version gate (if any) is
// satisfied. ok is false when nothing matched (including an empty
// User-Agent), mirroring matchUserAgent's no-op early return.
func matchUserAgent(userAgent string) (target string, clashNewName node.TriBool, surgeVer int, ok bool) {
	if userAgent == "" {
		return "", node.TriUndef, -1, false
	}
	for _, p := range uaMatchList {
		if !strings.HasPrefix(userAgent, p.head) {
			continue
		}
		if p.versionMatch != "" {
			re, err := regexp2.Compile(p.versionMatch, regexp2.None)
			if err != nil {
				continue
			}
			m, err := re.FindStringMatch(userAgent)
			if err != nil || m == nil {
				continue
			}
			groups := m.Groups()
			if len(groups) < 2 || len(groups[1].Captures) == 0 {
				continue
			}
			version := groups[1].Captures[0].String()
			if p.versionTarget != "" && !verGreaterEqual(version, p.versionTarget) {
				continue
			}
		}
		sv := -1
		if p.surgeVer != -1 {
			sv = p.surgeVer
		}
		return p.target, p.clashNewName, sv, true
	}
	return "", node.TriUndef, -1, false
}

// simpleSubscriptionTargets names targets that skip group/ruleset loading
// (spec §4.11 step 2); anything else valid is a "full" target.
var simpleSubscriptionTargets = map[string]bool{
	"ss": true, "ssr": true, "v2ray": true, "trojan": true,
	"mixed": true, "sssub": true, "ssd": true,
}

var fullTargets = map[string]bool{
	"clash": true, "clashr": true, "surge": true, "quan": true, "quanx": true,
	"loon": true, "surfboard": true, "mellow": true, "singbox": true,
}

func isSimpleSubscription(target string) bool { return simpleSubscriptionTargets[target] }

func isKnownTarget(target string) bool {
	return simpleSubscriptionTargets[target] || fullTargets[target]
}
