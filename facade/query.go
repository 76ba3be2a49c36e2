package facade

import (
	"strconv"
	"strings"

	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/node"
)

// triFromQuery resolves a tri-state query parameter: absent stays TriUndef,
// anything present is parsed by node.TriBool.Set.
func triFromQuery(q map[string][]string, key string) node.TriBool {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return node.TriUndef
	}
	var t node.TriBool
	t.Set(vals[0])
	return t
}

func queryGet(q map[string][]string, key string) string {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func queryBase64(q map[string][]string, key string) string {
	raw := queryGet(q, key)
	if raw == "" {
		return ""
	}
	decoded, ok := cmn.DecodeBase64Any(raw)
	if !ok {
		return raw
	}
	return string(decoded)
}

// parseGroupType maps a group-record type token onto node.GroupType, the
// same vocabulary as config/proxygroup.h's ProxyGroupType::TypeStr.
func parseGroupType(s string) node.GroupType {
	switch strings.ToLower(s) {
	case "url-test", "urltest":
		return node.URLTest
	case "fallback":
		return node.Fallback
	case "load-balance", "loadbalance":
		return node.LoadBalance
	case "relay":
		return node.Relay
	case "ssid":
		return node.SSID
	default:
		return node.Select
	}
}

// parseGroupsParam decodes the `groups=` query parameter: records
// separated by "@", fields within a record separated by "`" as
// name`type`proxy1`proxy2`...[`url`interval] (the trailing url/interval
// pair only applies to url-test/fallback groups), following
// config/proxygroup.h's field layout.
func parseGroupsParam(raw string) []node.ProxyGroupConfig {
	if raw == "" {
		return nil
	}
	var out []node.ProxyGroupConfig
	for _, rec := range strings.Split(raw, "@") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.Split(rec, "`")
		if len(fields) < 2 {
			continue
		}
		cfg := node.ProxyGroupConfig{Name: fields[0], Type: parseGroupType(fields[1])}
		rest := fields[2:]
		if (cfg.Type == node.URLTest || cfg.Type == node.Fallback) && len(rest) >= 2 {
			if n, err := strconv.Atoi(rest[len(rest)-1]); err == nil {
				cfg.Interval = n
				cfg.Url = rest[len(rest)-2]
				rest = rest[:len(rest)-2]
			}
		}
		cfg.Proxies = rest
		out = append(out, cfg)
	}
	return out
}

// parseRulesetParam decodes the `ruleset=` query parameter: records
// separated by "@", each "group,url[,interval]", following
// config/ruleset.h's field layout. A url beginning with the inline-rule
// sentinel (node.InlineRulePrefix) resolves without a fetch.
func parseRulesetParam(raw string) []node.RulesetConfig {
	if raw == "" {
		return nil
	}
	var out []node.RulesetConfig
	for _, rec := range strings.Split(raw, "@") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, ",", 3)
		if len(fields) < 2 {
			continue
		}
		cfg := node.RulesetConfig{Group: fields[0], Url: fields[1], Interval: 86400}
		if len(fields) == 3 {
			if n, err := strconv.Atoi(fields[2]); err == nil {
				cfg.Interval = n
			}
		}
		out = append(out, cfg)
	}
	return out
}

// parseRenameParam decodes the `rename=` query parameter: records
// separated by "`", fields within a record separated by "@" as
// match@replace[@script], following RegexMatchConfig's Match/Replace/
// Script fields.
func parseRenameParam(raw string) []node.RegexMatchConfig {
	return parseRegexMatchList(raw, "`", "@")
}

// parseEmojiParam decodes the `emoji=` (and external-config emoji list)
// records the same way, but fields within a record separated by ",".
func parseEmojiParam(raw string) []node.RegexMatchConfig {
	return parseRegexMatchList(raw, "`", ",")
}

func parseRegexMatchList(raw, outerSep, innerSep string) []node.RegexMatchConfig {
	if raw == "" {
		return nil
	}
	var out []node.RegexMatchConfig
	for _, rec := range strings.Split(raw, outerSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, innerSep, 3)
		cfg := node.RegexMatchConfig{Match: fields[0]}
		if len(fields) > 1 {
			cfg.Replace = fields[1]
		}
		if len(fields) > 2 {
			cfg.Script = fields[2]
		}
		out = append(out, cfg)
	}
	return out
}
