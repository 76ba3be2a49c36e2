// Package group implements the group builder (C8): expanding a
// ProxyGroupConfig template's member patterns against the preprocessed
// NodeList into a concrete per-group member list. Grounded on
// _examples/original_source/src/generator/config/nodemanip.cpp's group
// section of addNodes/preprocessNodes and subexport.cpp's group-rendering
// helpers.
package group

import (
	"context"
	"strings"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/preprocess"
	"github.com/nodeconv/subconverter/script"
)

// providerPrefix marks a member pattern that should populate a target's
// external-provider reference (Clash "use:") instead of an inline member.
const providerPrefix = "!!PROVIDER="

// Built is one expanded group: concrete proxy members plus any provider
// references pulled out of the member pattern list.
type Built struct {
	Config    node.ProxyGroupConfig
	Members   []string // remark names, input order, deduplicated
	Providers []string // external provider names from "!!PROVIDER=a,b,c"
}

// Build expands every ProxyGroupConfig against nodes (already filtered/
// renamed/sorted/deduped by preprocess.Run) and, where the member patterns
// resolve to no member and no provider, falls back to a single DIRECT
// member (spec.md §4.8
// "If the final member list is empty, insert DIRECT").
func Build(ctx context.Context, configs []node.ProxyGroupConfig, nodes []node.Proxy, vm script.VM, gate script.Gate) []Built {
	out := make([]Built, 0, len(configs))
	for _, cfg := range configs {
		b := Built{Config: cfg}
		seen := make(map[string]struct{})

		for _, pattern := range cfg.Proxies {
			switch {
			case strings.HasPrefix(pattern, providerPrefix):
				for _, p := range strings.Split(strings.TrimPrefix(pattern, providerPrefix), ",") {
					if p = strings.TrimSpace(p); p != "" {
						b.Providers = append(b.Providers, p)
					}
				}

			case strings.HasPrefix(pattern, "[]"):
				literal := pattern[2:]
				addMember(&b, seen, literal)

			case strings.HasPrefix(pattern, "script:"):
				for _, remark := range scriptFilter(ctx, pattern, nodes, vm, gate) {
					addMember(&b, seen, remark)
				}

			default:
				for i := range nodes {
					if preprocess.MatchesRemark(pattern, &nodes[i]) {
						addMember(&b, seen, nodes[i].Remark)
					}
				}
			}
		}

		if len(b.Members) == 0 && len(b.Providers) == 0 {
			b.Members = []string{"DIRECT"}
		}
		out = append(out, b)
	}
	return out
}

func addMember(b *Built, seen map[string]struct{}, remark string) {
	if _, ok := seen[remark]; ok {
		return
	}
	seen[remark] = struct{}{}
	b.Members = append(b.Members, remark)
}

// scriptFilter runs the named script's filter entry point once per node and
// returns the remarks of the nodes for which it yields true. The script is
// not given the whole NodeList in one call, and no newline-separated
// result is parsed.
func scriptFilter(ctx context.Context, pattern string, nodes []node.Proxy, vm script.VM, gate script.Gate) []string {
	path := strings.TrimPrefix(pattern, "script:")
	var remarks []string
	for i := range nodes {
		v, err := script.Run(ctx, vm, gate, path, script.EntryFilter, &nodes[i], nil)
		if err == nil && !v.IsNil && v.Bool {
			remarks = append(remarks, nodes[i].Remark)
		}
	}
	return remarks
}

// OnlyDirectOrReject reports whether a group's final member list collapsed
// to nothing but DIRECT/REJECT, the condition under which Surge emits the
// group as a `[Proxy]` alias rather than a `[Proxy Group]` entry (spec.md
// §4.8).
func OnlyDirectOrReject(b Built) bool {
	if len(b.Providers) > 0 {
		return false
	}
	for _, m := range b.Members {
		if m != "DIRECT" && m != "REJECT" {
			return false
		}
	}
	return len(b.Members) > 0
}
