package ruleset

import (
	"context"
	"strings"
	"testing"

	"github.com/nodeconv/subconverter/fetch"
	"github.com/nodeconv/subconverter/node"
)

func TestConvertRulesetSurgePassthrough(t *testing.T) {
	got := ConvertRuleset("DOMAIN,example.com", node.SurgeRuleset)
	if got != "DOMAIN,example.com" {
		t.Fatalf("unexpected passthrough: %q", got)
	}
}

func TestConvertRulesetClashPayload(t *testing.T) {
	content := "payload:\n  - '.example.com'\n  - '1.1.1.1/32'\n  - '*.foo.com'\n"
	got := ConvertRuleset(content, node.ClashDomain)
	if !strings.Contains(got, "DOMAIN-SUFFIX,example.com") {
		t.Fatalf("expected domain suffix line, got %q", got)
	}
	if !strings.Contains(got, "IP-CIDR,1.1.1.1/32") {
		t.Fatalf("expected IP-CIDR line, got %q", got)
	}
	if !strings.Contains(got, "DOMAIN-WILDCARD,*.foo.com") {
		t.Fatalf("expected wildcard line, got %q", got)
	}
}

func TestConvertRulesetQuantumultXHeadRewrite(t *testing.T) {
	got := ConvertRuleset("host,example.com,no-resolve", node.QuantumultXRuleset)
	if !strings.Contains(got, "DOMAIN,example.com,no-resolve") {
		t.Fatalf("unexpected rewrite: %q", got)
	}
}

func TestConvertRulesetQuantumultXDropsMiddleField(t *testing.T) {
	got := ConvertRuleset("host,example.com,reject", node.QuantumultXRuleset)
	if !strings.Contains(got, "DOMAIN,example.com") {
		t.Fatalf("expected middle field dropped, got %q", got)
	}
	if strings.Contains(got, "reject") {
		t.Fatalf("expected middle field dropped, got %q", got)
	}
}

func TestWildcardDomainToRegex(t *testing.T) {
	got := WildcardDomainToRegex("*.foo.com")
	if got != `^.*\.foo\.com$` {
		t.Fatalf("unexpected regex: %q", got)
	}
}

func TestAcceptsWhitelist(t *testing.T) {
	if !Accepts(TargetClash, "DOMAIN-REGEX,^foo$") {
		t.Fatalf("expected Clash to accept DOMAIN-REGEX")
	}
	if Accepts(TargetQuantumultX, "DOMAIN-REGEX,^foo$") {
		t.Fatalf("expected QuantumultX to reject DOMAIN-REGEX")
	}
	if !Accepts(TargetSurge3Plus, "DOMAIN-WILDCARD,*.foo.com") {
		t.Fatalf("expected Surge3+ to accept DOMAIN-WILDCARD")
	}
	if !Accepts(TargetQuantumultX, "IP6-CIDR,::1/128") {
		t.Fatalf("expected QuantumultX to accept IP6-CIDR")
	}
}

func TestRewriteHeadIPCIDR6ToIP6CIDRForQuantumultX(t *testing.T) {
	got := RewriteHead(TargetQuantumultX, "IP-CIDR6,::1/128")
	if got != "IP6-CIDR,::1/128" {
		t.Fatalf("unexpected rewrite: %q", got)
	}
	if !Accepts(TargetQuantumultX, got) {
		t.Fatalf("expected rewritten IP6-CIDR line to be accepted")
	}
}

func TestRewriteHeadDomainWildcardToRegexForClash(t *testing.T) {
	got := RewriteHead(TargetClash, "DOMAIN-WILDCARD,*.foo.com")
	if got != `DOMAIN-REGEX,^.*\.foo\.com$` {
		t.Fatalf("unexpected rewrite: %q", got)
	}
}

func TestRewriteHeadMatchFinal(t *testing.T) {
	if got := RewriteHead(TargetSurge3Plus, "MATCH"); got != "FINAL" {
		t.Fatalf("expected FINAL, got %q", got)
	}
	if got := RewriteHead(TargetClash, "FINAL"); got != "MATCH" {
		t.Fatalf("expected MATCH, got %q", got)
	}
}

func TestRewriteHeadMatchFinalSingBoxSentinel(t *testing.T) {
	if got := RewriteHead(TargetSingBox, "FINAL"); got != "route.final" {
		t.Fatalf("expected route.final sentinel, got %q", got)
	}
	if got := RewriteHead(TargetSingBox, "MATCH"); got != "route.final" {
		t.Fatalf("expected route.final sentinel, got %q", got)
	}
}

func TestEngineLoadInline(t *testing.T) {
	e := &Engine{}
	configs := []node.RulesetConfig{
		{Group: "proxy", Url: node.InlineRulePrefix + "DOMAIN-SUFFIX,example.com", Type: node.SurgeRuleset},
	}
	out := e.Load(context.Background(), configs)
	if len(out) != 1 || out[0].Err != nil {
		t.Fatalf("unexpected result: %+v", out)
	}
	if len(out[0].Rules) != 1 || out[0].Rules[0] != "DOMAIN-SUFFIX,example.com" {
		t.Fatalf("unexpected rules: %v", out[0].Rules)
	}
}

func TestEngineLoadTwoInlineEntries(t *testing.T) {
	e := &Engine{Fetcher: fetch.New(nil), FetchOpts: fetch.Options{}, AsyncFetchRuleset: false}
	configs := []node.RulesetConfig{
		{Group: "a", Url: node.InlineRulePrefix + "DOMAIN,a.com"},
		{Group: "b", Url: node.InlineRulePrefix + "DOMAIN,b.com"},
	}
	out := e.Load(context.Background(), configs)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestBuildCapsAtMaxAllowedRules(t *testing.T) {
	contents := []node.RulesetContent{
		{Group: "proxy", Type: node.SurgeRuleset, Rules: []string{"DOMAIN,a.com", "DOMAIN,b.com", "DOMAIN,c.com"}},
	}
	lines, _ := Build(TargetClash, contents, 2, "")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines under cap, got %d: %v", len(lines), lines)
	}
}

func TestBuildDeferredFinalLine(t *testing.T) {
	contents := []node.RulesetContent{
		{Group: "proxy", Type: node.SurgeRuleset, Rules: []string{"MATCH", "DOMAIN,a.com"}},
	}
	lines, final := Build(TargetClash, contents, 0, "")
	if final != "MATCH,proxy" {
		t.Fatalf("unexpected final line: %q", final)
	}
	if len(lines) != 1 || lines[0] != "DOMAIN,a.com,proxy" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestBuildSingBoxFinalIsBareGroupForFinalHead(t *testing.T) {
	contents := []node.RulesetContent{
		{Group: "proxy", Type: node.SurgeRuleset, Rules: []string{"FINAL", "DOMAIN,a.com"}},
	}
	lines, final := Build(TargetSingBox, contents, 0, "")
	if final != "proxy" {
		t.Fatalf("expected bare group name as final, got %q", final)
	}
	if len(lines) != 1 || lines[0] != "DOMAIN,a.com,proxy" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestBuildSingBoxFinalIsBareGroupForMatchHead(t *testing.T) {
	contents := []node.RulesetContent{
		{Group: "direct", Type: node.SurgeRuleset, Rules: []string{"MATCH"}},
	}
	_, final := Build(TargetSingBox, contents, 0, "")
	if final != "direct" {
		t.Fatalf("expected bare group name as final, got %q", final)
	}
}

func TestBuildQuantumultXIPv6CIDRSurvives(t *testing.T) {
	contents := []node.RulesetContent{
		{Group: "proxy", Type: node.SurgeRuleset, Rules: []string{"IP-CIDR6,::1/128"}},
	}
	lines, _ := Build(TargetQuantumultX, contents, 0, "")
	if len(lines) != 1 || lines[0] != "IP6-CIDR,::1/128,proxy" {
		t.Fatalf("expected IPv6 CIDR rule to survive QuantumultX conversion, got %v", lines)
	}
}
