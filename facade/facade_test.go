package facade

import (
	"context"
	"net/url"
	"testing"

	"github.com/nodeconv/subconverter/fetch"
	"github.com/nodeconv/subconverter/node"
)

func TestMatchUserAgentClashForAndroid(t *testing.T) {
	target, newName, _, ok := matchUserAgent("ClashForAndroid/2.5.12")
	if !ok || target != "clash" || newName.IsUndef() || !newName.Get(false) {
		t.Fatalf("unexpected match: target=%s newName=%v ok=%v", target, newName, ok)
	}
}

func TestMatchUserAgentSurgeVersionGate(t *testing.T) {
	target, _, sv, ok := matchUserAgent("Surge/1430 CFNetwork/978.0.7")
	if !ok || target != "surge" || sv != 4 {
		t.Fatalf("unexpected match: target=%s sv=%d ok=%v", target, sv, ok)
	}
}

func TestMatchUserAgentNoMatch(t *testing.T) {
	if _, _, _, ok := matchUserAgent("curl/8.0"); ok {
		t.Fatalf("expected no match for an unrelated client")
	}
	if _, _, _, ok := matchUserAgent(""); ok {
		t.Fatalf("expected no match for empty User-Agent")
	}
}

func TestIsSimpleSubscription(t *testing.T) {
	if !isSimpleSubscription("ss") || !isSimpleSubscription("mixed") {
		t.Fatalf("expected ss/mixed to be simple targets")
	}
	if isSimpleSubscription("clash") || isSimpleSubscription("surge") {
		t.Fatalf("expected clash/surge to be full targets")
	}
	if !isKnownTarget("quanx") || isKnownTarget("bogus") {
		t.Fatalf("isKnownTarget gave unexpected result")
	}
}

func TestParseGroupsParam(t *testing.T) {
	cfgs := parseGroupsParam("Proxy`select`HK`US@Auto`url-test`HK`US`http://example.com/test`300")
	if len(cfgs) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(cfgs))
	}
	if cfgs[0].Name != "Proxy" || cfgs[0].Type != node.Select || len(cfgs[0].Proxies) != 2 {
		t.Fatalf("unexpected first group: %+v", cfgs[0])
	}
	if cfgs[1].Name != "Auto" || cfgs[1].Type != node.URLTest || cfgs[1].Interval != 300 {
		t.Fatalf("unexpected second group: %+v", cfgs[1])
	}
}

func TestParseRulesetParam(t *testing.T) {
	cfgs := parseRulesetParam("Proxy,https://example.com/rules.list,3600@Direct,https://example.com/direct.list")
	if len(cfgs) != 2 {
		t.Fatalf("expected 2 rulesets, got %d", len(cfgs))
	}
	if cfgs[0].Interval != 3600 || cfgs[1].Interval != 86400 {
		t.Fatalf("unexpected intervals: %+v %+v", cfgs[0], cfgs[1])
	}
}

func TestParseRenameAndEmojiParams(t *testing.T) {
	renames := parseRenameParam("HK@Hong Kong`US@United States")
	if len(renames) != 2 || renames[0].Match != "HK" || renames[0].Replace != "Hong Kong" {
		t.Fatalf("unexpected rename list: %+v", renames)
	}
	emoji := parseEmojiParam("HK,🇭🇰`US,🇺🇸")
	if len(emoji) != 2 || emoji[1].Match != "US" || emoji[1].Replace != "🇺🇸" {
		t.Fatalf("unexpected emoji list: %+v", emoji)
	}
}

func TestParseExternalConfigYAML(t *testing.T) {
	body := []byte("custom:\n  clash_rule_base: https://example.com/base.yml\n  add_emoji: true\n")
	cfg, err := parseExternalConfig(body)
	if err != nil {
		t.Fatalf("parseExternalConfig: %v", err)
	}
	if cfg.Custom.ClashRuleBase != "https://example.com/base.yml" {
		t.Fatalf("unexpected rule base: %q", cfg.Custom.ClashRuleBase)
	}
	if cfg.Custom.AddEmoji == nil || !*cfg.Custom.AddEmoji {
		t.Fatalf("expected add_emoji true")
	}
}

func TestParseExternalConfigINI(t *testing.T) {
	body := []byte("[custom]\nclash_rule_base=https://example.com/base.yml\ninclude=^HK,^US\n")
	cfg, err := parseExternalConfig(body)
	if err != nil {
		t.Fatalf("parseExternalConfig: %v", err)
	}
	if cfg.Custom.ClashRuleBase != "https://example.com/base.yml" {
		t.Fatalf("unexpected rule base: %q", cfg.Custom.ClashRuleBase)
	}
	if len(cfg.Custom.Include) != 2 || cfg.Custom.Include[1] != "^US" {
		t.Fatalf("unexpected include list: %v", cfg.Custom.Include)
	}
}

// ssNodeDataURI is a single ss:// link, base64-wrapped inside a data: URI so
// Subconvert can be exercised end to end without a live network fetch.
const ssNodeDataURI = "data:text/plain,ss%3A%2F%2FYWVzLTI1Ni1jZmI6cGFzc3dvcmRAZXhhbXBsZS5jb206ODg4OA%3D%3D"

func TestSubconvertSimpleTarget(t *testing.T) {
	deps := &Deps{Fetcher: fetch.New(nil)}
	q := url.Values{}
	q.Set("target", "mixed")
	q.Set("url", ssNodeDataURI)
	resp := Subconvert(context.Background(), Request{Query: q, Method: "GET"}, deps)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	if resp.Body == "" {
		t.Fatalf("expected non-empty body")
	}
}

func TestSubconvertMissingURL(t *testing.T) {
	deps := &Deps{Fetcher: fetch.New(nil)}
	q := url.Values{}
	q.Set("target", "mixed")
	resp := Subconvert(context.Background(), Request{Query: q, Method: "GET"}, deps)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubconvertInvalidTarget(t *testing.T) {
	deps := &Deps{Fetcher: fetch.New(nil)}
	q := url.Values{}
	q.Set("target", "notareal target")
	q.Set("url", ssNodeDataURI)
	resp := Subconvert(context.Background(), Request{Query: q, Method: "GET"}, deps)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubconvertHeadOnlyReturnsHeaders(t *testing.T) {
	deps := &Deps{Fetcher: fetch.New(nil)}
	q := url.Values{}
	q.Set("target", "mixed")
	q.Set("url", ssNodeDataURI)
	resp := Subconvert(context.Background(), Request{Query: q, Method: "HEAD"}, deps)
	if resp.StatusCode != 200 || resp.Body != "" {
		t.Fatalf("expected empty-bodied 200 for HEAD, got %d: %q", resp.StatusCode, resp.Body)
	}
}

func TestSubconvertAutoTargetFromUserAgent(t *testing.T) {
	deps := &Deps{Fetcher: fetch.New(nil)}
	q := url.Values{}
	q.Set("target", "auto")
	q.Set("url", ssNodeDataURI)
	resp := Subconvert(context.Background(), Request{Query: q, Method: "GET", UserAgent: "ClashforWindows/0.11.6"}, deps)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
}
