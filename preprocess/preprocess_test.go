package preprocess

import (
	"context"
	"testing"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/script"
)

func TestApplyMatcherBarePattern(t *testing.T) {
	n := &node.Proxy{Remark: "HK-01"}
	matched, residual := applyMatcher("HK.*", n)
	if !matched || residual != "HK.*" {
		t.Fatalf("unexpected result: %v %q", matched, residual)
	}
}

func TestApplyMatcherLiteral(t *testing.T) {
	n := &node.Proxy{Remark: "exact"}
	matched, residual := applyMatcher("[]exact", n)
	if !matched || residual != "" {
		t.Fatalf("unexpected result: %v %q", matched, residual)
	}
	if matched2, _ := applyMatcher("[]other", n); matched2 {
		t.Fatalf("expected literal mismatch to not match")
	}
}

func TestApplyMatcherGroup(t *testing.T) {
	n := &node.Proxy{Remark: "node", Group: "provider-a"}
	if matched, _ := applyMatcher("GROUP:provider-a", n); !matched {
		t.Fatalf("expected group match")
	}
	if matched, _ := applyMatcher("GROUP:provider-b", n); matched {
		t.Fatalf("expected group mismatch")
	}
}

func TestApplyMatcherNegatedGroup(t *testing.T) {
	n := &node.Proxy{Remark: "node", Group: "provider-a"}
	if matched, _ := applyMatcher("!!GROUP:provider-a", n); matched {
		t.Fatalf("expected negated group match to exclude")
	}
	if matched, _ := applyMatcher("!!GROUP:provider-b", n); !matched {
		t.Fatalf("expected negated group mismatch to pass")
	}
}

func TestApplyMatcherGroupID(t *testing.T) {
	n := &node.Proxy{GroupId: 3}
	if matched, _ := applyMatcher("!!GROUPID:3", n); !matched {
		t.Fatalf("expected groupid match")
	}
	if matched, _ := applyMatcher("!!GROUPID:4", n); matched {
		t.Fatalf("expected groupid mismatch")
	}
}

func TestFilterIncludeExclude(t *testing.T) {
	nodes := []node.Proxy{
		{Remark: "HK-01"},
		{Remark: "US-01"},
		{Remark: "HK-02"},
	}
	out := Filter(nodes, []string{"HK"}, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(out))
	}
	out = Filter(nodes, nil, []string{"US"})
	if len(out) != 2 {
		t.Fatalf("expected 2 nodes after exclude, got %d", len(out))
	}
}

func TestRenameRegex(t *testing.T) {
	nodes := []node.Proxy{{Remark: "HK-01 Premium"}}
	rules := []node.RegexMatchConfig{{Match: " Premium", Replace: ""}}
	out := Rename(context.Background(), nodes, rules, nil, script.Gate{})
	if out[0].Remark != "HK-01" {
		t.Fatalf("unexpected remark: %q", out[0].Remark)
	}
}

func TestRenameRestoresEmptyResult(t *testing.T) {
	nodes := []node.Proxy{{Remark: "HK-01"}}
	rules := []node.RegexMatchConfig{{Match: "HK-01", Replace: ""}}
	out := Rename(context.Background(), nodes, rules, nil, script.Gate{})
	if out[0].Remark != "HK-01" {
		t.Fatalf("expected restore to original, got %q", out[0].Remark)
	}
}

func TestEmojiRemoveStripsLeadingEmoji(t *testing.T) {
	remark := "\U0001F1ED\U0001F1F0 HK-01"
	got := stripLeadingEmoji(remark)
	if got != " HK-01" {
		t.Fatalf("unexpected strip result: %q", got)
	}
}

func TestEmojiAddPrependsFirstMatch(t *testing.T) {
	nodes := []node.Proxy{{Remark: "HK-01"}}
	rules := []node.RegexMatchConfig{{Match: "HK", Replace: "\U0001F1ED\U0001F1F0"}}
	out := Emoji(context.Background(), nodes, rules, false, true, nil, script.Gate{})
	if out[0].Remark != "\U0001F1ED\U0001F1F0 HK-01" {
		t.Fatalf("unexpected remark: %q", out[0].Remark)
	}
}

func TestSortSinksUnknownToEnd(t *testing.T) {
	nodes := []node.Proxy{
		{Remark: "b", Type: node.Unknown},
		{Remark: "a", Type: node.Shadowsocks},
	}
	out := Sort(context.Background(), nodes, true, "", nil, script.Gate{})
	if out[0].Remark != "a" || out[1].Remark != "b" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestDedupRemarkSuffixesDuplicates(t *testing.T) {
	nodes := []node.Proxy{
		{Remark: "dup"},
		{Remark: "dup"},
		{Remark: "dup"},
		{Remark: "unique"},
	}
	out := DedupRemark(nodes)
	if out[0].Remark != "dup" || out[1].Remark != "dup 2" || out[2].Remark != "dup 3" {
		t.Fatalf("unexpected remarks: %v %v %v", out[0].Remark, out[1].Remark, out[2].Remark)
	}
	for i, n := range out {
		if n.Id != i {
			t.Fatalf("expected Id %d, got %d", i, n.Id)
		}
	}
}
