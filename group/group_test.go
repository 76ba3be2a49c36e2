package group

import (
	"context"
	"testing"

	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/script"
)

func TestBuildMatchesRemarkPattern(t *testing.T) {
	nodes := []node.Proxy{
		{Remark: "HK-01"},
		{Remark: "US-01"},
		{Remark: "HK-02"},
	}
	configs := []node.ProxyGroupConfig{
		{Name: "HK", Type: node.Select, Proxies: []string{"HK"}},
	}
	built := Build(context.Background(), configs, nodes, nil, script.Gate{})
	if len(built) != 1 || len(built[0].Members) != 2 {
		t.Fatalf("unexpected build: %+v", built)
	}
}

func TestBuildLiteralMember(t *testing.T) {
	configs := []node.ProxyGroupConfig{
		{Name: "g", Type: node.Select, Proxies: []string{"[]DIRECT", "[]REJECT"}},
	}
	built := Build(context.Background(), configs, nil, nil, script.Gate{})
	if len(built[0].Members) != 2 || built[0].Members[0] != "DIRECT" || built[0].Members[1] != "REJECT" {
		t.Fatalf("unexpected members: %v", built[0].Members)
	}
	if !OnlyDirectOrReject(built[0]) {
		t.Fatalf("expected OnlyDirectOrReject true")
	}
}

func TestBuildEmptyFallsBackToDirect(t *testing.T) {
	configs := []node.ProxyGroupConfig{
		{Name: "g", Type: node.Select, Proxies: []string{"nonexistent-pattern"}},
	}
	built := Build(context.Background(), configs, nil, nil, script.Gate{})
	if len(built[0].Members) != 1 || built[0].Members[0] != "DIRECT" {
		t.Fatalf("expected fallback DIRECT, got %v", built[0].Members)
	}
}

func TestBuildProviderReference(t *testing.T) {
	configs := []node.ProxyGroupConfig{
		{Name: "g", Type: node.Select, Proxies: []string{"!!PROVIDER=providerA,providerB"}},
	}
	built := Build(context.Background(), configs, nil, nil, script.Gate{})
	if len(built[0].Providers) != 2 || built[0].Providers[0] != "providerA" {
		t.Fatalf("unexpected providers: %v", built[0].Providers)
	}
}

func TestBuildDeduplicatesMembers(t *testing.T) {
	nodes := []node.Proxy{{Remark: "dup"}, {Remark: "dup"}}
	configs := []node.ProxyGroupConfig{
		{Name: "g", Type: node.Select, Proxies: []string{"dup"}},
	}
	built := Build(context.Background(), configs, nodes, nil, script.Gate{})
	if len(built[0].Members) != 1 {
		t.Fatalf("expected deduped single member, got %v", built[0].Members)
	}
}
