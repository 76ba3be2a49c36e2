package link

import (
	"testing"

	"github.com/nodeconv/subconverter/node"
)

func TestExplodeSSPlain(t *testing.T) {
	p := Explode("ss://aes-256-cfb:password@example.com:8888#my-node")
	if p.Type != node.Shadowsocks {
		t.Fatalf("expected Shadowsocks, got %v", p.Type)
	}
	if p.Hostname != "example.com" || p.Port != 8888 {
		t.Fatalf("unexpected host/port: %s:%d", p.Hostname, p.Port)
	}
	if p.EncryptMethod != "aes-256-cfb" || p.Password != "password" {
		t.Fatalf("unexpected method/password: %s/%s", p.EncryptMethod, p.Password)
	}
	if p.Remark != "my-node" {
		t.Fatalf("unexpected remark: %s", p.Remark)
	}
}

func TestExplodeSSBase64Full(t *testing.T) {
	// base64 of "aes-256-cfb:password@example.com:8888"
	p := Explode("ss://YWVzLTI1Ni1jZmI6cGFzc3dvcmRAZXhhbXBsZS5jb206ODg4OA==")
	if p.Type != node.Shadowsocks {
		t.Fatalf("expected Shadowsocks, got %v", p.Type)
	}
	if p.Hostname != "example.com" || p.Port != 8888 {
		t.Fatalf("unexpected host/port: %s:%d", p.Hostname, p.Port)
	}
}

func TestExplodeSSRejectsZeroPort(t *testing.T) {
	p := Explode("ss://YWVzLTI1Ni1jZmI6cGFzc3dvcmRAZXhhbXBsZS5jb206MA==")
	if p.Type != node.Unknown {
		t.Fatalf("expected Unknown for zero port, got %v", p.Type)
	}
}

func TestExplodeTrojan(t *testing.T) {
	p := Explode("trojan://secretpw@example.com:443?sni=sni.example.com&allowInsecure=1#trojan-node")
	if p.Type != node.Trojan {
		t.Fatalf("expected Trojan, got %v", p.Type)
	}
	if p.Password != "secretpw" || p.ServerName != "sni.example.com" {
		t.Fatalf("unexpected password/sni: %s/%s", p.Password, p.ServerName)
	}
	if !p.AllowInsecure.Get(false) {
		t.Fatalf("expected AllowInsecure true")
	}
}

func TestExplodeSocksWithUserinfo(t *testing.T) {
	// base64 of "user:pass"
	p := Explode("socks://dXNlcjpwYXNz@example.com:1080#socks-node")
	if p.Type != node.SOCKS5 {
		t.Fatalf("expected SOCKS5, got %v", p.Type)
	}
	if p.Username != "user" || p.Password != "pass" {
		t.Fatalf("unexpected username/password: %s/%s", p.Username, p.Password)
	}
}

func TestExplodeUnknownScheme(t *testing.T) {
	p := Explode("unknownproto://whatever")
	if p.Type != node.Unknown {
		t.Fatalf("expected Unknown, got %v", p.Type)
	}
}

func TestExplodeMalformedNeverPanics(t *testing.T) {
	inputs := []string{
		"ss://", "ssr://", "vmess://", "trojan://", "socks://",
		"netch://not-base64", "ssd://not-base64", "",
	}
	for _, in := range inputs {
		p := Explode(in)
		if p.Type != node.Unknown {
			t.Errorf("input %q: expected Unknown, got %v", in, p.Type)
		}
	}
}

func TestSupportedSchemesIncludesCore(t *testing.T) {
	schemes := SupportedSchemes()
	want := map[string]bool{"ss://": false, "ssr://": false, "vmess://": false, "trojan://": false}
	for _, s := range schemes {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for scheme, found := range want {
		if !found {
			t.Errorf("expected %q to be registered", scheme)
		}
	}
}
