package bulk

import (
	"testing"

	"github.com/nodeconv/subconverter/node"
)

func TestExplodeConfContentSSConf(t *testing.T) {
	blob := []byte(`{
		"version": 1,
		"servers": [
			{"remarks": "node-a", "server": "example.com", "server_port": 8388, "password": "pw", "method": "aes-256-gcm"}
		]
	}`)
	var out []node.Proxy
	if ok := ExplodeConfContent(blob, &out); !ok {
		t.Fatalf("expected a match")
	}
	if len(out) != 1 || out[0].Type != node.Shadowsocks || out[0].Hostname != "example.com" {
		t.Fatalf("unexpected nodes: %+v", out)
	}
}

func TestExplodeConfContentClash(t *testing.T) {
	blob := []byte(`
proxies:
  - name: clash-node
    type: ss
    server: 1.2.3.4
    port: 8388
    cipher: aes-256-gcm
    password: secret
`)
	var out []node.Proxy
	if ok := ExplodeConfContent(blob, &out); !ok {
		t.Fatalf("expected a match")
	}
	if len(out) != 1 || out[0].Hostname != "1.2.3.4" || out[0].Port != 8388 {
		t.Fatalf("unexpected nodes: %+v", out)
	}
}

func TestExplodeConfContentSurge(t *testing.T) {
	blob := []byte("[Proxy]\nmy-ss = ss, example.com, 8388, encrypt-method=aes-256-gcm, password=secret\n")
	var out []node.Proxy
	if ok := ExplodeConfContent(blob, &out); !ok {
		t.Fatalf("expected a match")
	}
	if len(out) != 1 || out[0].Type != node.Shadowsocks || out[0].Remark != "my-ss" {
		t.Fatalf("unexpected nodes: %+v", out)
	}
}

func TestExplodeConfContentQuantumultX(t *testing.T) {
	blob := []byte("shadowsocks = example.com, 8388, method=aes-256-gcm, password=secret, tag=qx-node\n")
	var out []node.Proxy
	if ok := ExplodeConfContent(blob, &out); !ok {
		t.Fatalf("expected a match")
	}
	if len(out) != 1 || out[0].Type != node.Shadowsocks {
		t.Fatalf("unexpected nodes: %+v", out)
	}
}

func TestExplodeConfContentLineFallback(t *testing.T) {
	blob := []byte("ss://YWVzLTI1Ni1jZmI6cGFzc3dvcmRAZXhhbXBsZS5jb206ODg4OA==#plain-node\n")
	var out []node.Proxy
	if ok := ExplodeConfContent(blob, &out); !ok {
		t.Fatalf("expected a match")
	}
	if len(out) != 1 || out[0].Hostname != "example.com" {
		t.Fatalf("unexpected nodes: %+v", out)
	}
}

func TestExplodeConfContentEmptyReturnsFalse(t *testing.T) {
	var out []node.Proxy
	if ok := ExplodeConfContent([]byte("not a recognizable config\n"), &out); ok {
		t.Fatalf("expected no match, got %+v", out)
	}
}
