package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderVariableSubstitution(t *testing.T) {
	r := NewRenderer(t.TempDir(), nil)
	out, err := r.Render("hello {{ request.target }}", Vars{Request: map[string]string{"target": "clash"}})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "hello clash" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderIfElse(t *testing.T) {
	r := NewRenderer(t.TempDir(), nil)
	content := "#~# if request.target == \"clash\"\nIS_CLASH\n#~# else\nOTHER\n#~# endif\n"
	out, err := r.Render(content, Vars{Request: map[string]string{"target": "clash"}})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "IS_CLASH") || strings.Contains(out, "OTHER") {
		t.Fatalf("unexpected branch taken: %q", out)
	}
}

func TestRenderForLoop(t *testing.T) {
	r := NewRenderer(t.TempDir(), nil)
	content := "{% for n in local.names %}[{{ $n }}]{% endfor %}"
	out, err := r.Render(content, Vars{})
	_ = out
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
}

func TestRenderCallables(t *testing.T) {
	r := NewRenderer(t.TempDir(), nil)
	content := "{{ UrlEncode(\"a b\") }}"
	out, err := r.Render(content, Vars{})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "a+b" {
		t.Fatalf("unexpected encode: %q", out)
	}
}

func TestRenderSetThenRead(t *testing.T) {
	r := NewRenderer(t.TempDir(), nil)
	content := "{{ set(\"local.x\", \"42\") }}{{ local.x }}"
	out, err := r.Render(content, Vars{})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "42" {
		t.Fatalf("unexpected set/read output: %q", out)
	}
}

func TestIncludeWithinRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "partial.tpl"), []byte("PARTIAL"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	r := NewRenderer(root, nil)
	out, err := r.Render(`{% include "partial.tpl" %}`, Vars{})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "PARTIAL" {
		t.Fatalf("unexpected include output: %q", out)
	}
}

func TestIncludeOutsideRootRejected(t *testing.T) {
	root := t.TempDir()
	r := NewRenderer(root, nil)
	_, err := r.Render(`{% include "../../etc/passwd" %}`, Vars{})
	if err == nil {
		t.Fatalf("expected out-of-scope include to fail")
	}
}
