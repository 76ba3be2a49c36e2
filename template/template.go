// Package template implements the base-config template renderer (C10): a
// mustache/jinja-flavored preprocessing layer over Go's text/template,
// grounded on
// _examples/original_source/src/generator/template/templates.cpp's
// render_template. No templating library appears anywhere in the
// retrieved corpus, so this builds on the standard library's own
// text/template the way the corpus's other_examples/ files do (air.go,
// node-peer.go) -- the one component in this module with no ecosystem
// library to ground on, since text/template is itself the idiomatic-Go
// answer to "render a text template."
//
// The original's inja syntax and this renderer's Go-template syntax
// diverge in one place: a range body (`{% for x in list %}`) must refer
// to the loop variable as `$x`, Go template's own idiom, rather than
// inja's bare `x` -- documented here rather than silently papered over.
package template

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/golang/glog"

	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/cmn/glogx"
	"github.com/nodeconv/subconverter/fetch"
	"github.com/nodeconv/subconverter/settings"
)

// Vars carries the three namespaces a template may read: global settings,
// the incoming request's query parameters, and renderer-local values set
// mid-render via the `set`/`append`/`split` callables.
type Vars struct {
	Global  map[string]string
	Request map[string]string
	Local   map[string]string
}

// Renderer renders base-config templates rooted at Root. Root bounds
// every `{% include "<path>" %}`: the resolved path must canonicalize to
// somewhere under Root, or the render fails (spec §4.10).
type Renderer struct {
	Root       string
	Fetcher    *fetch.Fetcher
	LineMarker string
}

// NewRenderer returns a Renderer scoped to root with the default "#~#"
// line-statement marker.
func NewRenderer(root string, fetcher *fetch.Fetcher) *Renderer {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Renderer{Root: abs, Fetcher: fetcher, LineMarker: "#~#"}
}

// Render executes content against vars and returns the rendered text.
func (r *Renderer) Render(content string, vars Vars) (string, error) {
	data := map[string]interface{}{
		"global":  toNested(vars.Global),
		"request": toNested(vars.Request),
		"local":   toNested(vars.Local),
	}
	setArgsSummary(data, vars.Request)
	return r.renderWithData(content, data)
}

func (r *Renderer) renderWithData(content string, data map[string]interface{}) (string, error) {
	src := r.convert(content)

	tmpl, err := template.New("base").Delims("{{", "}}").Funcs(r.funcMap(data)).Parse(src)
	if err != nil {
		return "", fmt.Errorf("template: parse failed: %w", err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("template: render failed: %w", err)
	}
	return out.String(), nil
}

var tagPattern = regexp.MustCompile(`\{%-?\s*(.*?)\s*-?%\}|\{\{-?\s*(.*?)\s*-?\}\}`)
var namespaceRef = regexp.MustCompile(`\b(global|request|local)((?:\.[A-Za-z0-9_]+)*)`)

// convert rewrites the line-statement marker and {% %}/{{ }} tags into Go
// template actions, then prefixes every bare global/request/local dotted
// path with the leading dot text/template's field access requires.
func (r *Renderer) convert(content string) string {
	marker := r.LineMarker
	if marker == "" {
		marker = "#~#"
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, marker) {
			stmt := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			lines[i] = "{% " + stmt + " %}"
		}
	}
	content = strings.Join(lines, "\n")

	content = tagPattern.ReplaceAllStringFunc(content, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		inner := m[1]
		if inner == "" {
			inner = m[2]
		}
		return translateTag(strings.TrimSpace(inner))
	})

	content = prefixNamespacesOutsideQuotes(content)
	return content
}

// prefixNamespacesOutsideQuotes applies namespaceRef only to text outside
// double-quoted string literals, so a quoted path argument to set/append/
// split (a plain string, not a field access) is left untouched.
func prefixNamespacesOutsideQuotes(content string) string {
	var b strings.Builder
	inQuote := false
	start := 0
	flush := func(end int) {
		segment := content[start:end]
		if inQuote {
			b.WriteString(segment)
		} else {
			segment = namespaceRef.ReplaceAllString(segment, ".$1$2")
			segment = strings.NewReplacer("..global", ".global", "..request", ".request", "..local", ".local").Replace(segment)
			b.WriteString(segment)
		}
		start = end
	}
	for i := 0; i < len(content); i++ {
		if content[i] == '"' && (i == 0 || content[i-1] != '\\') {
			flush(i + 1)
			inQuote = !inQuote
		}
	}
	flush(len(content))
	return b.String()
}

func translateTag(inner string) string {
	switch {
	case inner == "else":
		return "{{else}}"
	case inner == "endif":
		return "{{end}}"
	case inner == "endfor":
		return "{{end}}"
	case strings.HasPrefix(inner, "if "):
		cond := strings.TrimSpace(strings.TrimPrefix(inner, "if "))
		return "{{if " + translateCond(cond) + "}}"
	case strings.HasPrefix(inner, "for "):
		rest := strings.TrimSpace(strings.TrimPrefix(inner, "for "))
		if idx := strings.Index(rest, " in "); idx >= 0 {
			varName := strings.TrimSpace(rest[:idx])
			coll := strings.TrimSpace(rest[idx+len(" in "):])
			return "{{range $" + varName + " := " + translateCall(coll) + "}}"
		}
		return "{{/* malformed for: " + inner + " */}}"
	case strings.HasPrefix(inner, "include "):
		path := strings.TrimSpace(strings.TrimPrefix(inner, "include "))
		return "{{include " + path + "}}"
	default:
		return "{{" + translateCall(inner) + "}}"
	}
}

func translateCond(expr string) string {
	if idx := strings.Index(expr, "=="); idx >= 0 {
		left := translateCall(strings.TrimSpace(expr[:idx]))
		right := translateCall(strings.TrimSpace(expr[idx+2:]))
		return "(eq " + left + " " + right + ")"
	}
	if idx := strings.Index(expr, "!="); idx >= 0 {
		left := translateCall(strings.TrimSpace(expr[:idx]))
		right := translateCall(strings.TrimSpace(expr[idx+2:]))
		return "(ne " + left + " " + right + ")"
	}
	return translateCall(expr)
}

var callPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)

// translateCall turns a C-like call `name(a, b)` into Go template's own
// call syntax `name a b`, recursing into each argument so nested calls
// translate too. Bare identifiers and literals pass through unchanged.
func translateCall(expr string) string {
	expr = strings.TrimSpace(expr)
	m := callPattern.FindStringSubmatch(expr)
	if m == nil {
		return expr
	}
	name, argStr := m[1], m[2]
	args := splitArgs(argStr)
	for i, a := range args {
		args[i] = translateCall(strings.TrimSpace(a))
	}
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// splitArgs splits a call's argument list on top-level commas, ignoring
// commas nested inside quotes or parens.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func (r *Renderer) funcMap(data map[string]interface{}) template.FuncMap {
	return template.FuncMap{
		"UrlEncode": url.QueryEscape,
		"UrlDecode": func(s string) string {
			out, err := url.QueryUnescape(s)
			if err != nil {
				return s
			}
			return out
		},
		"trim": strings.TrimSpace,
		"trim_of": func(s, cutset string) string {
			if cutset == "" {
				return s
			}
			return strings.Trim(s, cutset[:1])
		},
		"find": func(src, pattern string) bool {
			re, err := cmn.CompileRegex(pattern)
			if err != nil {
				return false
			}
			return cmn.MatchString(re, src)
		},
		"replace": func(src, pattern, repl string) string {
			if pattern == "" || src == "" {
				return src
			}
			re, err := cmn.CompileRegex(pattern)
			if err != nil {
				return src
			}
			out, err := cmn.ReplaceAll(re, src, repl)
			if err != nil {
				return src
			}
			return out
		},
		"set": func(path, value string) string {
			setPath(data, path, value)
			return ""
		},
		"append": func(path, value string) string {
			existing, _ := getPath(data, path).(string)
			setPath(data, path, existing+value)
			return ""
		},
		"split": func(content, delim, dest string) string {
			for i, part := range strings.Split(content, delim) {
				setPath(data, dest+"."+strconv.Itoa(i), part)
			}
			return ""
		},
		"getLink": func(path string) string {
			return settings.GSO.Get().ManagedConfigPrefix + path
		},
		"startsWith": strings.HasPrefix,
		"endsWith":   strings.HasSuffix,
		"bool": func(v string) bool {
			v = strings.ToLower(v)
			return v == "true" || v == "1"
		},
		"string": func(v int) string { return strconv.Itoa(v) },
		"or": func(vals ...bool) bool {
			for _, v := range vals {
				if v {
					return true
				}
			}
			return false
		},
		"and": func(vals ...bool) bool {
			for _, v := range vals {
				if !v {
					return false
				}
			}
			return true
		},
		"fetch": func(u string) string {
			if r.Fetcher == nil {
				return ""
			}
			if glogx.FastV(4, glogx.SmoduleFetch) {
				glog.Infof("[template] fetch called with url %q", u)
			}
			body, _, err := r.Fetcher.Fetch(context.Background(), u, fetch.Options{})
			if err != nil {
				return ""
			}
			return string(body)
		},
		"include": func(path string) (string, error) {
			return r.include(path, data)
		},
	}
}

// include resolves path against Root (spec §4.10 "restricted to paths
// under a configured template root, canonicalized + prefix check") and
// renders it with the same (possibly already-mutated by `set`) data the
// including template is executing with.
func (r *Renderer) include(path string, data map[string]interface{}) (string, error) {
	path = strings.Trim(path, `"`)
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.Root, full)
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("template: cannot resolve include path %q: %w", path, err)
	}
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("template: access denied including %q: out of scope", path)
	}
	body, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("template: include %q: %w", path, err)
	}
	return r.renderWithData(string(body), data)
}

func toNested(flat map[string]string) map[string]interface{} {
	out := map[string]interface{}{}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		setPath(out, k, flat[k])
	}
	return out
}

func setPath(root map[string]interface{}, path, value string) {
	parts := strings.Split(path, ".")
	m := root
	for i, p := range parts {
		if i == len(parts)-1 {
			m[p] = value
			return
		}
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[p] = next
		}
		m = next
	}
}

func getPath(root map[string]interface{}, path string) interface{} {
	var cur interface{} = root
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// setArgsSummary mirrors render_template's `request._args`: every query
// key joined as `key=value` (or bare `key` when the value is empty),
// joined with `&`.
func setArgsSummary(data map[string]interface{}, reqVars map[string]string) {
	keys := make([]string, 0, len(reqVars))
	for k := range reqVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := reqVars[k]; v != "" {
			parts = append(parts, k+"="+v)
		} else {
			parts = append(parts, k)
		}
	}
	setPath(data, "request._args", strings.Join(parts, "&"))
}
