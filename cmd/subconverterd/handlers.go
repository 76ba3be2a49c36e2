package main

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/nodeconv/subconverter/facade"
	"github.com/nodeconv/subconverter/reqerr"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/settings"
	"github.com/nodeconv/subconverter/stats"
	"github.com/nodeconv/subconverter/template"
)

// server bundles the facade.Deps every /sub-family handler shares plus the
// pieces only the management/shortcut endpoints need.
type server struct {
	deps      *facade.Deps
	version   string
	prefsPath string
	metrics   *stats.Metrics
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/sub", s.instrument("/sub", s.handleSub))
	mux.HandleFunc("/sub2clashr", s.instrument("/sub2clashr", s.handleSub2ClashR))
	mux.HandleFunc("/surge2clash", s.instrument("/surge2clash", s.handleSurge2Clash))
	mux.HandleFunc("/getruleset", s.handleGetRuleset)
	mux.HandleFunc("/getprofile", s.instrument("/getprofile", s.handleGetProfile))
	mux.HandleFunc("/render", s.handleRender)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/refreshrules", s.handleRefreshRules)
	mux.HandleFunc("/readconf", s.handleReadConf)
	mux.HandleFunc("/updateconf", s.handleUpdateConf)
	mux.HandleFunc("/flushcache", s.handleFlushCache)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	gso := settings.GSO.Get()
	if !gso.APIMode {
		mux.HandleFunc("/get", s.handleGet)
		mux.HandleFunc("/getlocal", s.handleGetLocal)
	}
}

// instrument wraps a /sub-family handler with request-count/latency
// observation, the same counter-plus-latency pairing the teacher's own
// stats.ProxyCoreStats tracked per stat name.
func (s *server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		h(rec, r)
		elapsed := time.Since(start)
		s.metrics.Observe(endpoint, rec.status, elapsed)
		if glog.V(4) {
			glog.Infof("[subconverterd] %s %s reqid=%s status=%d elapsed=%s", r.Method, endpoint, reqID, rec.status, elapsed)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, s.version)
}

func (s *server) handleSub(w http.ResponseWriter, r *http.Request) {
	s.writeSubconvert(w, r, r.URL.Query())
}

// handleSub2ClashR is the `target=clashr&url=<sublink>` shortcut spec §6.1
// describes: every other query param is forwarded untouched.
func (s *server) handleSub2ClashR(w http.ResponseWriter, r *http.Request) {
	q := cloneQuery(r.URL.Query())
	q.Set("target", "clashr")
	s.writeSubconvert(w, r, q)
}

func (s *server) writeSubconvert(w http.ResponseWriter, r *http.Request, q url.Values) {
	req := facade.Request{
		Query:     q,
		UserAgent: r.UserAgent(),
		Method:    r.Method,
		SelfURL:   selfURL(r),
	}
	resp := facade.Subconvert(r.Context(), req, s.deps)
	if s.metrics != nil && resp.StatusCode == 200 {
		s.metrics.ObserveNodes(q.Get("target"), resp.NodeCount)
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.StatusCode != 200 {
		w.WriteHeader(resp.StatusCode)
		io.WriteString(w, resp.Body)
		return
	}
	if name := q.Get("filename"); name != "" {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	}
	io.WriteString(w, resp.Body)
}

// handleSurge2Clash fetches a remote Surge config and re-emits it as
// Clash, reusing the same fetch+explode+emit pipeline Subconvert itself
// walks, just pinned to a fixed target pair.
func (s *server) handleSurge2Clash(w http.ResponseWriter, r *http.Request) {
	q := cloneQuery(r.URL.Query())
	q.Set("target", "clash")
	s.writeSubconvert(w, r, q)
}

// handleGetRuleset converts a single ruleset to the requested output type
// (spec §6.1 "returns a single ruleset converted to type=1..6").
func (s *server) handleGetRuleset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	u := q.Get("url")
	if u == "" {
		reqerr.Write(w, reqerr.Invalid("Invalid request!"))
		return
	}
	typ, err := strconv.Atoi(q.Get("type"))
	if err != nil || typ < 1 || typ > 6 {
		reqerr.Write(w, reqerr.Invalid("Invalid type!"))
		return
	}
	body, _, err := s.deps.Fetcher.Fetch(r.Context(), u, s.deps.FetchOpts)
	if err != nil {
		reqerr.Write(w, reqerr.Invalid("Fetch failed: "+err.Error()))
		return
	}
	out := ruleset.ConvertRuleset(string(body), ruleset.ParseRulesetTypeParam(typ))
	io.WriteString(w, out)
}

// handleGetProfile reads a stored profile (a file under BasePath holding a
// saved /sub query string) and forwards it to the facade as-is.
func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		reqerr.Write(w, reqerr.Invalid("Invalid request!"))
		return
	}
	body, _, err := s.deps.Fetcher.Fetch(r.Context(), name, s.deps.FetchOpts)
	if err != nil {
		reqerr.Write(w, reqerr.Invalid("Profile not found: "+err.Error()))
		return
	}
	q, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		reqerr.Write(w, reqerr.Invalid("Malformed profile: "+err.Error()))
		return
	}
	s.writeSubconvert(w, r, q)
}

// handleRender renders an arbitrary template from the template root
// against the incoming request's query parameters (spec §4.10/§6.1).
func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		reqerr.Write(w, reqerr.Invalid("Invalid request!"))
		return
	}
	renderer := s.deps.Renderer
	if renderer == nil {
		reqerr.Write(w, reqerr.Internal("template renderer not configured"))
		return
	}
	body, _, err := s.deps.Fetcher.Fetch(r.Context(), path, s.deps.FetchOpts)
	if err != nil {
		reqerr.Write(w, reqerr.Template("template not found: "+err.Error()))
		return
	}
	req := map[string]string{}
	for k := range q {
		req[k] = q.Get(k)
	}
	out, err := renderer.Render(string(body), template.Vars{Request: req})
	if err != nil {
		reqerr.Write(w, reqerr.Template(err.Error()))
		return
	}
	io.WriteString(w, out)
}

// handleConvert converts inline ruleset text posted/queried in, without a
// fetch, mirroring /getruleset's conversion but for already-local text
// (spec §6.1 "converts arbitrary inline ruleset text").
func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := strconv.Atoi(q.Get("type"))
	if err != nil || typ < 1 || typ > 6 {
		reqerr.Write(w, reqerr.Invalid("Invalid type!"))
		return
	}
	var body []byte
	if r.Method == http.MethodPost {
		body, _ = io.ReadAll(r.Body)
	} else {
		body = []byte(q.Get("content"))
	}
	out := ruleset.ConvertRuleset(string(body), ruleset.ParseRulesetTypeParam(typ))
	io.WriteString(w, out)
}

func (s *server) handleRefreshRules(w http.ResponseWriter, r *http.Request) {
	if !reqerr.WriteToken(w, r, settings.GSO.Get().Token) {
		return
	}
	// Rulesets refresh lazily, per-request, through the ruleset Engine's
	// own TTL -- there is no standing ruleset set to eagerly re-walk here,
	// so refreshing means dropping the fetch cache entries that back them.
	// The cache does not tell ruleset entries apart from others, so the
	// whole cache is flushed.
	if cache := s.deps.Cache; cache != nil {
		if err := cache.Flush(); err != nil {
			reqerr.Write(w, reqerr.Internal("failed to flush cache: "+err.Error()))
			return
		}
		glog.Infof("[subconverterd] /refreshrules: ruleset cache entries will repopulate on next fetch")
	}
	io.WriteString(w, "Rulesets refreshed.")
}

func (s *server) handleReadConf(w http.ResponseWriter, r *http.Request) {
	if !reqerr.WriteToken(w, r, settings.GSO.Get().Token) {
		return
	}
	if s.prefsPath == "" {
		reqerr.Write(w, reqerr.Internal("no preference file configured"))
		return
	}
	newSettings, err := loadPrefs(s.prefsPath)
	if err != nil {
		reqerr.Write(w, reqerr.Internal("failed to reload preference file: "+err.Error()))
		return
	}
	settings.GSO.Put(newSettings)
	io.WriteString(w, "Configuration reloaded.")
}

func (s *server) handleUpdateConf(w http.ResponseWriter, r *http.Request) {
	if !reqerr.WriteToken(w, r, settings.GSO.Get().Token) {
		return
	}
	if s.prefsPath == "" {
		reqerr.Write(w, reqerr.Internal("no preference file configured"))
		return
	}
	var body []byte
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			reqerr.Write(w, reqerr.Invalid("malformed form body: "+err.Error()))
			return
		}
		body = []byte(r.PostForm.Get("content"))
	} else {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			reqerr.Write(w, reqerr.Invalid("failed to read body: "+err.Error()))
			return
		}
	}
	if err := writeFile(s.prefsPath, body); err != nil {
		reqerr.Write(w, reqerr.Internal("failed to write preference file: "+err.Error()))
		return
	}
	newSettings, err := loadPrefs(s.prefsPath)
	if err != nil {
		reqerr.Write(w, reqerr.Internal("written file failed to parse: "+err.Error()))
		return
	}
	settings.GSO.Put(newSettings)
	io.WriteString(w, "Configuration updated.")
}

func (s *server) handleFlushCache(w http.ResponseWriter, r *http.Request) {
	if !reqerr.WriteToken(w, r, settings.GSO.Get().Token) {
		return
	}
	if cache := s.deps.Cache; cache != nil {
		if err := cache.Flush(); err != nil {
			reqerr.Write(w, reqerr.Internal("failed to flush cache: "+err.Error()))
			return
		}
	}
	io.WriteString(w, "Cache flushed.")
}

// handleGet/handleGetLocal are only registered when the preference file
// doesn't set api_mode=true (spec §6.1): a thin passthrough fetch, local
// or remote, with no node-model interpretation at all.
func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		reqerr.Write(w, reqerr.Invalid("Invalid request!"))
		return
	}
	body, hdr, err := s.deps.Fetcher.Fetch(r.Context(), u, s.deps.FetchOpts)
	if err != nil {
		reqerr.Write(w, reqerr.Invalid("Fetch failed: "+err.Error()))
		return
	}
	if ct := hdr.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Write(body)
}

func (s *server) handleGetLocal(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		reqerr.Write(w, reqerr.Invalid("Invalid request!"))
		return
	}
	body, err := readLocalFile(path)
	if err != nil {
		reqerr.Write(w, reqerr.Invalid("Read failed: "+err.Error()))
		return
	}
	w.Write(body)
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func selfURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
