// Command subconverterd serves the HTTP surface spec.md §6.1 describes:
// /sub and its shortcuts, the management endpoints, and the template/
// ruleset utility endpoints, all backed by the core pipeline packages.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/nodeconv/subconverter/facade"
	"github.com/nodeconv/subconverter/fetch"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/script"
	"github.com/nodeconv/subconverter/settings"
	"github.com/nodeconv/subconverter/stats"
	"github.com/nodeconv/subconverter/template"
)

// NOTE: set by -ldflags at build time.
var (
	version string
	build   string
)

// basePath scopes /getlocal and the fetcher's own bare-local-path
// resolution; set once from -base-path and never mutated afterward.
var basePath string

var (
	listenAddr  = flag.String("listen", ":25500", "address to listen on")
	prefsFile   = flag.String("conf", "", "path to the preference file (INI/YAML/TOML)")
	basePathFl  = flag.String("base-path", ".", "root directory for cache, templates, and local-file references")
	templateDir = flag.String("template-path", "base", "template root, relative to -base-path unless absolute")
	cacheFile   = flag.String("cache-file", "cache.db", "on-disk fetch-cache path, relative to -base-path unless absolute")
	defaultURL  = flag.String("default-url", "", "url= fallback when a request omits it")
	insertURLs  = flag.String("insert-url", "", "pipe-separated list of always-inserted subscription urls")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	defer glog.Flush()

	basePath = *basePathFl

	gso := settings.Default()
	if *prefsFile != "" {
		loaded, err := loadPrefs(*prefsFile)
		if err != nil {
			glog.Errorf("[subconverterd] failed to load preference file %s: %v", *prefsFile, err)
		} else {
			gso = loaded
		}
	}
	settings.GSO.Put(gso)

	cache, err := fetch.OpenCache(resolvePath(*cacheFile))
	if err != nil {
		glog.Fatalf("[subconverterd] failed to open cache: %v", err)
	}
	defer cache.Close()

	fetcher := fetch.New(cache)
	if src, err := fetch.NewS3Source(); err == nil {
		fetcher.Register(src)
	}
	fetcher.Register(fetch.NewAzblobSource())

	fetchOpts := fetch.Options{
		TTL:              time.Duration(gso.CacheTTL) * time.Second,
		MaxSize:          gso.MaxAllowedDownloadSize,
		ServeCacheOnFail: gso.ServeCacheOnFetchFail,
		BasePath:         basePath,
	}

	rulesets := &ruleset.Engine{
		Fetcher:           fetcher,
		FetchOpts:         fetchOpts,
		AsyncFetchRuleset: gso.AsyncFetchRuleset,
		Concurrency:       8,
	}

	renderer := template.NewRenderer(resolvePath(*templateDir), fetcher)

	deps := &facade.Deps{
		Fetcher:      fetcher,
		FetchOpts:    fetchOpts,
		Cache:        cache,
		Rulesets:     rulesets,
		Renderer:     renderer,
		VM:           script.ExprVM{},
		Gate:         script.Gate{Authorized: true, Timeout: 5 * time.Second},
		DefaultURL:   *defaultURL,
		InsertURLs:   *insertURLs,
		EnableInsert: *insertURLs != "",
	}

	v := version
	if v == "" {
		v = "dev"
	}
	srv := &server{deps: deps, version: v + " (" + build + ")", prefsPath: *prefsFile, metrics: stats.NewMetrics()}

	mux := http.NewServeMux()
	srv.routes(mux)

	httpSrv := &http.Server{Addr: *listenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("[subconverterd] listening on %s", *listenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			glog.Errorf("[subconverterd] server exited: %v", err)
			return 1
		}
	case s := <-sig:
		glog.Infof("[subconverterd] received %s, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			glog.Errorf("[subconverterd] shutdown error: %v", err)
		}
	}
	return 0
}

func resolvePath(p string) string {
	if p == "" {
		return p
	}
	if os.IsPathSeparator(p[0]) {
		return p
	}
	return basePath + string(os.PathSeparator) + p
}
