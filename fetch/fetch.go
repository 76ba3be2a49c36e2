// Package fetch implements the Fetcher + Cache capability (C1): URL/file/
// data-URI retrieval with a TTL cache and size cap, the only I/O boundary
// the rest of the pipeline crosses. Grounded on the teacher's per-scheme
// backend-provider dispatch (ais/backend/http.go's httpProvider.client)
// generalized from https-vs-http to a registry of Source implementations.
package fetch

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/cmn/glogx"
)

// RelayLoopHeader is set on outgoing cors:<proxy> relay requests and
// checked on inbound requests; a request bearing it already must abort
// immediately rather than relay again (spec §9 "cycle-free parsing").
const RelayLoopHeader = "X-Subconverter-Relay"

// Source is one URL-scheme handler, mirroring cluster.BackendProvider's
// one-interface-per-target shape in the teacher.
type Source interface {
	Scheme() string
	Fetch(ctx context.Context, ref string, opts Options) ([]byte, http.Header, error)
}

// Options configures one Fetch call.
type Options struct {
	Proxy              string
	TTL                time.Duration
	MaxSize            int64
	ServeCacheOnFail   bool
	BasePath           string // scope root for bare local-file references
	IncomingHasRelayHdr bool   // true if the inbound request already carried RelayLoopHeader
}

// Fetcher dispatches by URL scheme to a registered Source and wraps every
// call with the on-disk cache.
type Fetcher struct {
	sources map[string]Source
	cache   *Cache
	client  *http.Client
}

func New(cache *Cache) *Fetcher {
	return &Fetcher{
		sources: make(map[string]Source),
		cache:   cache,
		client: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 20 {
					return errors.New("fetch: too many redirects")
				}
				return nil
			},
		},
	}
}

// Register installs a Source for its scheme; called once per cloud/file/
// http source at startup, the way ais/backend providers self-register.
func (f *Fetcher) Register(s Source) { f.sources[s.Scheme()] = s }

// Fetch retrieves ref (a full URL, "data:" URI, bare local path, or
// "cors:<proxy>" relay form), serving from cache when fresh.
func (f *Fetcher) Fetch(ctx context.Context, ref string, opts Options) ([]byte, http.Header, error) {
	if opts.IncomingHasRelayHdr {
		return nil, nil, cmn.ErrRelayLoop
	}

	key := cacheKey(ref)
	if opts.TTL > 0 && f.cache != nil {
		if body, hdr, ok := f.cache.Get(key, opts.TTL); ok {
			if glogx.FastV(4, glogx.SmoduleFetch) {
				glog.Infof("[fetch] cache hit %s", key)
			}
			return body, hdr, nil
		}
	}

	body, hdr, err := f.dispatch(ctx, ref, opts)
	if err != nil {
		if opts.ServeCacheOnFail && f.cache != nil {
			if body, hdr, ok := f.cache.GetStale(key); ok {
				glog.Warningf("[fetch] serving stale cache for %s after error: %v", ref, err)
				return body, hdr, nil
			}
		}
		return nil, nil, err
	}

	if opts.MaxSize > 0 && int64(len(body)) > opts.MaxSize {
		return nil, nil, cmn.ErrFetchTooLarge
	}

	if f.cache != nil {
		f.cache.Put(key, body, hdr)
	}
	return body, hdr, nil
}

func (f *Fetcher) dispatch(ctx context.Context, ref string, opts Options) ([]byte, http.Header, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "cors:"):
		return f.fetchCORS(ctx, strings.TrimPrefix(ref, "cors:"), opts)
	}

	u, err := url.Parse(ref)
	if err == nil && u.Scheme != "" {
		if src, ok := f.sources[u.Scheme]; ok {
			return src.Fetch(ctx, ref, opts)
		}
		if u.Scheme == "http" || u.Scheme == "https" {
			return f.fetchHTTP(ctx, ref, opts)
		}
	}
	return f.fetchLocal(ref, opts)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string, opts Options) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("fetch: %s returned status %d", ref, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOr(opts.MaxSize)))
	if err != nil {
		return nil, nil, err
	}
	return body, resp.Header.Clone(), nil
}

func (f *Fetcher) fetchCORS(ctx context.Context, proxiedURL string, opts Options) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxiedURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set(RelayLoopHeader, "1")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOr(opts.MaxSize)))
	if err != nil {
		return nil, nil, err
	}
	return body, resp.Header.Clone(), nil
}

func maxOr(n int64) int64 {
	if n <= 0 {
		return 256 << 20
	}
	return n + 1 // +1 so the caller's len()>MaxSize check still fires
}

func decodeDataURI(ref string) ([]byte, http.Header, error) {
	rest := strings.TrimPrefix(ref, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, nil, errors.New("fetch: malformed data URI")
	}
	meta, data := rest[:comma], rest[comma+1:]
	if strings.Contains(meta, "base64") {
		b, err := base64.StdEncoding.DecodeString(data)
		return b, http.Header{}, err
	}
	decoded, err := url.QueryUnescape(data)
	return []byte(decoded), http.Header{}, err
}

func cacheKey(ref string) string {
	sum := md5.Sum([]byte(ref))
	return hex.EncodeToString(sum[:])
}

// joinScoped resolves name under base and rejects traversal outside it, the
// scope rule spec §4.1 requires for bare local-path references.
func joinScoped(base, name string) (string, error) {
	clean := filepath.Clean(filepath.Join(base, name))
	baseClean := filepath.Clean(base)
	if clean != baseClean && !strings.HasPrefix(clean, baseClean+string(filepath.Separator)) {
		return "", fmt.Errorf("fetch: %q escapes base path %q", name, base)
	}
	return clean, nil
}
