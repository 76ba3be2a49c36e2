// Package settings holds the process-wide Settings snapshot and the
// per-request Extra overlay, following the teacher's cmn.Config /
// globalConfigOwner pattern (atomic snapshot + short-held mutex on write).
package settings

import (
	"sync"

	"github.com/nodeconv/subconverter/node"
	"go.uber.org/atomic"
)

// Settings is the process-wide, copy-on-read preference snapshot consumed
// by the core (spec §3.6). The HTTP server / preference-file loader that
// populates it is out of core scope; the core only owns the in-memory
// holder and the per-request merge logic (§4.12).
type Settings struct {
	APIMode               bool
	ManagedConfigPrefix   string
	DefaultExtConfig      string
	BasePath              string
	CacheDir              string
	TemplatePath          string
	MaxAllowedDownloadSize int64
	MaxAllowedRules       int
	AsyncFetchRuleset     bool
	ServeCacheOnFetchFail bool
	SkipFailedLinks       bool
	AppendProxyType       bool
	ClashNewFieldName     bool
	FilterDeprecated      bool
	Token                 string
	QuanXDevID            string
	CacheTTL              int64 // seconds

	UDP           node.TriBool
	TCPFastOpen   node.TriBool
	AllowInsecure node.TriBool
	TLS13         node.TriBool

	SurgeSSRPath string // path to external ssr-local binary, for Surge SSR emission
}

// Default returns the built-in defaults layer (spec §4.12 precedence
// bottom), mirroring cmn.Config's zero-value-plus-explicit-defaults style.
func Default() *Settings {
	return &Settings{
		ManagedConfigPrefix:    "",
		MaxAllowedDownloadSize: 32 << 20,
		MaxAllowedRules:        0, // 0 = unbounded
		AsyncFetchRuleset:      true,
		ServeCacheOnFetchFail:  false,
		SkipFailedLinks:        false,
		AppendProxyType:        false,
		ClashNewFieldName:      true,
		FilterDeprecated:       false,
		CacheTTL:               60 * 60,
	}
}

// owner is the atomic-snapshot holder, ported from cmn.globalConfigOwner.
type owner struct {
	mtx sync.Mutex
	cur atomic.Pointer[Settings]
}

// GSO ("global settings owner") is the process-wide holder; callers read via
// GSO.Get() and write via GSO.Put(), never touching a *Settings directly
// across goroutines.
var GSO = &owner{}

func init() { GSO.Put(Default()) }

func (o *owner) Get() *Settings { return o.cur.Load() }

func (o *owner) Put(s *Settings) { o.cur.Store(s) }

// BeginUpdate/CommitUpdate bracket a read-modify-write cycle the way
// cmn.globalConfigOwner.BeginUpdate/CommitUpdate do: BeginUpdate clones
// the current snapshot under the write lock, the caller mutates the
// clone, and CommitUpdate swaps it in and releases the lock.
func (o *owner) BeginUpdate() *Settings {
	o.mtx.Lock()
	cur := *o.Get()
	return &cur
}

func (o *owner) CommitUpdate(s *Settings) {
	o.cur.Store(s)
	o.mtx.Unlock()
}

func (o *owner) DiscardUpdate() { o.mtx.Unlock() }
