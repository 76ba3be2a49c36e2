// Package ruleset implements the ruleset engine (C7): loading ruleset
// sources with bounded fan-out, normalizing them into Surge-shaped text,
// and the rule-head whitelist/rewrite rules each emitter consults. Grounded
// on _examples/original_source/src/generator/config/ruleconvert.cpp.
package ruleset

import (
	"context"

	"github.com/seiflotfy/cuckoofilter"
	"golang.org/x/sync/errgroup"

	"github.com/nodeconv/subconverter/fetch"
	"github.com/nodeconv/subconverter/node"
)

// Engine loads and schedules ruleset refreshes. Grounded on
// `fs/mpather/jogger.go`'s joggerSyncGroup: an `errgroup.Group` for
// fan-out plus a counting channel bounding in-flight work, the same pair
// the teacher uses for bounded concurrent I/O.
type Engine struct {
	Fetcher           *fetch.Fetcher
	FetchOpts         fetch.Options
	AsyncFetchRuleset bool
	Concurrency       int // 0 = unbounded
}

// Load dispatches each RulesetConfig entry to the fetcher (or resolves it
// immediately if inline), waits for every fetch, and returns the
// RulesetContent slice in input order. Fetches to the same URL within one
// Load call share a single Future through a per-call map keyed by URL, so
// a ruleset referenced by several groups is only fetched once.
func (e *Engine) Load(ctx context.Context, configs []node.RulesetConfig) []node.RulesetContent {
	out := make([]node.RulesetContent, len(configs))
	futures := make(map[string]*fetch.Future)
	seenURLs := cuckoofilter.NewDefaultCuckooFilter()

	sema := make(chan struct{}, e.concurrencyLimit())
	g, gctx := errgroup.WithContext(ctx)

	for i, cfg := range configs {
		i, cfg := i, cfg
		out[i] = node.RulesetContent{
			Group:          cfg.Group,
			Url:            cfg.Url,
			Type:           cfg.Type,
			UpdateInterval: cfg.Interval,
			Flags:          cfg.Flags,
		}

		if cfg.IsInline() {
			fut := fetch.Resolved([]byte(cfg.InlineBody()), nil)
			g.Go(func() error {
				body, _, err := fut.Get()
				out[i].Rules, out[i].Err = splitLines(body), err
				return nil
			})
			continue
		}

		var fut *fetch.Future
		acquired := false
		if existing, ok := futures[cfg.Url]; ok {
			fut = existing
		} else {
			seenURLs.InsertUnique([]byte(cfg.Url))
			if e.AsyncFetchRuleset {
				sema <- struct{}{}
				acquired = true
				fut = e.Fetcher.FetchAsync(gctx, cfg.Url, e.FetchOpts)
			} else {
				body, _, err := e.Fetcher.Fetch(gctx, cfg.Url, e.FetchOpts)
				fut = fetch.Resolved(body, err)
			}
			futures[cfg.Url] = fut
		}

		g.Go(func() error {
			defer func() {
				if acquired {
					<-sema
				}
			}()
			body, _, err := fut.Get()
			out[i].Rules, out[i].Err = splitLines(body), err
			return nil
		})
	}

	_ = g.Wait() // per-entry errors are recorded on RulesetContent, never aborts the batch
	return out
}

func (e *Engine) concurrencyLimit() int {
	if e.Concurrency <= 0 {
		return 1 << 16 // effectively unbounded
	}
	return e.Concurrency
}

func splitLines(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	return splitAny(string(body), "\r\n")
}
