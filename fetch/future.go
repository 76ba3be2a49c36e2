package fetch

import (
	"context"
	"net/http"
	"sync"
)

// Future is a shared, restartable-once result suitable for C7's ruleset
// fan-out: multiple RulesetConfig entries referencing the same URL share
// one Future, and readers only ever observe the completed value (spec §5
// "shared-resource policy").
type Future struct {
	once sync.Once
	done chan struct{}
	body []byte
	hdr  http.Header
	err  error
}

// FetchAsync starts ref's fetch in a goroutine and returns immediately with
// a Future the caller can Get() later.
func (f *Fetcher) FetchAsync(ctx context.Context, ref string, opts Options) *Future {
	fut := &Future{done: make(chan struct{})}
	go func() {
		fut.once.Do(func() {
			fut.body, fut.hdr, fut.err = f.Fetch(ctx, ref, opts)
			close(fut.done)
		})
	}()
	return fut
}

// Get blocks until the future resolves.
func (fut *Future) Get() ([]byte, http.Header, error) {
	<-fut.done
	return fut.body, fut.hdr, fut.err
}

// Resolved is a Future that is already complete -- used for inline
// "[]<rule>" ruleset entries (spec §4.7 "inline entries produce an
// already-resolved future").
func Resolved(body []byte, err error) *Future {
	fut := &Future{done: make(chan struct{})}
	fut.body, fut.err = body, err
	close(fut.done)
	return fut
}
