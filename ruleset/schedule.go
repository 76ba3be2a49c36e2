package ruleset

import (
	"context"
	"strconv"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/nodeconv/subconverter/node"
)

// Scheduler wires periodic ruleset refresh via robfig/cron/v3, the one
// cron-runner hook the core exposes (SPEC_FULL.md §5.7 scope boundary).
// Each RulesetConfig with a non-zero Interval gets its own cron entry at
// "@every <interval>s"; refreshed content replaces the prior snapshot
// under a mutex so concurrent emit passes always read a consistent slice.
type Scheduler struct {
	engine *Engine
	cron   *cron.Cron

	mu    sync.RWMutex
	cache map[string]node.RulesetContent
}

func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{
		engine: engine,
		cron:   cron.New(),
		cache:  make(map[string]node.RulesetContent),
	}
}

// Schedule registers a periodic refresh for every entry in configs whose
// Interval is positive and starts the cron runner.
func (s *Scheduler) Schedule(ctx context.Context, configs []node.RulesetConfig) {
	for _, cfg := range configs {
		if cfg.Interval <= 0 || cfg.IsInline() {
			continue
		}
		cfg := cfg
		s.cron.AddFunc(intervalSpec(cfg.Interval), func() {
			results := s.engine.Load(ctx, []node.RulesetConfig{cfg})
			if len(results) == 0 {
				return
			}
			s.mu.Lock()
			s.cache[cfg.Url] = results[0]
			s.mu.Unlock()
		})
	}
	s.cron.Start()
}

// Snapshot returns the last refreshed RulesetContent for url, if any.
func (s *Scheduler) Snapshot(url string) (node.RulesetContent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.cache[url]
	return rc, ok
}

// Stop halts the cron runner, waiting for in-flight jobs to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

func intervalSpec(seconds int) string {
	if seconds <= 0 {
		seconds = 1
	}
	return "@every " + strconv.Itoa(seconds) + "s"
}
