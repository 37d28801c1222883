package searchcache

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("entry-%03d", n)
	}
}

func newTestCache(cfg Config, clk *fakeClock, opts ...Option) *Cache {
	opts = append([]Option{WithClock(clk.Now), WithIDGenerator(sequentialIDs())}, opts...)
	return New(cfg, zap.NewNop(), opts...)
}

func testIntent(primary intent.Primary, topics, locations []string) intent.QueryIntent {
	in := intent.Default()
	in.Primary = primary
	in.Entities.Topics = topics
	in.Entities.Locations = locations
	in.SearchStrategy.Priority = intent.PriorityMedium
	in.SearchStrategy.QueryType = intent.QueryLocal
	return in
}

func filteredWith(scores ...float64) *result.FilteredResults {
	f := result.Empty()
	for i, s := range scores {
		f.Results = append(f.Results, result.ScoredResult{
			WebSearchResult: result.WebSearchResult{
				Title: fmt.Sprintf("result %d", i),
				Link:  fmt.Sprintf("https://example.com/%d", i),
				Rank:  i + 1,
			},
			FinalScore: s,
		})
	}
	return &f
}

func rewritten(q string) query.RewrittenQuery {
	return query.RewrittenQuery{Original: q, Rewritten: q, Strategy: query.Direct}
}
