package archive

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/pagewatch/internal/watch"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fetchResult struct {
	resp watch.FetchResponse
	err  error
}

type fakeFetcher struct {
	mu       sync.Mutex
	results  map[string]fetchResult
	fallback fetchResult
	requests []watch.FetchRequest
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results:  map[string]fetchResult{},
		fallback: fetchResult{resp: watch.FetchResponse{StatusCode: 200}},
	}
}

func (f *fakeFetcher) on(url string, resp watch.FetchResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[url] = fetchResult{resp: resp, err: err}
}

func (f *fakeFetcher) Fetch(_ context.Context, req watch.FetchRequest) (watch.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if r, ok := f.results[req.URL]; ok {
		return r.resp, r.err
	}
	return f.fallback.resp, f.fallback.err
}

func (f *fakeFetcher) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.URL
	}
	return out
}

type fakeSnapshots struct {
	mu     sync.Mutex
	recent bool
	url    string
	calls  []string
}

func (s *fakeSnapshots) RecentSnapshot(_ context.Context, target string, _ time.Duration) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, target)
	return s.recent, s.url
}

type fakePacer struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (p *fakePacer) Wait(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
	return p.err
}
