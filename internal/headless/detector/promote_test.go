package detector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/pagewatch/internal/watch"
)

type stubFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, req watch.FetchRequest) (watch.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return watch.FetchResponse{}, s.err
	}
	return watch.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(s.body)}, nil
}

func TestFetcherKeepsStaticPagesOnProbe(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{body: "<html><body><table><tr><td>Artist</td></tr></table></body></html>"}
	headless := &stubFetcher{body: "rendered"}
	f := NewFetcher(probe, headless, NewHeuristic(10), nil)

	resp, err := f.Fetch(context.Background(), watch.FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, probe.body, string(resp.Body))
	require.Zero(t, headless.calls)
	require.False(t, f.Promoted())
}

func TestFetcherPromotesAndSticks(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{body: `<div id="root"></div>`}
	headless := &stubFetcher{body: "<div id=\"root\"><table>rows</table></div>"}
	core, logs := observer.New(zapcore.InfoLevel)
	f := NewFetcher(probe, headless, nil, zap.New(core))

	for range 3 {
		resp, err := f.Fetch(context.Background(), watch.FetchRequest{URL: "https://example.com"})
		require.NoError(t, err)
		require.Equal(t, headless.body, string(resp.Body))
	}
	require.True(t, f.Promoted())
	require.Equal(t, 1, probe.calls)
	require.Equal(t, 3, headless.calls)
	require.Equal(t, 1, logs.FilterMessage("page needs a browser, switched to headless fetching").Len())
}

func TestFetcherFallsBackWhenHeadlessFails(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{body: `<div id="app"></div>`}
	headless := &stubFetcher{err: errors.New("chrome not found")}
	f := NewFetcher(probe, headless, nil, nil)

	resp, err := f.Fetch(context.Background(), watch.FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, probe.body, string(resp.Body))
	require.False(t, f.Promoted())
}

func TestFetcherPassesProbeErrors(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{err: errors.New("dial tcp: refused")}
	headless := &stubFetcher{body: "rendered"}
	f := NewFetcher(probe, headless, nil, nil)

	_, err := f.Fetch(context.Background(), watch.FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	require.Zero(t, headless.calls)
}
