package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	collyfetcher "github.com/JakeFAU/pagewatch/internal/fetcher/colly"
	"github.com/JakeFAU/pagewatch/internal/watch"
)

func availabilityBody(timestamp string) []byte {
	return []byte(`{"url":"` + target + `","archived_snapshots":{"closest":{"status":"200","available":true,` +
		`"url":"http://web.archive.org/web/` + timestamp + `/` + target + `","timestamp":"` + timestamp + `"}}}`)
}

func TestRecentSnapshotFresh(t *testing.T) {
	t.Parallel()

	clock := newFakeClock() // 2024-06-01 12:00:00 UTC
	fetcher := newFakeFetcher()
	fetcher.fallback = fetchResult{resp: watch.FetchResponse{StatusCode: 200, Body: availabilityBody("20240601115500")}}
	checker := NewChecker(CheckerConfig{}, fetcher, clock, zap.NewNop())

	recent, snap := checker.RecentSnapshot(context.Background(), target, time.Hour)
	require.True(t, recent)
	require.Equal(t, "http://web.archive.org/web/20240601115500/"+target, snap)

	require.Len(t, fetcher.requests, 1)
	req := fetcher.requests[0]
	require.Equal(t, 30*time.Second, req.Timeout)
	parsed, err := url.Parse(req.URL)
	require.NoError(t, err)
	require.Equal(t, "archive.org", parsed.Host)
	require.Equal(t, "/wayback/available", parsed.Path)
	require.Equal(t, target, parsed.Query().Get("url"))
}

func TestRecentSnapshotAgeBoundary(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	fetcher := newFakeFetcher()
	checker := NewChecker(CheckerConfig{}, fetcher, clock, zap.NewNop())

	fetcher.fallback = fetchResult{resp: watch.FetchResponse{Body: availabilityBody("20240601110000")}}
	recent, _ := checker.RecentSnapshot(context.Background(), target, time.Hour)
	require.True(t, recent, "exactly maxAge old counts as recent")

	fetcher.fallback = fetchResult{resp: watch.FetchResponse{Body: availabilityBody("20240601105959")}}
	recent, snap := checker.RecentSnapshot(context.Background(), target, time.Hour)
	require.False(t, recent)
	require.Equal(t, "http://web.archive.org/web/20240601105959/"+target, snap)
}

func TestRecentSnapshotMissingOrUnavailable(t *testing.T) {
	t.Parallel()

	bodies := []string{
		`{"url":"x","archived_snapshots":{}}`,
		`{"archived_snapshots":{"closest":{"available":false,"url":"http://web.archive.org/web/1/x","timestamp":"20240601115500"}}}`,
	}
	for _, body := range bodies {
		fetcher := newFakeFetcher()
		fetcher.fallback = fetchResult{resp: watch.FetchResponse{Body: []byte(body)}}
		checker := NewChecker(CheckerConfig{}, fetcher, newFakeClock(), zap.NewNop())

		recent, snap := checker.RecentSnapshot(context.Background(), target, time.Hour)
		require.False(t, recent)
		require.Empty(t, snap)
	}
}

func TestRecentSnapshotFailuresAreLogged(t *testing.T) {
	t.Parallel()

	cases := []fetchResult{
		{err: errors.New("connection reset")},
		{resp: watch.FetchResponse{Body: []byte("<html>not json</html>")}},
		{resp: watch.FetchResponse{Body: availabilityBody("not-a-time")}},
	}
	for _, tc := range cases {
		core, logs := observer.New(zapcore.DebugLevel)
		fetcher := newFakeFetcher()
		fetcher.fallback = tc
		checker := NewChecker(CheckerConfig{}, fetcher, newFakeClock(), zap.New(core))

		recent, snap := checker.RecentSnapshot(context.Background(), target, time.Hour)
		require.False(t, recent)
		require.Empty(t, snap)
		require.Equal(t, 1, logs.FilterMessage("❌ Snapshot check failed.").Len())
	}
}

func TestSnapshotCapturedAt(t *testing.T) {
	t.Parallel()

	ts, err := Snapshot{Timestamp: "20240102030405"}.CapturedAt()
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC), ts)

	_, err = Snapshot{Timestamp: "2024"}.CapturedAt()
	require.Error(t, err)
}

func TestRecentSnapshotOverHTTP(t *testing.T) {
	t.Parallel()

	queried := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queried <- r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(availabilityBody("20240601115959"))
	}))
	defer srv.Close()

	checker := NewChecker(
		CheckerConfig{Endpoint: srv.URL + "/wayback/available", Timeout: time.Second},
		collyfetcher.New(collyfetcher.Config{}),
		newFakeClock(),
		zap.NewNop(),
	)

	recent, snap := checker.RecentSnapshot(context.Background(), target, time.Hour)
	require.True(t, recent)
	require.Contains(t, snap, "20240601115959")
	require.Equal(t, target, <-queried)
}
