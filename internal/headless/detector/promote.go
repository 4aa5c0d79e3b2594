package detector

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/watch"
)

// Fetcher probes with a plain HTTP fetcher and switches to the headless
// fetcher once the detector flags a response. The switch is permanent so
// consecutive digests always come from the same renderer.
type Fetcher struct {
	probe    watch.Fetcher
	headless watch.Fetcher
	detector *Heuristic
	logger   *zap.Logger
	promoted atomic.Bool
}

// NewFetcher builds a promoting Fetcher.
func NewFetcher(probe, headless watch.Fetcher, detector *Heuristic, logger *zap.Logger) *Fetcher {
	if detector == nil {
		detector = NewHeuristic(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{probe: probe, headless: headless, detector: detector, logger: logger}
}

// Promoted reports whether the headless fetcher is in use.
func (f *Fetcher) Promoted() bool {
	return f.promoted.Load()
}

// Fetch implements watch.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, request watch.FetchRequest) (watch.FetchResponse, error) {
	if f.promoted.Load() {
		return f.headless.Fetch(ctx, request)
	}
	resp, err := f.probe.Fetch(ctx, request)
	if err != nil || !f.detector.ShouldPromote(resp) {
		return resp, err
	}

	rendered, herr := f.headless.Fetch(ctx, request)
	if herr != nil {
		f.logger.Warn("headless promotion failed, keeping plain HTTP", zap.String("url", request.URL), zap.Error(herr))
		return resp, nil
	}
	f.promoted.Store(true)
	f.logger.Info("page needs a browser, switched to headless fetching", zap.String("url", request.URL))
	return rendered, nil
}
